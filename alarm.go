package kernel

// AlarmNode is the run-time form of a declared alarm: its active/overflow
// status, period and absolute expiration tick, threaded into its
// counter's sorted expiration queue via arena-index prev/next pointers
//.
type AlarmNode struct {
	id     AlarmID
	cfg    *AlarmConfig
	active bool
	ovf    bool // this alarm's OVF class, relative to its counter's
	cycle  Tick // 0 = one-shot
	exp    Tick // absolute expiration tick
	prev   AlarmID
	next   AlarmID
}

func (k *Kernel) alarmRef(a AlarmID) (*AlarmNode, StatusType) {
	if int(a) < 0 || int(a) >= len(k.alarms) {
		return nil, E_OS_ID
	}
	return &k.alarms[a], E_OK
}

// activateAlarm inserts alm into its counter's sorted alarm queue and
// marks it active. If already active, it is a precondition violation the
// caller (SetRelAlarm/SetAbsAlarm) has already rejected with E_OS_STATE;
// activateAlarm itself assumes alm is not already queued.
//
// Queue insertion ordering rule: walk from the head,
// stopping before the first node whose effective expiration is later
// than the new alarm's. A node in a different OVF class than the new
// alarm, when the counter's own OVF matches the new alarm's (i.e. the new
// alarm expires this epoch and the node expires next epoch), always sorts
// after the new alarm. Within the same OVF class, plain exp comparison
// decides; ties keep FIFO order (the new alarm goes after existing equal
// nodes).
func (k *Kernel) activateAlarm(a AlarmID) {
	alm := &k.alarms[a]
	counter := &k.counters[alm.cfg.Counter]

	cur := counter.alarmHead
	var last AlarmID = noAlarm
	for cur != noAlarm {
		node := &k.alarms[cur]
		if node.ovf != alm.ovf && counter.ovf == alm.ovf {
			break
		}
		if node.ovf == alm.ovf && alm.exp < node.exp {
			break
		}
		last = cur
		cur = node.next
	}

	if cur == noAlarm {
		alm.next = noAlarm
		alm.prev = last
		if last == noAlarm {
			counter.alarmHead = a
		} else {
			k.alarms[last].next = a
		}
	} else {
		alm.next = cur
		alm.prev = k.alarms[cur].prev
		if alm.prev == noAlarm {
			counter.alarmHead = a
		} else {
			k.alarms[alm.prev].next = a
		}
		k.alarms[cur].prev = a
	}

	alm.active = true
}

// removeAlarm unlinks alm from its counter's queue and clears Active. A
// no-op if alm is not active.
func (k *Kernel) removeAlarm(a AlarmID) {
	alm := &k.alarms[a]
	if !alm.active {
		return
	}
	counter := &k.counters[alm.cfg.Counter]
	if alm.prev != noAlarm {
		k.alarms[alm.prev].next = alm.next
	} else {
		counter.alarmHead = alm.next
	}
	if alm.next != noAlarm {
		k.alarms[alm.next].prev = alm.prev
	}
	alm.next, alm.prev = noAlarm, noAlarm
	alm.active = false
}

// checkAlarms fires every alarm at the head of c's queue that has now
// expired, in increasing exp order, re-reading the head after each fire
// since FireAlarm may remove and, for cyclic alarms, immediately
// re-insert a node elsewhere in the queue.
//
// The second branch reproduces, unmodified, the "degenerate wrap" case
// the original source flags as an open question ("should this ever
// happen?"): a queued alarm whose OVF class still differs from
// the counter's, where this very tick's wrap leaves less than one
// TicksPerBase of margin before it would anyway have expired. It is kept
// as specified and exercised as a testable property, not reinterpreted.
func (k *Kernel) checkAlarms(c *Counter) {
	max := c.cfg.MaxAllowedValue
	tpb := c.cfg.TicksPerBase
	for c.alarmHead != noAlarm {
		node := &k.alarms[c.alarmHead]
		if c.ovf == node.ovf {
			if c.count >= node.exp {
				k.fireAlarm(node.id)
				continue
			}
			break
		}
		if (max-node.exp+c.count+1) < tpb {
			k.fireAlarm(node.id)
			continue
		}
		break
	}
}

// fireAlarm executes alm's configured action, removes it from the queue,
// and, if cyclic, advances its expiration by cycle (toggling OVF on wrap)
// and re-inserts it.
func (k *Kernel) fireAlarm(a AlarmID) {
	alm := &k.alarms[a]
	switch alm.cfg.Action {
	case AlarmActivateTask:
		k.ActivateTaskPreempt(alm.cfg.Task)
	case AlarmSetEvent:
		k.SetEventPreempt(alm.cfg.Task, alm.cfg.EventMask)
	case AlarmCallback:
		if alm.cfg.Callback != nil {
			alm.cfg.Callback()
		}
	default:
		panic("kernel: alarm with unknown action fired")
	}

	k.removeAlarm(a)
	if alm.cycle != 0 {
		counter := &k.counters[alm.cfg.Counter]
		max := counter.cfg.MaxAllowedValue
		if max-alm.cycle < alm.exp {
			alm.exp = alm.cycle - (max - alm.exp) - 1
			alm.ovf = !counter.ovf
		} else {
			alm.exp += alm.cycle
		}
		k.activateAlarm(a)
	}
}

// setAlarm computes exp's OVF class relative to the counter's current
// count: if exp <= count, the alarm's expiration is itself an overflow of
// the counter's present epoch (matching SetAbs/RelAlarm's specified
// behavior for an expiration "in the past this epoch").
func setAlarm(alm *AlarmNode, counterOVF bool, counterCount, exp, cycle Tick) {
	if exp <= counterCount {
		alm.ovf = !counterOVF
	} else {
		alm.ovf = counterOVF
	}
	alm.cycle = cycle
	alm.exp = exp
}

// SetRelAlarm activates alm to first expire inc ticks from now, repeating
// every cycle ticks thereafter (cycle == 0 for a one-shot alarm). Fails
// with E_OS_STATE if already active, E_OS_VALUE if inc is zero or out of
// range, or (extended builds only) if cycle is out of range.
func (k *Kernel) SetRelAlarm(a AlarmID, inc, cycle Tick) StatusType {
	alm, status := k.alarmRef(a)
	if status != E_OK {
		return k.fail(ServiceSetRelAlarm, status, int32(a))
	}
	if alm.active {
		return k.fail(ServiceSetRelAlarm, E_OS_STATE, int32(a))
	}
	counter := &k.counters[alm.cfg.Counter]
	max := counter.cfg.MaxAllowedValue
	if inc == 0 || inc > max {
		return k.fail(ServiceSetRelAlarm, E_OS_VALUE, int32(a))
	}
	if k.opts.extended && cycle != 0 && (cycle < counter.cfg.MinCycle || cycle > max) {
		return k.fail(ServiceSetRelAlarm, E_OS_VALUE, int32(a))
	}

	exp := (counter.count + inc) % (max + 1)
	setAlarm(alm, counter.ovf, counter.count, exp, cycle)
	k.activateAlarm(a)
	return E_OK
}

// SetAbsAlarm activates alm to expire when its counter reaches start,
// repeating every cycle ticks thereafter. If start has already elapsed
// this epoch, the alarm is scheduled to fire next epoch instead.
func (k *Kernel) SetAbsAlarm(a AlarmID, start, cycle Tick) StatusType {
	alm, status := k.alarmRef(a)
	if status != E_OK {
		return k.fail(ServiceSetAbsAlarm, status, int32(a))
	}
	if alm.active {
		return k.fail(ServiceSetAbsAlarm, E_OS_STATE, int32(a))
	}
	counter := &k.counters[alm.cfg.Counter]
	max := counter.cfg.MaxAllowedValue
	if start > max {
		return k.fail(ServiceSetAbsAlarm, E_OS_VALUE, int32(a))
	}
	if k.opts.extended && cycle != 0 && (cycle < counter.cfg.MinCycle || cycle > max) {
		return k.fail(ServiceSetAbsAlarm, E_OS_VALUE, int32(a))
	}

	setAlarm(alm, counter.ovf, counter.count, start, cycle)
	k.activateAlarm(a)
	return E_OK
}

// CancelAlarm deactivates alm. Fails with E_OS_NOFUNC if it was not
// active.
func (k *Kernel) CancelAlarm(a AlarmID) StatusType {
	alm, status := k.alarmRef(a)
	if status != E_OK {
		return k.fail(ServiceCancelAlarm, status, int32(a))
	}
	if !alm.active {
		return k.fail(ServiceCancelAlarm, E_OS_NOFUNC, int32(a))
	}
	k.removeAlarm(a)
	return E_OK
}

// GetAlarm returns the number of ticks remaining until alm next expires.
// Fails with E_OS_NOFUNC if alm is not active.
func (k *Kernel) GetAlarm(a AlarmID) (Tick, StatusType) {
	alm, status := k.alarmRef(a)
	if status != E_OK {
		return 0, k.fail(ServiceGetAlarm, status, int32(a))
	}
	if !alm.active {
		return 0, k.fail(ServiceGetAlarm, E_OS_NOFUNC, int32(a))
	}
	counter := &k.counters[alm.cfg.Counter]
	max := counter.cfg.MaxAllowedValue
	if alm.ovf == counter.ovf {
		return alm.exp - counter.count, E_OK
	}
	return max - counter.count + alm.exp + 1, E_OK
}
