package kernel

// Counter is the run-time form of a declared OSEK counter: a
// monotonically advancing tick value with an overflow bit toggled every
// wrap, plus arena-index heads into this counter's alarm queue and
// schedule-table list.
type Counter struct {
	id      CounterID
	cfg     *CounterConfig
	count   Tick
	ovf     bool
	elapsed Tick // value at the last GetElapsedValue call

	alarmHead AlarmID
	tableHead TableID
}

func (k *Kernel) counterRef(id CounterID) (*Counter, StatusType) {
	if int(id) < 0 || int(id) >= len(k.counters) {
		return nil, E_OS_ID
	}
	return &k.counters[id], E_OK
}

// IncrementCounter advances c by its TicksPerBase, toggling the overflow
// bit on wrap, then fires any now-expired alarms and processes any
// schedule tables driven by c.
func (k *Kernel) IncrementCounter(c CounterID) StatusType {
	counter, status := k.counterRef(c)
	if status != E_OK {
		return k.fail(ServiceIncrementCounter, status, int32(c))
	}

	max := counter.cfg.MaxAllowedValue
	tpb := counter.cfg.TicksPerBase
	if max-tpb < counter.count {
		counter.count = tpb - (max - counter.count) - 1
		counter.ovf = !counter.ovf
	} else {
		counter.count += tpb
	}

	k.checkAlarms(counter)
	k.checkScheduleTables(counter)
	return E_OK
}

// GetCounterValue returns c's current tick value.
func (k *Kernel) GetCounterValue(c CounterID) (Tick, StatusType) {
	counter, status := k.counterRef(c)
	if status != E_OK {
		return 0, k.fail(ServiceGetCounterValue, status, int32(c))
	}
	return counter.count, E_OK
}

// GetElapsedValue returns the number of ticks elapsed on c since the
// previous call (or since counter creation, for the first call), modulo
// max+1, and advances the reference point to the current count.
func (k *Kernel) GetElapsedValue(c CounterID) (Tick, StatusType) {
	counter, status := k.counterRef(c)
	if status != E_OK {
		return 0, k.fail(ServiceGetElapsedValue, status, int32(c))
	}
	max := counter.cfg.MaxAllowedValue
	elapsed := (counter.count - counter.elapsed + max + 1) % (max + 1)
	counter.elapsed = counter.count
	return elapsed, E_OK
}

// GetAlarmBase returns c's static properties: MaxAllowedValue,
// TicksPerBase, MinCycle. Its semantics are a plain read of the counter
// the alarm is bound to.
func (k *Kernel) GetAlarmBase(a AlarmID) (CounterConfig, StatusType) {
	alarm, status := k.alarmRef(a)
	if status != E_OK {
		return CounterConfig{}, k.fail(ServiceGetAlarmBase, status, int32(a))
	}
	counter := &k.counters[alarm.cfg.Counter]
	return *counter.cfg, E_OK
}
