package kernel

// noExpiry marks a ScheduleTable with no currently-active expiry point:
// either still in its initial waiting period or in its final delay.
const noExpiry = -1

// ScheduleTable is the run-time form of a declared schedule table,
// threaded into its driving counter's table list via arena-index
// prev/next pointers so several tables may share one counter.
type ScheduleTable struct {
	id  TableID
	cfg *ScheduleTableConfig

	status ScheduleTableStatus

	processing bool // past the initial waiting period
	delaying   bool // in the final delay after the last expiry point
	syncing    bool // an explicit-sync request is in effect

	deviation     Tick
	deviationNeg  bool

	nextTick Tick
	ovf      bool // this table's OVF class, relative to its counter's
	nextExp  int  // index into cfg.ExpiryPoints, or noExpiry

	toTbl   TableID // table to switch to via NextScheduleTable
	fromTbl TableID // inverse of toTbl

	delay Tick // duration - last expiry point offset

	prev, next TableID
}

func (k *Kernel) tableRef(id TableID) (*ScheduleTable, StatusType) {
	if int(id) < 0 || int(id) >= len(k.tables) {
		return nil, E_OS_ID
	}
	return &k.tables[id], E_OK
}

// setTableNextTick places t's next expiry at tick, deriving t's OVF class
// the same way setAlarm does: an expiration at or before the counter's
// current count belongs to the opposite epoch.
func (k *Kernel) setTableNextTick(t *ScheduleTable, tick Tick) {
	counter := &k.counters[t.cfg.Counter]
	if tick <= counter.count {
		t.ovf = !counter.ovf
	} else {
		t.ovf = counter.ovf
	}
	t.nextTick = tick
}

// incTableNextTick advances t.nextTick by inc, toggling t's OVF class on
// wrap.
func (k *Kernel) incTableNextTick(t *ScheduleTable, inc Tick) {
	if inc == 0 {
		return
	}
	counter := &k.counters[t.cfg.Counter]
	max := counter.cfg.MaxAllowedValue
	if max-inc < t.nextTick {
		t.nextTick = inc - (max - t.nextTick) - 1
		t.ovf = !counter.ovf
	} else {
		t.nextTick += inc
	}
}

// decTableNextTick retreats t.nextTick by dec, used only by sync
// adjustment to bring an expiry point closer.
func (k *Kernel) decTableNextTick(t *ScheduleTable, dec Tick) {
	if dec == 0 {
		return
	}
	counter := &k.counters[t.cfg.Counter]
	max := counter.cfg.MaxAllowedValue
	if t.nextTick >= dec {
		t.nextTick -= dec
	} else {
		t.nextTick = max - (dec - t.nextTick - 1)
		t.ovf = !counter.ovf
	}
}

// updateTableNextTick sets t's next expiry to the counter's current count
// plus inc, in one step (used when starting a table relative to "now").
func (k *Kernel) updateTableNextTick(t *ScheduleTable, inc Tick) {
	counter := &k.counters[t.cfg.Counter]
	max := counter.cfg.MaxAllowedValue
	t.ovf = counter.ovf
	if inc == 0 {
		t.nextTick = counter.count
		return
	}
	if max-inc < counter.count {
		t.nextTick = inc - (max - counter.count) - 1
		t.ovf = !counter.ovf
	} else {
		t.nextTick = inc + counter.count
	}
}

// startTable transitions t into status, enters processing, and points it
// at its first expiry point, computing next_tick either from the current
// counter position (useUpdate, used when a successor takes over from its
// predecessor table) or as an increment from the table's own prior
// next_tick (used when the initial offset has elapsed and when a
// repeating table starts its next cycle).
func (k *Kernel) startTable(t *ScheduleTable, status ScheduleTableStatus, useUpdate bool) {
	t.status = status
	t.processing = true
	t.nextExp = 0
	if useUpdate {
		k.updateTableNextTick(t, t.cfg.ExpiryPoints[0].Offset)
	} else {
		k.incTableNextTick(t, t.cfg.ExpiryPoints[0].Offset)
	}
}

// initTable resets the per-activation fields a fresh Start*/NextTable
// call must not inherit from a previous run.
func initTable(t *ScheduleTable) {
	t.processing = false
	t.delaying = false
	t.syncing = false
	t.nextExp = noExpiry
	t.toTbl = noTable
	t.fromTbl = noTable
	t.deviation = 0
	t.deviationNeg = false
}

// linkTable appends t to the tail of its counter's table list.
func (k *Kernel) linkTable(t *ScheduleTable, counter *Counter) {
	t.next = noTable
	if counter.tableHead == noTable {
		counter.tableHead = t.id
		t.prev = noTable
		return
	}
	tail := counter.tableHead
	for k.tables[tail].next != noTable {
		tail = k.tables[tail].next
	}
	k.tables[tail].next = t.id
	t.prev = tail
}

// unlinkTable removes t from its counter's table list without starting
// any successor.
func (k *Kernel) unlinkTable(t *ScheduleTable) {
	counter := &k.counters[t.cfg.Counter]
	if t.prev != noTable {
		k.tables[t.prev].next = t.next
	} else {
		counter.tableHead = t.next
	}
	if t.next != noTable {
		k.tables[t.next].prev = t.prev
	}
	t.prev, t.next = noTable, noTable
}

// carrySync propagates an in-progress explicit synchronization from a
// finishing table to the table replacing it, when both use explicit sync:
// an AUTOSAR requirement that NextScheduleTable continue synchronization
// across the switch.
func carrySync(from, to *ScheduleTable) {
	if from.cfg.Sync == SyncExplicit && to.cfg.Sync == SyncExplicit && from.syncing {
		to.syncing = true
		to.deviation = from.deviation
		to.deviationNeg = from.deviationNeg
	}
}

// removeScheduleTable stops t and, if it has a linked successor (set by
// NextScheduleTable), starts that successor in its place. It returns the
// successor when the successor's own first expiry point is due
// immediately (offset 0), signaling the caller to continue processing
// without waiting for another counter tick.
func (k *Kernel) removeScheduleTable(t *ScheduleTable) *ScheduleTable {
	next := t.toTbl
	t.status = TableStopped

	if next == noTable {
		k.unlinkTable(t)
		return nil
	}

	nextTbl := &k.tables[next]
	counter := &k.counters[t.cfg.Counter]

	nextTbl.prev, nextTbl.next = t.prev, t.next
	if t.prev != noTable {
		k.tables[t.prev].next = next
	} else {
		counter.tableHead = next
	}
	if t.next != noTable {
		k.tables[t.next].prev = next
	}
	t.prev, t.next = noTable, noTable

	var immediate *ScheduleTable
	if nextTbl.cfg.ExpiryPoints[0].Offset == 0 {
		nextTbl.status = TableRunning
		nextTbl.processing = true
		nextTbl.nextExp = 0
		nextTbl.ovf = counter.ovf
		nextTbl.nextTick = counter.count
		immediate = nextTbl
	} else {
		k.startTable(nextTbl, TableRunning, true)
	}

	carrySync(t, nextTbl)
	return immediate
}

// doScheduleTableActions runs one expiry point's effects: all task
// activations, in order, then all event settings, in order (task
// activations are always processed before events).
func (k *Kernel) doScheduleTableActions(t *ScheduleTable, epid int) {
	ep := &t.cfg.ExpiryPoints[epid]
	for _, task := range ep.Activations {
		k.ActivateTask(task)
	}
	for _, ev := range ep.Events {
		k.SetEvent(ev.Task, ev.Mask)
	}
}

// adjustScheduleTable applies one step of explicit-sync correction: bring
// the next expiry point forward or back by up to that point's
// max_shorten/max_lengthen, shrinking the outstanding deviation, and
// updates status between TableRunning and TableRunningAndSync accordingly.
func (k *Kernel) adjustScheduleTable(t *ScheduleTable) {
	if !t.syncing {
		return
	}
	if t.deviation == 0 {
		t.status = TableRunningAndSync
		return
	}

	var adj Tick
	if !t.deviationNeg {
		adj = min(t.deviation, t.cfg.ExpiryPoints[t.nextExp].MaxLengthen)
		k.incTableNextTick(t, adj)
	} else {
		adj = min(t.deviation, t.cfg.ExpiryPoints[t.nextExp].MaxShorten)
		k.decTableNextTick(t, adj)
	}
	t.deviation -= adj

	if t.deviation > t.cfg.Precision {
		t.status = TableRunning
	} else {
		t.status = TableRunningAndSync
	}
}

// processScheduleTable is called once per counter tick for every table
// driven by that counter. It checks whether t's next_tick has arrived
// (the same OVF-aware comparison as checkAlarms) and, if so, hands off to
// handleScheduleTableExpiry.
func (k *Kernel) processScheduleTable(t *ScheduleTable) {
	counter := &k.counters[t.cfg.Counter]
	max := counter.cfg.MaxAllowedValue
	tpb := counter.cfg.TicksPerBase

	if counter.ovf == t.ovf {
		if counter.count < t.nextTick {
			return
		}
	} else if max-t.nextTick+counter.count+1 >= tpb {
		return
	}

	k.handleScheduleTableExpiry(t)
}

// handleScheduleTableExpiry processes whichever of the three events is
// due for t: an ordinary expiry point, the end of the initial waiting
// period, or the end of the final delay. It recurses when advancing t (or
// switching to its linked successor) leaves a new event immediately due,
// without re-checking next_tick, since the recomputed state is by
// construction already current.
func (k *Kernel) handleScheduleTableExpiry(t *ScheduleTable) {
	epid := t.nextExp
	if epid != noExpiry {
		k.doScheduleTableActions(t, epid)

		if epid+1 < len(t.cfg.ExpiryPoints) {
			k.incTableNextTick(t, t.cfg.ExpiryPoints[epid+1].Offset-t.cfg.ExpiryPoints[epid].Offset)
			t.nextExp++
			k.adjustScheduleTable(t)
			return
		}

		if t.delay != 0 {
			t.delaying = true
			k.incTableNextTick(t, t.delay)
			t.nextExp = noExpiry
			return
		}

		if next := k.removeScheduleTable(t); next != nil {
			k.handleScheduleTableExpiry(next)
		}
		return
	}

	if !t.processing {
		k.startTable(t, t.status, false)
		k.adjustScheduleTable(t)
		return
	}

	if t.delaying {
		t.delaying = false
		if t.toTbl != noTable || !t.cfg.Repeating {
			if next := k.removeScheduleTable(t); next != nil {
				k.handleScheduleTableExpiry(next)
			}
			return
		}
		if t.cfg.ExpiryPoints[0].Offset == 0 {
			t.nextExp = 0
			k.handleScheduleTableExpiry(t)
			return
		}
		k.startTable(t, t.status, false)
		k.adjustScheduleTable(t)
	}
}

// checkScheduleTables processes every table driven by c, in list order,
// saving each node's next link before processing since processing may
// unlink and replace it.
func (k *Kernel) checkScheduleTables(c *Counter) {
	cur := c.tableHead
	for cur != noTable {
		next := k.tables[cur].next
		k.processScheduleTable(&k.tables[cur])
		cur = next
	}
}

// StartScheduleTableRel starts t running, its first expiry point due
// offset ticks from now. Fails with E_OS_STATE if t is not TableStopped, or
// (extended builds) E_OS_VALUE if offset is zero or would place the first
// expiry point beyond the counter's range, or E_OS_ID if t uses implicit
// synchronization.
func (k *Kernel) StartScheduleTableRel(id TableID, offset Tick) StatusType {
	t, status := k.tableRef(id)
	if status != E_OK {
		return k.fail(ServiceStartScheduleTableRel, status, int32(id))
	}
	counter := &k.counters[t.cfg.Counter]
	if k.opts.extended {
		if offset == 0 || (counter.cfg.MaxAllowedValue-t.cfg.ExpiryPoints[0].Offset) < offset {
			return k.fail(ServiceStartScheduleTableRel, E_OS_VALUE, int32(id))
		}
		if t.cfg.Sync == SyncImplicit {
			return k.fail(ServiceStartScheduleTableRel, E_OS_ID, int32(id))
		}
	}
	if t.status != TableStopped {
		return k.fail(ServiceStartScheduleTableRel, E_OS_STATE, int32(id))
	}

	k.updateTableNextTick(t, offset)
	t.status = TableRunning
	initTable(t)
	if t.cfg.ExpiryPoints[0].Offset == 0 {
		t.processing = true
		t.nextExp = 0
	}
	k.linkTable(t, counter)
	return E_OK
}

// StartScheduleTableAbs starts t running, its first expiry point due when
// its counter next reaches start (which may be later this epoch or, if
// start has already elapsed, next epoch). Implicitly-synchronized tables
// must start at 0.
func (k *Kernel) StartScheduleTableAbs(id TableID, start Tick) StatusType {
	t, status := k.tableRef(id)
	if status != E_OK {
		return k.fail(ServiceStartScheduleTableAbs, status, int32(id))
	}
	counter := &k.counters[t.cfg.Counter]
	if k.opts.extended && start > counter.cfg.MaxAllowedValue {
		return k.fail(ServiceStartScheduleTableAbs, E_OS_VALUE, int32(id))
	}
	if t.status != TableStopped {
		return k.fail(ServiceStartScheduleTableAbs, E_OS_STATE, int32(id))
	}

	k.setTableNextTick(t, start)
	if t.cfg.Sync == SyncImplicit {
		t.status = TableRunningAndSync
	} else {
		t.status = TableRunning
	}
	initTable(t)
	if t.cfg.ExpiryPoints[0].Offset == 0 {
		t.processing = true
		t.nextExp = 0
	}
	k.linkTable(t, counter)
	return E_OK
}

// StopScheduleTable stops t immediately. A table in TableNext status is
// detached from its predecessor instead of unlinked from the counter
// queue (it was never linked); a table with its own linked successor
// stops that successor too.
func (k *Kernel) StopScheduleTable(id TableID) StatusType {
	t, status := k.tableRef(id)
	if status != E_OK {
		return k.fail(ServiceStopScheduleTable, status, int32(id))
	}
	if t.status == TableStopped {
		return k.fail(ServiceStopScheduleTable, E_OS_NOFUNC, int32(id))
	}
	if t.status == TableWaiting {
		t.status = TableStopped
		return E_OK
	}
	if t.status == TableNext {
		t.status = TableStopped
		k.tables[t.fromTbl].toTbl = noTable
		return E_OK
	}

	t.status = TableStopped
	k.unlinkTable(t)
	if t.toTbl != noTable {
		k.tables[t.toTbl].status = TableStopped
	}
	return E_OK
}

// NextScheduleTable links from so that, when it finishes, to starts
// immediately in its place. Both tables must share a counter and
// synchronization strategy (checked in extended builds). It fails with
// E_OS_NOFUNC if from is TableStopped or to is already TableNext, and with
// E_OS_STATE if to is otherwise not TableStopped. A successor previously
// linked to from is displaced and stopped.
func (k *Kernel) NextScheduleTable(from, to TableID) StatusType {
	fromTbl, status := k.tableRef(from)
	if status != E_OK {
		return k.fail(ServiceNextScheduleTable, status, int32(from))
	}
	toTbl, status := k.tableRef(to)
	if status != E_OK {
		return k.fail(ServiceNextScheduleTable, status, int32(to))
	}
	if k.opts.extended {
		if fromTbl.cfg.Counter != toTbl.cfg.Counter {
			return k.fail(ServiceNextScheduleTable, E_OS_ID, int32(from))
		}
		if fromTbl.cfg.Sync != toTbl.cfg.Sync {
			return k.fail(ServiceNextScheduleTable, E_OS_ID, int32(from))
		}
	}
	if fromTbl.status == TableStopped || toTbl.status == TableNext {
		return k.fail(ServiceNextScheduleTable, E_OS_NOFUNC, int32(from))
	}
	if toTbl.status != TableStopped {
		return k.fail(ServiceNextScheduleTable, E_OS_STATE, int32(to))
	}

	if fromTbl.toTbl != noTable {
		k.tables[fromTbl.toTbl].status = TableStopped
	}

	initTable(toTbl)
	fromTbl.toTbl = to
	toTbl.fromTbl = from
	toTbl.status = TableNext
	return E_OK
}

// StartScheduleTableSynchron parks t in TableWaiting status until the first
// SyncScheduleTable call supplies a reference position; only valid for
// explicitly-synchronized tables.
func (k *Kernel) StartScheduleTableSynchron(id TableID) StatusType {
	t, status := k.tableRef(id)
	if status != E_OK {
		return k.fail(ServiceStartScheduleTableSynchron, status, int32(id))
	}
	if k.opts.extended && t.cfg.Sync != SyncExplicit {
		return k.fail(ServiceStartScheduleTableSynchron, E_OS_ID, int32(id))
	}
	if t.status != TableStopped {
		return k.fail(ServiceStartScheduleTableSynchron, E_OS_STATE, int32(id))
	}

	t.status = TableWaiting
	initTable(t)
	return E_OK
}

// SyncScheduleTable supplies value, the driver's current position on t's
// duration, computing (or establishing, for a TableWaiting table) t's
// deviation from its expected position and updating status between
// TableRunning and TableRunningAndSync.
//
// The "position on table" computation has two branches depending on
// whether t is mid-delay (initial wait or final delay) or actively
// between expiry points — preserved exactly as specified rather than
// unified, since the two cases measure position from different anchors
//.
func (k *Kernel) SyncScheduleTable(id TableID, value Tick) StatusType {
	t, status := k.tableRef(id)
	if status != E_OK {
		return k.fail(ServiceSyncScheduleTable, status, int32(id))
	}
	counter := &k.counters[t.cfg.Counter]
	if k.opts.extended {
		if t.cfg.Sync != SyncExplicit {
			return k.fail(ServiceSyncScheduleTable, E_OS_ID, int32(id))
		}
		if value >= t.cfg.Duration {
			return k.fail(ServiceSyncScheduleTable, E_OS_VALUE, int32(id))
		}
	}
	if t.status == TableStopped || t.status == TableNext {
		return k.fail(ServiceSyncScheduleTable, E_OS_STATE, int32(id))
	}

	t.syncing = true

	if t.status == TableWaiting {
		k.updateTableNextTick(t, t.cfg.Duration-value)
		t.status = TableRunningAndSync
		if t.cfg.ExpiryPoints[0].Offset == 0 {
			t.processing = true
			t.nextExp = 0
		}
		k.linkTable(t, counter)
		return E_OK
	}

	var posOnTable Tick
	if !t.processing || t.delaying {
		posOnTable = t.cfg.Duration - (t.nextTick - counter.count)
	} else {
		posOnTable = t.cfg.ExpiryPoints[t.nextExp].Offset - (t.nextTick - counter.count)
	}

	if posOnTable >= value {
		diff := posOnTable - value
		diffOvf := t.cfg.Duration - posOnTable + value
		if diff > diffOvf {
			t.deviation = diffOvf
			t.deviationNeg = false
		} else {
			t.deviation = diff
			t.deviationNeg = true
		}
	} else {
		diff := value - posOnTable
		diffOvf := t.cfg.Duration - value + posOnTable
		if diff > diffOvf {
			t.deviation = diffOvf
			t.deviationNeg = false
		} else {
			t.deviation = diff
			t.deviationNeg = true
		}
	}

	if t.deviation > t.cfg.Precision {
		t.status = TableRunning
	} else {
		t.status = TableRunningAndSync
	}
	return E_OK
}

// SetScheduleTableAsync abandons synchronization on t, returning it to
// plain TableRunning status.
func (k *Kernel) SetScheduleTableAsync(id TableID) StatusType {
	t, status := k.tableRef(id)
	if status != E_OK {
		return k.fail(ServiceSetScheduleTableAsync, status, int32(id))
	}
	if k.opts.extended && t.cfg.Sync != SyncExplicit {
		return k.fail(ServiceSetScheduleTableAsync, E_OS_ID, int32(id))
	}
	if t.status == TableStopped || t.status == TableNext || t.status == TableWaiting {
		return k.fail(ServiceSetScheduleTableAsync, E_OS_STATE, int32(id))
	}

	t.status = TableRunning
	t.deviation = 0
	t.deviationNeg = false
	t.syncing = false
	return E_OK
}

// GetScheduleTableStatus returns t's current status.
func (k *Kernel) GetScheduleTableStatus(id TableID) (ScheduleTableStatus, StatusType) {
	t, status := k.tableRef(id)
	if status != E_OK {
		return 0, k.fail(ServiceGetScheduleTableStatus, status, int32(id))
	}
	return t.status, E_OK
}
