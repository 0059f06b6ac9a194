package kernel

import "testing"

// These tests exercise six concrete end-to-end scenarios, numbered to
// match the order they're introduced below. Each is driven directly
// against the kernel (fakeArch records switches but never runs a task
// body), so task "execution" between service calls is simulated by the
// test itself calling the next service the task would have called.

// 1. Priority inversion prevented (IPCP). A(1) holds R(ceiling 3); C(3)
// becomes ready but cannot preempt A at its raised priority. Releasing R
// reveals C, which runs to completion, then B(2), then A resumes and
// finishes.
func TestScenario1_PriorityInversionPrevented(t *testing.T) {
	cfg := Config{
		MaxPriority: 3,
		Tasks: []TaskConfig{
			{Entry: func() {}, Priority: 0, MaxActivations: 1}, // idle
			{Entry: func() {}, Priority: 1, MaxActivations: 1}, // A
			{Entry: func() {}, Priority: 2, MaxActivations: 1}, // B
			{Entry: func() {}, Priority: 3, MaxActivations: 1}, // C
		},
		Resources: []ResourceConfig{{Ceiling: 3}},
	}
	k, _ := newTestKernel(t, cfg)

	k.ActivateTaskPreempt(1) // A starts running
	if status := k.GetResource(0); status != E_OK {
		t.Fatalf("GetResource: %v", status)
	}
	if k.tasks[1].priority != 3 {
		t.Fatalf("want A raised to the resource's ceiling 3, got %d", k.tasks[1].priority)
	}

	k.ActivateTaskPreempt(3) // C ready, but 3 is not strictly above A's ceiling 3
	if k.running != 1 {
		t.Fatalf("want A still running (C cannot preempt at equal priority), got %v", k.running)
	}
	k.ActivateTaskPreempt(2) // B ready, priority 2 < 3
	if k.running != 1 {
		t.Fatalf("want A still running, got %v", k.running)
	}

	if status := k.ReleaseResourcePreempt(0); status != E_OK {
		t.Fatalf("ReleaseResourcePreempt: %v", status)
	}
	if k.running != 3 {
		t.Fatalf("want C dispatched once A drops back to priority 1, got %v", k.running)
	}

	k.TerminateTask() // C finishes
	if k.running != 2 {
		t.Fatalf("want B dispatched next, got %v", k.running)
	}

	k.TerminateTask() // B finishes
	if k.running != 1 {
		t.Fatalf("want A resumed, got %v", k.running)
	}

	k.TerminateTask() // A finishes
	if k.running != IdleTaskID {
		t.Fatalf("want idle once everything has terminated, got %v", k.running)
	}
}

// 2. Multi-activation FIFO. T(prio 5, max_activations 3) is running;
// activating it twice more queues two further instances, each run in
// order on successive TerminateTask calls. A fourth activation while
// three are already pending fails with E_OS_LIMIT.
func TestScenario2_MultiActivationFIFO(t *testing.T) {
	cfg := Config{
		MaxPriority: 5,
		Extended:    true,
		Tasks: []TaskConfig{
			{Entry: func() {}, Priority: 0, MaxActivations: 1}, // idle
			{Entry: func() {}, Priority: 5, MaxActivations: 3}, // T
		},
	}
	k, _ := newTestKernel(t, cfg)

	k.ActivateTaskPreempt(1) // T's first instance running; act == 1
	if status := k.ActivateTask(1); status != E_OK {
		t.Fatalf("ActivateTask (2nd): %v", status)
	}
	if status := k.ActivateTask(1); status != E_OK {
		t.Fatalf("ActivateTask (3rd): %v", status)
	}
	if k.tasks[1].act != 3 {
		t.Fatalf("want 3 pending activations, got %d", k.tasks[1].act)
	}
	if status := k.ActivateTask(1); status != E_OS_LIMIT {
		t.Fatalf("want a 4th activation to fail with E_OS_LIMIT, got %v", status)
	}

	// With nothing else ready, TerminateTask's internal dispatchNext
	// redispatches T straight back to Running for each pending instance.
	k.TerminateTask() // first instance ends, second begins
	if k.running != 1 || k.tasks[1].act != 2 {
		t.Fatalf("want T running with act==2 (second instance), got running=%v act=%d", k.running, k.tasks[1].act)
	}
	k.TerminateTask() // second instance ends, third begins
	if k.running != 1 || k.tasks[1].act != 1 {
		t.Fatalf("want T running with act==1 (third instance), got running=%v act=%d", k.running, k.tasks[1].act)
	}
	k.TerminateTask() // third instance ends, nothing pending
	if k.running != IdleTaskID {
		t.Fatalf("want idle once all three instances have run, got %v", k.running)
	}
	if state, _ := k.GetTaskState(1); state != Suspended {
		t.Fatalf("want T Suspended, got %v", state)
	}
}

// 3. Alarm wrap. Counter max=1000, starting at count 990, ticksperbase 1.
// SetRelAlarm(inc=20) is due at count 1010 mod 1001 == 9... the
// implementation's epoch arithmetic places it at count 9
// after the wrap; twenty increments fire it exactly once.
func TestScenario3_AlarmWrap(t *testing.T) {
	cfg := Config{
		MaxPriority: 1,
		Tasks: []TaskConfig{
			{Entry: func() {}, Priority: 0, MaxActivations: 1}, // idle
			{Entry: func() {}, Priority: 1, MaxActivations: 5},
		},
		Counters: []CounterConfig{
			{MaxAllowedValue: 1000, TicksPerBase: 1, MinCycle: 1},
		},
		Alarms: []AlarmConfig{
			{Counter: 0, Action: AlarmActivateTask, Task: 1},
		},
	}
	k, _ := newTestKernel(t, cfg)
	k.counters[0].count = 990

	if status := k.SetRelAlarm(0, 20, 0); status != E_OK {
		t.Fatalf("SetRelAlarm: %v", status)
	}

	fires := 0
	for i := 0; i < 20; i++ {
		k.IncrementCounter(0)
		if state, _ := k.GetTaskState(1); state != Suspended {
			fires++
			k.TerminateTask()
		}
	}
	if fires != 1 {
		t.Fatalf("want the wrapped alarm to fire exactly once across 20 ticks, got %d", fires)
	}
	if k.counters[0].count != 9 {
		t.Fatalf("want count to have wrapped to 9 (990+20-1001), got %d", k.counters[0].count)
	}
}

// 4. Event wake. Extended task E awaits mask 0x0A; an ISR sets bit 0x08,
// which is enough to satisfy the wait and ready E. The trailing
// preemption check (as a Cat2 ISR would perform) dispatches E, and
// clearing 0x08 from inside E leaves its current event mask at 0.
func TestScenario4_EventWake(t *testing.T) {
	cfg := Config{
		MaxPriority: 1,
		Tasks: []TaskConfig{
			{Entry: func() {}, Priority: 0, MaxActivations: 1}, // idle
			{Entry: func() {}, Priority: 1, MaxActivations: 1, Extended: true},
		},
	}
	k, _ := newTestKernel(t, cfg)

	k.dispatch(1, dispatchBlock)
	k.WaitEvent(0x0A)
	if state, _ := k.GetTaskState(1); state != Waiting {
		t.Fatalf("want E Waiting on mask 0x0A, got %v", state)
	}
	if k.running != IdleTaskID {
		t.Fatalf("want idle running while E blocks, got %v", k.running)
	}

	k.RunISR(ISRHandle{
		Category: Cat2,
		Handler: func() {
			k.SetEvent(1, 0x08)
		},
	})
	if k.running != 1 {
		t.Fatalf("want E dispatched by the ISR's trailing preemption check, got %v", k.running)
	}
	if state, _ := k.GetTaskState(1); state != Running {
		t.Fatalf("want E Running, got %v", state)
	}

	k.ClearEvent(0x08)
	mask, status := k.GetEvent(1)
	if status != E_OK {
		t.Fatalf("GetEvent: %v", status)
	}
	if mask != 0 {
		t.Fatalf("want current event mask 0 after clearing the only set bit, got %#x", mask)
	}
}

// 5. Schedule-table chaining. T1 has expiry points at offsets {0, 50,
// 100} with duration 150, non-repeating, linked via NextScheduleTable to
// T2 (offset {0}, duration 50). Each of T1's three points fires in turn,
// then T1's exhaustion hands off to T2 within the same tick (count 150),
// and T2 stops fifty ticks later.
func TestScenario5_ScheduleTableChaining(t *testing.T) {
	cfg := Config{
		MaxPriority: 1,
		Tasks: []TaskConfig{
			{Entry: func() {}, Priority: 0, MaxActivations: 1}, // idle
			{Entry: func() {}, Priority: 1, MaxActivations: 10},
			{Entry: func() {}, Priority: 1, MaxActivations: 10},
		},
		Counters: []CounterConfig{
			{MaxAllowedValue: 999, TicksPerBase: 1, MinCycle: 1},
		},
		Tables: []ScheduleTableConfig{
			{
				Counter: 0,
				ExpiryPoints: []ExpiryPointConfig{
					{Offset: 0, Activations: []TaskID{1}},
					{Offset: 50, Activations: []TaskID{1}},
					{Offset: 100, Activations: []TaskID{1}},
				},
				Duration: 150,
			},
			{
				Counter:      0,
				ExpiryPoints: []ExpiryPointConfig{{Offset: 0, Activations: []TaskID{2}}},
				Duration:     50,
			},
		},
	}
	k, _ := newTestKernel(t, cfg)

	if status := k.StartScheduleTableRel(0, 0); status != E_OK {
		t.Fatalf("StartScheduleTableRel: %v", status)
	}
	if status := k.NextScheduleTable(0, 1); status != E_OK {
		t.Fatalf("NextScheduleTable: %v", status)
	}

	for i := 0; i < 150; i++ {
		k.IncrementCounter(0)
	}
	if got := k.tasks[1].act; got != 3 {
		t.Fatalf("want T1's three expiry points all fired by count 150, got %d activations", got)
	}
	if got := k.tasks[2].act; got != 1 {
		t.Fatalf("want T2's expiry point fired the same tick T1 hands off, got %d activations", got)
	}
	if status, _ := k.GetScheduleTableStatus(0); status != TableStopped {
		t.Fatalf("want T1 stopped once it has handed off, got %v", status)
	}
	if status, _ := k.GetScheduleTableStatus(1); status != TableRunning {
		t.Fatalf("want T2 still running its own final delay at count 150, got %v", status)
	}

	for i := 0; i < 50; i++ {
		k.IncrementCounter(0)
	}
	if status, _ := k.GetScheduleTableStatus(1); status != TableStopped {
		t.Fatalf("want T2 stopped fifty ticks after it took over (count 200), got %v", status)
	}
}

// 6. Explicit sync. T has duration 1000, precision 5, two expiry points
// (500, then 510 carrying max_shorten/max_lengthen 20) and explicit sync.
// SyncScheduleTable(T, 515) while the engine's own position is 500
// computes a deviation of 15, negative (behind); status stays TableRunning
// since 15 exceeds the precision. Advancing past the first expiry point
// consumes the deviation via the shorten path, leaving status
// TableRunningAndSync.
func TestScenario6_ExplicitSync(t *testing.T) {
	cfg := Config{
		MaxPriority: 1,
		Tasks: []TaskConfig{
			{Entry: func() {}, Priority: 0, MaxActivations: 1}, // idle
			{Entry: func() {}, Priority: 1, MaxActivations: 5},
		},
		Counters: []CounterConfig{
			{MaxAllowedValue: 9999, TicksPerBase: 1, MinCycle: 1},
		},
		Tables: []ScheduleTableConfig{{
			Counter: 0,
			Sync:    SyncExplicit,
			ExpiryPoints: []ExpiryPointConfig{
				{Offset: 500, Activations: []TaskID{1}},
				{Offset: 510, Activations: []TaskID{1}, MaxShorten: 20, MaxLengthen: 20},
			},
			Duration:  1000,
			Precision: 5,
		}},
	}
	k, _ := newTestKernel(t, cfg)

	if status := k.StartScheduleTableRel(0, 0); status != E_OK {
		t.Fatalf("StartScheduleTableRel: %v", status)
	}

	// Put the table at the exact position the scenario describes: past
	// its initial wait, positioned on its first expiry point, with the
	// counter and next_tick both at 500 (posOnTable == 500).
	tbl := &k.tables[0]
	tbl.processing = true
	tbl.nextExp = 0
	k.counters[0].count = 500
	tbl.nextTick = 500
	tbl.ovf = k.counters[0].ovf

	if status := k.SyncScheduleTable(0, 515); status != E_OK {
		t.Fatalf("SyncScheduleTable: %v", status)
	}
	if tbl.deviation != 15 || !tbl.deviationNeg {
		t.Fatalf("want deviation 15 (negative), got %d negative=%v", tbl.deviation, tbl.deviationNeg)
	}
	if tbl.status != TableRunning {
		t.Fatalf("want TableRunning while the deviation (15) exceeds precision (5), got %v", tbl.status)
	}

	k.handleScheduleTableExpiry(tbl) // the first expiry point is now due
	if got := k.tasks[1].act; got != 1 {
		t.Fatalf("want the first expiry point's activation to have run, got %d", got)
	}
	if tbl.nextExp != 1 {
		t.Fatalf("want the table advanced to its second expiry point, got nextExp=%d", tbl.nextExp)
	}
	if tbl.deviation != 0 {
		t.Fatalf("want the full 15-tick deviation consumed by the shorten (max_shorten 20 covers it), got %d", tbl.deviation)
	}
	if tbl.status != TableRunningAndSync {
		t.Fatalf("want TableRunningAndSync once the deviation is fully absorbed, got %v", tbl.status)
	}
}
