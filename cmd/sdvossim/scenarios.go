package main

import (
	"fmt"

	"github.com/sdvos-go/kernel"
)

// trace collects one line per observed event, in order, so a scenario can
// assert on interleaving rather than just final state.
type trace struct {
	lines []string
}

func (t *trace) log(format string, args ...any) {
	t.lines = append(t.lines, fmt.Sprintf(format, args...))
}

// kernelBox lets a scenario's task entry closures reach the *kernel.Kernel
// that will run them, even though Config (and the entries it embeds) must
// be built before kernel.New exists to hand one back. The caller fills
// Box.K immediately after New returns, before StartOS.
type kernelBox struct {
	K *kernel.Kernel
}

// scenario bundles a demo Config builder with the assertion that checks
// its trace once the driving loop is done.
type scenario struct {
	name        string
	description string
	build       func(tr *trace, box *kernelBox) (kernel.Config, map[kernel.TaskID]func(), int)
	// setup runs once box.K is live but before StartOS, for wiring that
	// has no place in a declarative Config (e.g. NextScheduleTable).
	setup func(box *kernelBox)
	ticks int
	check func(tr *trace) error
}

var scenarios = []scenario{
	priorityInversionScenario(),
	multiActivationScenario(),
	alarmWrapScenario(),
	eventWakeScenario(),
	tableChainScenario(),
	explicitSyncScenario(),
}

func findScenario(name string) (scenario, bool) {
	for _, s := range scenarios {
		if s.name == name {
			return s, true
		}
	}
	return scenario{}, false
}

// idleTaskConfig is the reserved TaskID 0 every demo Config needs.
func idleTaskConfig() kernel.TaskConfig {
	return kernel.TaskConfig{Entry: func() {}, Priority: 0, MaxActivations: 1}
}

// priorityInversionScenario demonstrates the Immediate Priority Ceiling
// Protocol: a low-priority task holds a resource shared with a
// high-priority task; a medium-priority task that wants neither must not
// be able to run in between, because the low task's priority was raised
// to the resource's ceiling the instant it acquired it.
func priorityInversionScenario() scenario {
	return scenario{
		name:        "priority-inversion",
		description: "low task holds a shared resource; a medium task ready at the same time must not preempt it (IPCP)",
		ticks:       0,
		build: func(tr *trace, box *kernelBox) (kernel.Config, map[kernel.TaskID]func(), int) {
			const (
				idTaskLow kernel.TaskID = 1 + iota
				idTaskMed
				idTaskHigh
			)
			const resShared kernel.ResourceID = 1

			entries := map[kernel.TaskID]func(){}

			entries[idTaskLow] = func() {
				k := box.K
				tr.log("low: acquiring resource")
				k.GetResource(resShared)
				tr.log("low: holding resource")
				k.ActivateTaskPreempt(idTaskMed)
				tr.log("low: medium did not preempt while resource held")
				k.ActivateTaskPreempt(idTaskHigh)
				tr.log("low: releasing resource")
				k.ReleaseResourcePreempt(resShared)
				tr.log("low: done")
			}
			entries[idTaskMed] = func() {
				tr.log("medium: running")
			}
			entries[idTaskHigh] = func() {
				k := box.K
				tr.log("high: acquiring resource")
				k.GetResource(resShared)
				tr.log("high: running with resource")
				k.ReleaseResourcePreempt(resShared)
				tr.log("high: done")
			}

			cfg := kernel.Config{
				MaxPriority: 3,
				Tasks: []kernel.TaskConfig{
					idleTaskConfig(),
					{Entry: entries[idTaskLow], Priority: 1, MaxActivations: 1},
					{Entry: entries[idTaskMed], Priority: 2, MaxActivations: 1},
					{Entry: entries[idTaskHigh], Priority: 3, MaxActivations: 1},
				},
				Resources: []kernel.ResourceConfig{
					{}, // RES_SCHEDULER
					{Ceiling: 3},
				},
				Modes: []kernel.AppMode{
					{Name: "normal", AutoStartTasks: []kernel.TaskID{idTaskLow}},
				},
			}
			return cfg, entries, 0
		},
		check: func(tr *trace) error {
			want := []string{
				"low: acquiring resource",
				"low: holding resource",
				"low: medium did not preempt while resource held",
				"low: releasing resource",
				"high: acquiring resource",
				"high: running with resource",
				"high: done",
				"medium: running",
				"low: done",
			}
			return compareTrace(tr, want)
		},
	}
}

// multiActivationScenario checks that repeated ActivateTask calls queue
// rather than interleave: a basic task activated twice before it first
// runs executes its full body twice, FIFO.
func multiActivationScenario() scenario {
	return scenario{
		name:        "multi-activation",
		description: "a basic task activated twice before running once executes its body twice, in order",
		build: func(tr *trace, box *kernelBox) (kernel.Config, map[kernel.TaskID]func(), int) {
			const idTask kernel.TaskID = 1
			run := 0
			entries := map[kernel.TaskID]func(){
				idTask: func() {
					run++
					tr.log("task: run %d", run)
				},
			}
			cfg := kernel.Config{
				MaxPriority: 1,
				Tasks: []kernel.TaskConfig{
					idleTaskConfig(),
					{Entry: entries[idTask], Priority: 1, MaxActivations: 2},
				},
				Resources: []kernel.ResourceConfig{{}},
				Modes: []kernel.AppMode{
					{Name: "normal", AutoStartTasks: []kernel.TaskID{idTask, idTask}},
				},
			}
			return cfg, entries, 0
		},
		check: func(tr *trace) error {
			return compareTrace(tr, []string{"task: run 1", "task: run 2"})
		},
	}
}

// alarmWrapScenario drives a counter past its MaxAllowedValue and checks
// a cyclic alarm still fires on schedule across the OVF-bit epoch flip.
func alarmWrapScenario() scenario {
	const counterMax = kernel.Tick(9)
	return scenario{
		name:        "alarm-wrap",
		description: "a cyclic alarm keeps firing on schedule as its counter wraps past MaxAllowedValue",
		ticks:       25,
		build: func(tr *trace, box *kernelBox) (kernel.Config, map[kernel.TaskID]func(), int) {
			const idTask kernel.TaskID = 1
			const idCounter kernel.CounterID = 0
			const idAlarm kernel.AlarmID = 0
			fires := 0
			entries := map[kernel.TaskID]func(){
				idTask: func() {
					fires++
					tr.log("alarm fired: #%d", fires)
				},
			}
			cfg := kernel.Config{
				MaxPriority: 1,
				Tasks: []kernel.TaskConfig{
					idleTaskConfig(),
					{Entry: entries[idTask], Priority: 1, MaxActivations: 5},
				},
				Resources: []kernel.ResourceConfig{{}},
				Counters: []kernel.CounterConfig{
					{MaxAllowedValue: counterMax, TicksPerBase: 1, MinCycle: 1},
				},
				Alarms: []kernel.AlarmConfig{
					{Counter: idCounter, Action: kernel.AlarmActivateTask, Task: idTask},
				},
				Modes: []kernel.AppMode{
					{Name: "normal", AutoStartAlarms: []kernel.AlarmAutoStart{
						{Alarm: idAlarm, Value: 4, Cycle: 4},
					}},
				},
			}
			return cfg, entries, int(idCounter)
		},
		check: func(tr *trace) error {
			// 25 ticks, period 4, first fire at tick 4: fires at 4, 8, 12, 16, 20, 24 = 6 fires.
			return compareTrace(tr, []string{
				"alarm fired: #1", "alarm fired: #2", "alarm fired: #3",
				"alarm fired: #4", "alarm fired: #5", "alarm fired: #6",
			})
		},
	}
}

// eventWakeScenario parks an extended task in WaitEvent and checks it
// only resumes once the event it is actually waiting for is set.
func eventWakeScenario() scenario {
	return scenario{
		name:        "event-wake",
		description: "an extended task blocked in WaitEvent resumes only once the awaited event is set",
		build: func(tr *trace, box *kernelBox) (kernel.Config, map[kernel.TaskID]func(), int) {
			const idWaiter kernel.TaskID = 1
			const idSetter kernel.TaskID = 2
			const evWanted kernel.EventMask = 1 << 0
			const evOther kernel.EventMask = 1 << 1

			entries := map[kernel.TaskID]func(){}

			entries[idWaiter] = func() {
				tr.log("waiter: waiting")
				box.K.WaitEvent(evWanted)
				tr.log("waiter: woke up")
			}
			entries[idSetter] = func() {
				k := box.K
				tr.log("setter: setting unrelated event")
				k.SetEventPreempt(idWaiter, evOther)
				tr.log("setter: setting awaited event")
				k.SetEventPreempt(idWaiter, evWanted)
				tr.log("setter: done")
			}

			cfg := kernel.Config{
				MaxPriority: 2,
				Tasks: []kernel.TaskConfig{
					idleTaskConfig(),
					{Entry: entries[idWaiter], Priority: 2, MaxActivations: 1, Extended: true, Events: evWanted | evOther},
					{Entry: entries[idSetter], Priority: 1, MaxActivations: 1},
				},
				Resources: []kernel.ResourceConfig{{}},
				Modes: []kernel.AppMode{
					{Name: "normal", AutoStartTasks: []kernel.TaskID{idWaiter, idSetter}},
				},
			}
			return cfg, entries, 0
		},
		check: func(tr *trace) error {
			want := []string{
				"waiter: waiting",
				"setter: setting unrelated event",
				"setter: setting awaited event",
				"waiter: woke up",
				"setter: done",
			}
			return compareTrace(tr, want)
		},
	}
}

// tableChainScenario starts a short schedule table that chains into a
// second one via NextScheduleTable, and checks both tables' activations
// fire in the right tick order.
func tableChainScenario() scenario {
	const idTableFirst kernel.TableID = 0
	const idTableSecond kernel.TableID = 1
	return scenario{
		name:        "table-chain",
		description: "a schedule table hands off to its successor via NextScheduleTable mid-run",
		ticks:       10,
		build: func(tr *trace, box *kernelBox) (kernel.Config, map[kernel.TaskID]func(), int) {
			const idTaskA kernel.TaskID = 1
			const idTaskB kernel.TaskID = 2
			const idCounter kernel.CounterID = 0

			entries := map[kernel.TaskID]func(){
				idTaskA: func() { tr.log("table first: activation") },
				idTaskB: func() { tr.log("table second: activation") },
			}

			cfg := kernel.Config{
				MaxPriority: 2,
				Tasks: []kernel.TaskConfig{
					idleTaskConfig(),
					{Entry: entries[idTaskA], Priority: 1, MaxActivations: 5},
					{Entry: entries[idTaskB], Priority: 2, MaxActivations: 5},
				},
				Resources: []kernel.ResourceConfig{{}},
				Counters: []kernel.CounterConfig{
					{MaxAllowedValue: 999, TicksPerBase: 1, MinCycle: 1},
				},
				Tables: []kernel.ScheduleTableConfig{
					{
						Counter: idCounter,
						ExpiryPoints: []kernel.ExpiryPointConfig{
							{Offset: 1, Activations: []kernel.TaskID{idTaskA}},
							{Offset: 3, Activations: []kernel.TaskID{idTaskA}},
						},
						Duration: 5,
					},
					{
						Counter: idCounter,
						ExpiryPoints: []kernel.ExpiryPointConfig{
							{Offset: 1, Activations: []kernel.TaskID{idTaskB}},
						},
						Duration: 3,
					},
				},
				Modes: []kernel.AppMode{{Name: "normal"}},
			}
			return cfg, entries, int(idCounter)
		},
		setup: func(box *kernelBox) {
			// Starts the first table and links the second to it, so the
			// first's exhaustion at tick 5 hands off to the second rather
			// than simply stopping. NextScheduleTable rejects a stopped
			// predecessor, so the start happens here, before the link.
			box.K.StartScheduleTableRel(idTableFirst, 0)
			box.K.NextScheduleTable(idTableFirst, idTableSecond)
		},
		check: func(tr *trace) error {
			want := []string{"table first: activation", "table first: activation", "table second: activation"}
			return compareTrace(tr, want)
		},
	}
}

// explicitSyncScenario starts a repeating explicit-sync table and checks
// that it keeps firing its activation each cycle. The scenario makes no
// SyncScheduleTable call, so the table runs unsynchronized throughout.
func explicitSyncScenario() scenario {
	return scenario{
		name:        "explicit-sync",
		description: "a repeating explicit-sync table keeps firing its activation each cycle (no SyncScheduleTable call is made)",
		ticks:       8,
		build: func(tr *trace, box *kernelBox) (kernel.Config, map[kernel.TaskID]func(), int) {
			const idTask kernel.TaskID = 1
			const idCounter kernel.CounterID = 0
			const idTable kernel.TableID = 0

			entries := map[kernel.TaskID]func(){
				idTask: func() { tr.log("sync table: activation") },
			}

			cfg := kernel.Config{
				MaxPriority: 1,
				Tasks: []kernel.TaskConfig{
					idleTaskConfig(),
					{Entry: entries[idTask], Priority: 1, MaxActivations: 5},
				},
				Resources: []kernel.ResourceConfig{{}},
				Counters: []kernel.CounterConfig{
					{MaxAllowedValue: 999, TicksPerBase: 1, MinCycle: 1},
				},
				Tables: []kernel.ScheduleTableConfig{
					{
						Counter: idCounter,
						ExpiryPoints: []kernel.ExpiryPointConfig{
							{Offset: 2, Activations: []kernel.TaskID{idTask}, MaxLengthen: 2, MaxShorten: 2},
						},
						Duration:  4,
						Precision: 1,
						Repeating: true,
						Sync:      kernel.SyncExplicit,
					},
				},
				Modes: []kernel.AppMode{
					{Name: "normal", AutoStartTables: []kernel.ScheduleTableAutoStart{
						{Table: idTable, Kind: kernel.StartRel, Value: 0},
					}},
				},
			}
			return cfg, entries, int(idCounter)
		},
		check: func(tr *trace) error {
			if len(tr.lines) < 2 {
				return fmt.Errorf("explicit-sync: want at least 2 activations, got %d", len(tr.lines))
			}
			return nil
		},
	}
}

func compareTrace(tr *trace, want []string) error {
	if len(tr.lines) != len(want) {
		return fmt.Errorf("trace length mismatch: got %d lines %v, want %d lines %v", len(tr.lines), tr.lines, len(want), want)
	}
	for i := range want {
		if tr.lines[i] != want[i] {
			return fmt.Errorf("trace mismatch at line %d: got %q, want %q (full trace: %v)", i, tr.lines[i], want[i], tr.lines)
		}
	}
	return nil
}
