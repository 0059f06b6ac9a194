package kernel

import "testing"

func TestNew_RequiresArch(t *testing.T) {
	_, err := New(Config{})
	if err == nil {
		t.Fatalf("want an error without WithArch")
	}
}

func TestNew_IdleTaskStartsRunning(t *testing.T) {
	k, _ := newTestKernel(t, Config{MaxPriority: 0})
	if k.running != IdleTaskID {
		t.Fatalf("want idle running at construction, got %v", k.running)
	}
	if state, _ := k.GetTaskState(IdleTaskID); state != Running {
		t.Fatalf("want idle task state Running, got %v", state)
	}
}

func TestNew_RejectsTaskPriorityAboveMaxPriority(t *testing.T) {
	cfg := Config{
		MaxPriority: 1,
		Tasks: []TaskConfig{
			{Entry: func() {}, Priority: 0, MaxActivations: 1},
			{Entry: func() {}, Priority: 5, MaxActivations: 1},
		},
	}
	if _, err := New(cfg, WithArch(&fakeArch{})); err == nil {
		t.Fatalf("want an error when a task's priority exceeds MaxPriority")
	}
}

func TestNew_RejectsAlarmWithInvalidCounter(t *testing.T) {
	cfg := Config{
		MaxPriority: 0,
		Alarms:      []AlarmConfig{{Counter: 0, Action: AlarmActivateTask, Task: 0}},
	}
	if _, err := New(cfg, WithArch(&fakeArch{})); err == nil {
		t.Fatalf("want an error for an alarm referencing a nonexistent counter")
	}
}

func TestNew_RejectsScheduleTableWithInvalidCounter(t *testing.T) {
	cfg := Config{
		MaxPriority: 0,
		Tables:      []ScheduleTableConfig{{Counter: 3}},
	}
	if _, err := New(cfg, WithArch(&fakeArch{})); err == nil {
		t.Fatalf("want an error for a schedule table referencing a nonexistent counter")
	}
}

func TestNew_RejectsNonIncreasingExpiryPoints(t *testing.T) {
	cfg := Config{
		MaxPriority: 0,
		Counters:    []CounterConfig{{MaxAllowedValue: 99, TicksPerBase: 1}},
		Tables: []ScheduleTableConfig{{
			Counter: 0,
			ExpiryPoints: []ExpiryPointConfig{
				{Offset: 5},
				{Offset: 5}, // not strictly increasing
			},
		}},
	}
	if _, err := New(cfg, WithArch(&fakeArch{})); err == nil {
		t.Fatalf("want an error for non-increasing expiry point offsets")
	}
}

func TestNew_DefaultsSchedulerResourceCeilingToHighestTaskPriority(t *testing.T) {
	cfg := Config{
		MaxPriority: 3,
		Tasks: []TaskConfig{
			{Entry: func() {}, Priority: 0, MaxActivations: 1},
			{Entry: func() {}, Priority: 3, MaxActivations: 1},
		},
	}
	k, _ := newTestKernel(t, cfg)
	if k.resources[SchedulerResourceID].ceiling != 3 {
		t.Fatalf("want RES_SCHEDULER ceiling defaulted to 3, got %d", k.resources[SchedulerResourceID].ceiling)
	}
}

func TestNew_LinkedResourcesShareMaxCeiling(t *testing.T) {
	cfg := Config{
		MaxPriority: 3,
		Tasks: []TaskConfig{
			{Entry: func() {}, Priority: 0, MaxActivations: 1},
			{Entry: func() {}, Priority: 3, MaxActivations: 1},
		},
		Resources: []ResourceConfig{
			{},
			{Ceiling: 1, LinkGroup: 7},
			{Ceiling: 3, LinkGroup: 7},
		},
	}
	k, _ := newTestKernel(t, cfg)
	if k.resources[1].ceiling != 3 || k.resources[2].ceiling != 3 {
		t.Fatalf("want both linked resources raised to the group's max ceiling 3, got %d and %d",
			k.resources[1].ceiling, k.resources[2].ceiling)
	}
}

func TestFail_RecordsLastError(t *testing.T) {
	k, _ := newTestKernel(t, Config{MaxPriority: 0})
	k.ActivateTask(99) // invalid id, populates lastError via fail()

	ctx := k.LastError()
	if ctx.Service != ServiceActivateTask {
		t.Fatalf("want recorded service ServiceActivateTask, got %v", ctx.Service)
	}
	if ctx.Status != E_OS_ID {
		t.Fatalf("want recorded status E_OS_ID, got %v", ctx.Status)
	}
	if ctx.Args[0] != 99 {
		t.Fatalf("want recorded arg 99, got %d", ctx.Args[0])
	}
}

func TestFail_InvokesErrorHook(t *testing.T) {
	var got ErrorContext
	calls := 0
	k, _ := buildKernelWithHooks(t, Config{MaxPriority: 0}, Hooks{
		ErrorHook: func(ctx ErrorContext) {
			calls++
			got = ctx
		},
	})

	k.ActivateTask(99)
	if calls != 1 {
		t.Fatalf("want ErrorHook invoked exactly once, got %d", calls)
	}
	if got.Status != E_OS_ID {
		t.Fatalf("want the hook to see E_OS_ID, got %v", got.Status)
	}
}

func TestFail_ErrorHookRecursionIsSuppressed(t *testing.T) {
	calls := 0
	var k *Kernel
	k, _ = buildKernelWithHooks(t, Config{MaxPriority: 0}, Hooks{
		ErrorHook: func(ctx ErrorContext) {
			calls++
			// A failure inside the hook itself must not re-enter it.
			k.ActivateTask(98)
		},
	})

	k.ActivateTask(99)
	if calls != 1 {
		t.Fatalf("want the recursive failure inside ErrorHook to not re-invoke it, got %d calls", calls)
	}
}

func buildKernelWithHooks(t *testing.T, cfg Config, hooks Hooks) (*Kernel, *fakeArch) {
	t.Helper()
	arch := &fakeArch{}
	k, err := New(cfg, WithArch(arch), WithHooks(hooks))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return k, arch
}
