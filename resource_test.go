package kernel

import "testing"

func resourceTestConfig() Config {
	return Config{
		MaxPriority: 3,
		Tasks: []TaskConfig{
			{Entry: func() {}, Priority: 0, MaxActivations: 1}, // idle
			{Entry: func() {}, Priority: 1, MaxActivations: 1},
			{Entry: func() {}, Priority: 2, MaxActivations: 1},
			{Entry: func() {}, Priority: 3, MaxActivations: 1},
		},
		Resources: []ResourceConfig{
			{},           // reserved RES_SCHEDULER slot
			{Ceiling: 2}, // resource 1, reachable from tasks 1 and 2
			{Ceiling: 3}, // resource 2, reachable from all three
		},
	}
}

func TestGetResource_RaisesPriorityToCeiling(t *testing.T) {
	k, _ := newTestKernel(t, resourceTestConfig())
	k.ActivateTaskPreempt(1)

	if status := k.GetResource(1); status != E_OK {
		t.Fatalf("GetResource: %v", status)
	}
	if k.tasks[1].priority != 2 {
		t.Fatalf("want priority raised to ceiling 2, got %d", k.tasks[1].priority)
	}
	if len(k.tasks[1].resStack) != 1 || k.tasks[1].resStack[0] != 1 {
		t.Fatalf("want resStack [1], got %v", k.tasks[1].resStack)
	}
}

func TestGetResource_InvalidID(t *testing.T) {
	k, _ := newTestKernel(t, resourceTestConfig())
	k.ActivateTaskPreempt(1)
	if status := k.GetResource(99); status != E_OS_ID {
		t.Fatalf("want E_OS_ID, got %v", status)
	}
}

func TestGetResource_FailsWhenOriginalPriorityExceedsCeiling(t *testing.T) {
	cfg := resourceTestConfig()
	cfg.Extended = true
	cfg.Resources = []ResourceConfig{{}, {Ceiling: 1}} // ceiling 1 is below task 2's priority 2
	k, _ := newTestKernel(t, cfg)
	k.ActivateTaskPreempt(2)

	if status := k.GetResource(1); status != E_OS_ACCESS {
		t.Fatalf("want E_OS_ACCESS, got %v", status)
	}
}

func TestGetResource_FailsWhenAlreadyOccupied(t *testing.T) {
	cfg := resourceTestConfig()
	cfg.Extended = true
	k, _ := newTestKernel(t, cfg)
	k.ActivateTaskPreempt(1)
	if status := k.GetResource(2); status != E_OK {
		t.Fatalf("first GetResource: %v", status)
	}
	// Task 1 now holds resource 2 at priority 3 (its ceiling); nothing
	// else can run to contend for it, but the occupancy check itself is
	// exercised directly by re-acquiring from the same task.
	if status := k.GetResource(2); status != E_OS_ACCESS {
		t.Fatalf("want E_OS_ACCESS re-acquiring an already-held resource, got %v", status)
	}
}

func TestGetResource_StandardBuildSkipsCeilingAndOccupiedChecks(t *testing.T) {
	cfg := resourceTestConfig()
	cfg.Resources = []ResourceConfig{{}, {Ceiling: 1}}
	k, _ := newTestKernel(t, cfg)
	k.ActivateTaskPreempt(2)
	if status := k.GetResource(1); status != E_OK {
		t.Fatalf("want standard build to skip the ceiling check, got %v", status)
	}

	k2, _ := newTestKernel(t, resourceTestConfig())
	k2.ActivateTaskPreempt(1)
	k2.GetResource(2)
	if status := k2.GetResource(2); status != E_OK {
		t.Fatalf("want standard build to skip the occupied check, got %v", status)
	}
}

func TestReleaseResource_RestoresOriginalPriorityWithNoInternalResource(t *testing.T) {
	k, _ := newTestKernel(t, resourceTestConfig())
	k.ActivateTaskPreempt(1)
	k.GetResource(1)

	if status := k.ReleaseResource(1); status != E_OK {
		t.Fatalf("ReleaseResource: %v", status)
	}
	if k.tasks[1].priority != 1 {
		t.Fatalf("want priority restored to 1, got %d", k.tasks[1].priority)
	}
	if len(k.tasks[1].resStack) != 0 {
		t.Fatalf("want empty resStack, got %v", k.tasks[1].resStack)
	}
}

func TestReleaseResource_RestoresNextCeilingWhenNested(t *testing.T) {
	k, _ := newTestKernel(t, resourceTestConfig())
	k.ActivateTaskPreempt(1)
	k.GetResource(1) // priority -> 2
	k.GetResource(2) // priority -> 3

	if status := k.ReleaseResource(2); status != E_OK {
		t.Fatalf("ReleaseResource(2): %v", status)
	}
	if k.tasks[1].priority != 2 {
		t.Fatalf("want priority restored to resource 1's ceiling 2, got %d", k.tasks[1].priority)
	}
	if len(k.tasks[1].resStack) != 1 || k.tasks[1].resStack[0] != 1 {
		t.Fatalf("want resStack [1] remaining, got %v", k.tasks[1].resStack)
	}
}

func TestReleaseResource_FailsWhenNotTopOfStack(t *testing.T) {
	cfg := resourceTestConfig()
	cfg.Extended = true
	k, _ := newTestKernel(t, cfg)
	k.ActivateTaskPreempt(1)
	k.GetResource(1)
	k.GetResource(2)

	if status := k.ReleaseResource(1); status != E_OS_NOFUNC {
		t.Fatalf("want E_OS_NOFUNC releasing out of LIFO order, got %v", status)
	}
}

func TestReleaseResource_FailsWhenNotHeld(t *testing.T) {
	k, _ := newTestKernel(t, resourceTestConfig())
	k.ActivateTaskPreempt(1)
	if status := k.ReleaseResource(1); status != E_OS_NOFUNC {
		t.Fatalf("want E_OS_NOFUNC releasing a resource never acquired, got %v", status)
	}
}

func TestReleaseResource_StandardBuildSkipsTopOfStackAndAccessChecks(t *testing.T) {
	k, _ := newTestKernel(t, resourceTestConfig())
	k.ActivateTaskPreempt(1)
	k.GetResource(1)
	k.GetResource(2)

	// Releasing out of LIFO order pops whatever is on top rather than
	// failing, since the top-of-stack identity check is extended-build
	// only; the stack emptiness check above it still always applies.
	if status := k.ReleaseResource(1); status != E_OK {
		t.Fatalf("want standard build to skip the top-of-stack check, got %v", status)
	}
	if len(k.tasks[1].resStack) != 1 || k.tasks[1].resStack[0] != 1 {
		t.Fatalf("want the actual top (resource 2) popped regardless of the argument, got %v", k.tasks[1].resStack)
	}
}

func TestReleaseResource_InvalidID(t *testing.T) {
	k, _ := newTestKernel(t, resourceTestConfig())
	k.ActivateTaskPreempt(1)
	if status := k.ReleaseResource(99); status != E_OS_ID {
		t.Fatalf("want E_OS_ID, got %v", status)
	}
}

func TestReleaseResourcePreempt_WakesHigherPriorityTask(t *testing.T) {
	k, arch := newTestKernel(t, resourceTestConfig())

	// Task 1 acquires resource 2 (ceiling 3), running at priority 3.
	k.ActivateTaskPreempt(1)
	k.GetResource(2)

	// Task 3 (priority 3) is activated but cannot preempt: task 1's
	// current priority already equals the resource's ceiling.
	k.ActivateTaskPreempt(3)
	if k.running != 1 {
		t.Fatalf("want task 1 still running while holding the ceiling resource, got %v", k.running)
	}

	switchesBefore := len(arch.switches)
	if status := k.ReleaseResourcePreempt(2); status != E_OK {
		t.Fatalf("ReleaseResourcePreempt: %v", status)
	}
	if k.running != 3 {
		t.Fatalf("want task 3 dispatched after the ceiling drops, got %v", k.running)
	}
	if len(arch.switches) <= switchesBefore {
		t.Fatalf("want a recorded context switch from releasing the resource, got none")
	}
}

func TestReleaseResource_RestoresInternalResourceCeilingWhenPresent(t *testing.T) {
	cfg := resourceTestConfig()
	cfg.Tasks[1].InternalResourceCeiling = 2
	k, _ := newTestKernel(t, cfg)
	k.ActivateTaskPreempt(1)

	if status := k.GetResource(2); status != E_OK {
		t.Fatalf("GetResource: %v", status)
	}
	if status := k.ReleaseResource(2); status != E_OK {
		t.Fatalf("ReleaseResource: %v", status)
	}
	if k.tasks[1].priority != 2 {
		t.Fatalf("want priority restored to the internal-resource ceiling 2, got %d", k.tasks[1].priority)
	}
}
