package kernel

import "testing"

// fakeArch is a minimal Arch stand-in for unit tests that exercise kernel
// bookkeeping without needing a real (or goroutine-simulated) context
// switch: SwitchTask just records what happened so a test can assert on
// dispatch order, and InitContext/interrupt masking are no-ops.
type fakeArch struct {
	switches []fakeSwitch
	masked   int
}

type fakeSwitch struct {
	src, dst TaskID
	discard  bool
}

func (a *fakeArch) TimerInit() error { return nil }

func (a *fakeArch) SwitchTask(src, dst TaskID, discard bool) {
	a.switches = append(a.switches, fakeSwitch{src: src, dst: dst, discard: discard})
}

func (a *fakeArch) InitContext(t *Task) {}

func (a *fakeArch) EnableAllInterrupts()  { a.masked = 0 }
func (a *fakeArch) DisableAllInterrupts() { a.masked = 1 }

func (a *fakeArch) SuspendAllInterrupts() InterruptMask {
	mask := InterruptMask(a.masked)
	a.masked++
	return mask
}

func (a *fakeArch) ResumeAllInterrupts(mask InterruptMask) { a.masked = int(mask) }

func (a *fakeArch) SuspendOSInterrupts() InterruptMask    { return a.SuspendAllInterrupts() }
func (a *fakeArch) ResumeOSInterrupts(mask InterruptMask) { a.ResumeAllInterrupts(mask) }

// newTestKernel builds a Kernel with a fakeArch for tests that only care
// about the services under test, not about an actual context switch.
func newTestKernel(t *testing.T, cfg Config) (*Kernel, *fakeArch) {
	t.Helper()
	arch := &fakeArch{}
	k, err := New(cfg, WithArch(arch))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return k, arch
}
