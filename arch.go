package kernel

// Arch is the thin seam to everything outside this package's scope:
// architecture-specific context-switch assembly, MCU bring-up and
// interrupt masking. The kernel core never inspects a saved context or
// touches a register; it only calls through Arch at a handful of points.
//
// A real port implements Arch against its MCU; cmd/sdvossim implements it
// in-process for deterministic simulation, the same role the original C
// kernel's "Linux/i386 simulation" arch backends play.
type Arch interface {
	// TimerInit arms the periodic hardware timer that will later call
	// Kernel.IncrementCounter for the system counter. Called once from
	// StartOS.
	TimerInit() error

	// SwitchTask performs the architectural context switch from src to
	// dst. If discard is true, src is terminating and its context need
	// not be preserved (Dispatch's "discard" flag).
	SwitchTask(src, dst TaskID, discard bool)

	// InitContext prepares a task's initial processor context before its
	// first (or any re-) activation, so it begins execution at its entry
	// point with a fresh stack.
	InitContext(t *Task)

	// EnableAllInterrupts and DisableAllInterrupts implement the
	// non-nestable, single-level interrupt masking pair.
	EnableAllInterrupts()
	DisableAllInterrupts()

	// SuspendAllInterrupts disables all interrupts and returns an
	// opaque mask the matching ResumeAllInterrupts call must be given,
	// supporting the nestable, saved-mask discipline.
	SuspendAllInterrupts() InterruptMask
	ResumeAllInterrupts(mask InterruptMask)

	// SuspendOSInterrupts/ResumeOSInterrupts mask only category-2 (OS)
	// interrupts, leaving category-1 interrupts enabled; also nestable
	// with saved-mask discipline.
	SuspendOSInterrupts() InterruptMask
	ResumeOSInterrupts(mask InterruptMask)
}

// InterruptMask is an opaque token returned by a Suspend* call and handed
// back to the matching Resume* call. The kernel never inspects its bits;
// only the Arch implementation assigns it meaning.
type InterruptMask uint32

// ISRCategory distinguishes the two interrupt categories an ISR may be
// configured with.
type ISRCategory uint8

const (
	// Cat1 ISRs may not call scheduling services and never end with a
	// preemption check.
	Cat1 ISRCategory = 1
	// Cat2 ISRs may call a restricted set of services that make tasks
	// ready and must end with a preemption check.
	Cat2 ISRCategory = 2
)

// ISRHandle describes one configured interrupt service routine: its
// category, priority (for the collaborator's own vectoring, unused by the
// kernel core) and user handler. Kernel glue (Kernel.EnterISR/ExitISR)
// wraps Handler with the nesting counter and, for Cat2, the preemption
// check.
type ISRHandle struct {
	Category ISRCategory
	Priority uint8
	Handler  func()
}
