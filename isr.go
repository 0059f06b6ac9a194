package kernel

// isrState tracks the kernel's interrupt-nesting depth, consulted by any
// service that must refuse from ISR context with E_OS_CALLEVEL.
type isrState struct {
	nesting int
}

// EnableAllInterrupts and DisableAllInterrupts are the non-nestable,
// single-level interrupt mask pair: delegated straight through to Arch,
// which alone knows how to address hardware interrupt control.
func (k *Kernel) EnableAllInterrupts() {
	k.arch.EnableAllInterrupts()
}

func (k *Kernel) DisableAllInterrupts() {
	k.arch.DisableAllInterrupts()
}

// SuspendAllInterrupts and ResumeAllInterrupts are the nestable,
// saved-mask pair: every Suspend call's returned mask must be handed back
// to exactly one matching Resume call, in LIFO order, for the nesting to
// unwind correctly.
func (k *Kernel) SuspendAllInterrupts() InterruptMask {
	return k.arch.SuspendAllInterrupts()
}

func (k *Kernel) ResumeAllInterrupts(mask InterruptMask) {
	k.arch.ResumeAllInterrupts(mask)
}

// SuspendOSInterrupts and ResumeOSInterrupts mask only category-2
// interrupts, leaving category-1 interrupts free to run; also nestable
// with saved-mask discipline.
func (k *Kernel) SuspendOSInterrupts() InterruptMask {
	return k.arch.SuspendOSInterrupts()
}

func (k *Kernel) ResumeOSInterrupts(mask InterruptMask) {
	k.arch.ResumeOSInterrupts(mask)
}

// EnterISR is the glue an Arch port calls on every interrupt vector,
// before running the configured handler: it increments the nesting
// counter so CALLEVEL-restricted services (WaitEvent, TerminateTask,
// ChainTask, Schedule) can detect they are being called from interrupt
// context.
func (k *Kernel) EnterISR() {
	k.isr.nesting++
}

// ExitISR is EnterISR's matching glue, called after the handler returns.
// For a category-2 ISR it finishes with the mandatory preemption check: a
// Cat2 handler may have made a higher-priority task ready (ActivateTask,
// SetEvent, ReleaseResource, IncrementCounter), and that task must run
// before control returns to whatever the ISR interrupted.
// Category-1 ISRs never reach a preemption check.
func (k *Kernel) ExitISR(category ISRCategory) {
	k.isr.nesting--
	if category == Cat2 && k.isr.nesting == 0 {
		k.checkPreemption()
	}
}

// RunISR invokes h's handler wrapped in the EnterISR/ExitISR nesting and
// preemption discipline above. Arch ports that dispatch handlers through
// Go function values (rather than raw vector tables) can use this
// directly instead of reimplementing the wrapping.
func (k *Kernel) RunISR(h ISRHandle) {
	k.EnterISR()
	defer k.ExitISR(h.Category)
	if h.Handler != nil {
		h.Handler()
	}
}
