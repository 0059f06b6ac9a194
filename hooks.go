package kernel

// Hooks bundles the optional callbacks an application may register. Any
// left nil are simply skipped — callers are not required to implement
// all five.
type Hooks struct {
	// StartupHook runs once from StartOS after interrupts, alarms and
	// schedule tables have been initialized and auto-start tasks
	// activated, just before the first dispatch.
	StartupHook func()

	// ShutdownHook runs from ShutdownOS with the shutdown status.
	ShutdownHook func(status StatusType)

	// ErrorHook runs once per failed service call, recursion-guarded: a
	// failure that occurs while ErrorHook itself is running does not
	// re-invoke it.
	ErrorHook func(ctx ErrorContext)

	// PreTaskHook runs immediately before a task starts or resumes
	// running, after its priority has been raised by Dispatch.
	PreTaskHook func(t TaskID)

	// PostTaskHook runs immediately before a running task stops running
	// (preempted, terminating, or about to block), before its priority
	// is restored.
	PostTaskHook func(t TaskID)
}

// hookGuard is a single recursion-guard flag: a plain boolean in the
// kernel context, with no atomic type. runErrorHook tests and sets it
// without masking interrupts; neither it nor its caller, Kernel.fail,
// suspends or disables interrupts around error recording.
type hookGuard struct {
	inErrorHook bool
}

// runErrorHook invokes h.ErrorHook once, unless already inside it.
func (g *hookGuard) runErrorHook(h Hooks, ctx ErrorContext) {
	if h.ErrorHook == nil || g.inErrorHook {
		return
	}
	g.inErrorHook = true
	defer func() { g.inErrorHook = false }()
	h.ErrorHook(ctx)
}
