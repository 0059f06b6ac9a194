package main

import (
	"sync"

	"github.com/sdvos-go/kernel"
)

// ctl is one task's rendezvous channel: receiving on it means "you may
// run now." Exactly one goroutine runs kernel or task code at any instant;
// every other task goroutine registered here is parked receiving on its
// own ctl, which is how a single-threaded, cooperative-with-preemption
// kernel can be driven by real goroutines without ever
// letting two of them touch *kernel.Kernel concurrently.
type ctl struct {
	resume chan struct{}
}

// SimArch is the in-process Arch used by the run and scenario commands in
// place of a real MCU port (original_source/src/arch/linux plays the same
// role for the C kernel this module is grounded on). Interrupt masking is
// modeled with a plain depth counter, read and written under mu like the
// ctl and gen maps; the ctl baton-passing discipline above already keeps
// a second goroutine from running kernel code at the same time.
type SimArch struct {
	mu      sync.Mutex
	k       *kernel.Kernel
	entries map[kernel.TaskID]func()
	ctls    map[kernel.TaskID]*ctl
	gen     map[kernel.TaskID]uint64 // bumped on every InitContext; counts activations and is not otherwise consulted

	suspendDepth int
}

// NewSimArch builds a simulator with the given entry points, keyed by
// TaskID (idle's entry is never consulted: idle has no user code, and its
// "goroutine" is simply whichever goroutine calls Kernel.StartOS or later
// drives simulated time).
func NewSimArch(entries map[kernel.TaskID]func()) *SimArch {
	a := &SimArch{
		entries: entries,
		ctls:    make(map[kernel.TaskID]*ctl),
		gen:     make(map[kernel.TaskID]uint64),
	}
	a.ctls[kernel.IdleTaskID] = &ctl{resume: make(chan struct{})}
	return a
}

// Attach wires the constructed Kernel back into the simulator, which
// needs it to auto-terminate a task whose entry function returns without
// itself calling TerminateTask or ChainTask (a convenience over strict
// OSEK, matching the common embedded-RTOS task-wrapper idiom of treating
// "fell off the end" as an implicit TerminateTask).
func (a *SimArch) Attach(k *kernel.Kernel) {
	a.k = k
}

func (a *SimArch) TimerInit() error {
	// The simulated clock is driven explicitly by the run/scenario
	// command's tick loop (Kernel.IncrementCounter), not by a real
	// hardware timer, so there is nothing to arm here.
	return nil
}

func (a *SimArch) InitContext(t *kernel.Task) {
	id := t.ID()
	if id == kernel.IdleTaskID {
		return
	}

	a.mu.Lock()
	a.gen[id]++
	gen := a.gen[id]
	c := &ctl{resume: make(chan struct{})}
	a.ctls[id] = c
	entry := a.entries[id]
	a.mu.Unlock()

	go func() {
		<-c.resume
		if entry != nil {
			entry()
		}
		// The entry function returned on its own; nothing resumes this
		// goroutine again (the next InitContext for this task installs a
		// fresh ctl in a.ctls in place of c), so finish the activation
		// for it.
		_ = gen
		a.k.TerminateTask()
	}()
}

func (a *SimArch) SwitchTask(src, dst kernel.TaskID, discard bool) {
	if src == dst && !discard {
		// Dispatching to the context that is already running (idle
		// re-dispatching itself when no task is ready yet) needs no
		// handoff at all; sending to its own ctl would deadlock, since
		// nothing else is waiting to receive it. A discarding switch to
		// the same task is different: the kernel has just re-initialized
		// it for a pending activation, so InitContext's fresh goroutine
		// is resumed below.
		return
	}

	a.mu.Lock()
	dstCtl := a.ctls[dst]
	srcCtl := a.ctls[src]
	a.mu.Unlock()

	dstCtl.resume <- struct{}{}
	if !discard {
		<-srcCtl.resume
	}
}

func (a *SimArch) EnableAllInterrupts() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.suspendDepth > 0 {
		a.suspendDepth = 0
	}
}

func (a *SimArch) DisableAllInterrupts() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.suspendDepth = 1
}

func (a *SimArch) SuspendAllInterrupts() kernel.InterruptMask {
	a.mu.Lock()
	defer a.mu.Unlock()
	mask := kernel.InterruptMask(a.suspendDepth)
	a.suspendDepth++
	return mask
}

func (a *SimArch) ResumeAllInterrupts(mask kernel.InterruptMask) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.suspendDepth = int(mask)
}

func (a *SimArch) SuspendOSInterrupts() kernel.InterruptMask {
	return a.SuspendAllInterrupts()
}

func (a *SimArch) ResumeOSInterrupts(mask kernel.InterruptMask) {
	a.ResumeAllInterrupts(mask)
}
