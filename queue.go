package kernel

// prioSlot is one ready-queue priority level: a FIFO of TaskIDs, oldest at
// head, threaded through each Task's queueNext field — an array indexed
// by priority level, each slot a FIFO of TCBs ordered by arrival time.
// Using an intrusive list rather than a slice keeps enqueue/dequeue
// allocation-free.
type prioSlot struct {
	head, tail TaskID
}

func newPrioSlot() prioSlot {
	return prioSlot{head: noTask, tail: noTask}
}

func (s *prioSlot) empty() bool {
	return s.head == noTask
}

// enqueueTail adds id to its current-priority slot's tail. Used when a
// task becomes Ready by its own activation, not by being preempted: a
// newly activated or re-activated task goes to the tail.
func (k *Kernel) enqueueTail(id TaskID) {
	t := &k.tasks[id]
	t.queueNext = noTask
	slot := &k.readyQueue[t.priority]
	if slot.empty() {
		slot.head = id
	} else {
		k.tasks[slot.tail].queueNext = id
	}
	slot.tail = id
}

// enqueueHead adds id to its current-priority slot's head. Used when a
// running task is preempted and must resume before any task that became
// ready afterward: a preempted task is inserted at the head of its slot.
func (k *Kernel) enqueueHead(id TaskID) {
	t := &k.tasks[id]
	slot := &k.readyQueue[t.priority]
	t.queueNext = slot.head
	if slot.empty() {
		slot.tail = id
	}
	slot.head = id
}

// nextTask scans ready-queue slots from max down to min and returns and
// removes the head of the first non-empty slot, or (noTask, false) if
// none is found in that range.
func (k *Kernel) nextTask(max, min uint8) (TaskID, bool) {
	for p := int(max); p >= int(min); p-- {
		slot := &k.readyQueue[p]
		if slot.empty() {
			continue
		}
		id := slot.head
		t := &k.tasks[id]
		slot.head = t.queueNext
		if slot.head == noTask {
			slot.tail = noTask
		}
		t.queueNext = noTask
		return id, true
	}
	return noTask, false
}

// dispatch switches the running task to id, applying the internal
// resource ceiling if any, invoking PreTaskHook, then performing the
// architectural context switch. flag distinguishes preserving the
// outgoing task's context (block) from discarding it (the outgoing task
// is terminating).
func (k *Kernel) dispatch(id TaskID, flag dispatchFlag) {
	prev := k.running
	next := &k.tasks[id]
	next.state = Running
	next.priority = k.currentCeiling(next)
	k.running = id

	if k.hooks.PreTaskHook != nil {
		k.hooks.PreTaskHook(id)
	}
	if k.arch != nil {
		k.arch.SwitchTask(prev, id, flag == dispatchDiscard)
	}
}

// dispatchNext picks the highest-priority ready task (always succeeds:
// the idle task is always runnable) and dispatches it with the given
// flag. Used by the task-exit paths (TerminateTask, ChainTask, WaitEvent)
// that never return to their caller.
func (k *Kernel) dispatchNext(flag dispatchFlag) {
	id, ok := k.nextTask(k.cfg.MaxPriority, 0)
	if !ok {
		// Nothing is queued. The idle task is only queued once a
		// preemption check has displaced it, so a dispatch away from idle
		// by dispatchNext itself (as in StartOS) leaves it off the queue
		// and this fallback picks it.
		id = IdleTaskID
	}
	k.dispatch(id, flag)
}

// checkPreemption is invoked at the end of any service that may have
// made a higher-priority task ready, and
// at the end of every Cat2 ISR. If a strictly higher-priority task is
// ready, the running task is PostTaskHook-ed, marked Ready, enqueued at
// the head of its slot (it resumes before anything that became ready in
// the meantime), and the new task is dispatched with "block".
func (k *Kernel) checkPreemption() {
	running0 := int(k.tasks[k.running].priority)
	if running0 >= int(k.cfg.MaxPriority) {
		return
	}
	id, ok := k.nextTask(k.cfg.MaxPriority, uint8(running0+1))
	if !ok {
		return
	}
	running := &k.tasks[k.running]
	if k.hooks.PostTaskHook != nil {
		k.hooks.PostTaskHook(k.running)
	}
	running.state = Ready
	if k.isr.nesting > 0 {
		running.preemptCtx = true
	}
	k.enqueueHead(running.id)
	k.dispatch(id, dispatchBlock)
}
