package kernel

// Task is the run-time Task Control Block. It is allocated once, in the
// Kernel's task arena, indexed by TaskID; it never ceases to exist for
// the lifetime of the kernel, only moving between TaskState values.
type Task struct {
	id       TaskID
	cfg      *TaskConfig
	priority uint8 // current priority: may be raised above cfg.Priority
	state    TaskState
	cevent   EventMask // current (set) events
	wevent   EventMask // events being waited for, valid only while Waiting
	act      uint8     // pending activation count

	// resStack is this task's LIFO stack of held external resources,
	// innermost (most recently acquired) last. Internal resources never
	// appear here.
	resStack []ResourceID

	// preemptCtx marks that this task was preempted mid-service by
	// CheckPreemption (as opposed to having blocked voluntarily),
	// mirroring TASK_PREEMPT_CTX in original_source/src/include/task.h.
	preemptCtx bool

	// queueNext threads this task into its priority slot's intrusive
	// FIFO list; noTask terminates the list. Unused while the task is
	// Running or Suspended.
	queueNext TaskID
}

// ID returns this task's static identifier.
func (t *Task) ID() TaskID { return t.id }

// State returns this task's current lifecycle state.
func (t *Task) State() TaskState { return t.state }

// Priority returns this task's current (possibly ceiling-raised)
// priority.
func (t *Task) Priority() uint8 { return t.priority }

// taskRef validates a TaskID against the arena's range, in every build;
// it is the single choke point every task-facing service funnels through
// before touching *Task state.
func (k *Kernel) taskRef(id TaskID) (*Task, StatusType) {
	if int(id) < 0 || int(id) >= len(k.tasks) {
		return nil, E_OS_ID
	}
	return &k.tasks[id], E_OK
}

// ActivateTask requests that task t run. If t is Suspended, it is freshly
// initialized and made Ready; if it is already queued or running, this
// only increments its activation count.
func (k *Kernel) ActivateTask(t TaskID) StatusType {
	return k.activateTask(ServiceActivateTask, t, false)
}

// ActivateTaskPreempt is ActivateTask followed by a preemption check, for
// callers (typically Cat2 ISRs) that must end with one.
func (k *Kernel) ActivateTaskPreempt(t TaskID) StatusType {
	return k.activateTask(ServiceActivateTaskPreempt, t, true)
}

func (k *Kernel) activateTask(svc ServiceID, t TaskID, preempt bool) StatusType {
	task, status := k.taskRef(t)
	if status != E_OK {
		return k.fail(svc, status, int32(t))
	}
	if k.opts.extended && task.act >= task.cfg.MaxActivations {
		return k.fail(svc, E_OS_LIMIT, int32(t))
	}
	task.act++
	if task.state == Suspended {
		k.resetTask(task)
		task.state = Ready
		k.enqueueTail(task.id)
	}
	if preempt {
		k.checkPreemption()
	}
	return E_OK
}

// resetTask restores a task to its just-activated shape: original
// priority, cleared events, fresh architectural context. Called on the
// Suspended->Ready transition and again on re-activation after
// TerminateTask when further activations are pending.
func (k *Kernel) resetTask(t *Task) {
	t.priority = t.cfg.Priority
	t.cevent = 0
	t.wevent = 0
	t.resStack = t.resStack[:0]
	t.preemptCtx = false
	if k.arch != nil {
		k.arch.InitContext(t)
	}
}

// TerminateTask ends the calling task's current activation. If further
// activations are queued, the task is immediately reinitialized and
// re-enqueued at the tail of its priority slot; otherwise it becomes
// Suspended. Control never returns to the caller: the kernel dispatches
// the next highest-priority ready task with the "discard" context flag
//.
//
// TerminateTask fails with E_OS_RESOURCE if the calling task still holds
// resources, or E_OS_CALLEVEL if called from ISR context.
func (k *Kernel) TerminateTask() StatusType {
	if k.isr.nesting > 0 {
		return k.fail(ServiceTerminateTask, E_OS_CALLEVEL, 0)
	}
	running := k.running
	task := &k.tasks[running]
	if len(task.resStack) > 0 {
		return k.fail(ServiceTerminateTask, E_OS_RESOURCE, int32(running))
	}

	if k.hooks.PostTaskHook != nil {
		k.hooks.PostTaskHook(running)
	}
	task.priority = task.cfg.Priority
	task.act--
	if task.act > 0 {
		k.resetTask(task)
		task.state = Ready
		k.enqueueTail(task.id)
	} else {
		task.state = Suspended
	}

	k.dispatchNext(dispatchDiscard)
	return E_OK
}

// ChainTask is the atomic composition of ActivateTask(t) followed by
// TerminateTask for the calling task. Chaining a task to itself
// re-enqueues the running task at the tail of its own slot without a full
// suspend/reinitialize cycle.
func (k *Kernel) ChainTask(t TaskID) StatusType {
	if k.isr.nesting > 0 {
		return k.fail(ServiceChainTask, E_OS_CALLEVEL, 0)
	}
	running := k.running
	task := &k.tasks[running]
	if len(task.resStack) > 0 {
		return k.fail(ServiceChainTask, E_OS_RESOURCE, int32(running))
	}

	if t == running {
		// Self-chain: stay Ready, re-enqueue at tail, no reinitialize.
		if k.hooks.PostTaskHook != nil {
			k.hooks.PostTaskHook(running)
		}
		task.priority = task.cfg.Priority
		task.state = Ready
		k.enqueueTail(task.id)
		k.dispatchNext(dispatchBlock)
		return E_OK
	}

	target, status := k.taskRef(t)
	if status != E_OK {
		return k.fail(ServiceChainTask, status, int32(t))
	}
	if k.opts.extended && target.act >= target.cfg.MaxActivations {
		return k.fail(ServiceChainTask, E_OS_LIMIT, int32(t))
	}
	target.act++
	if target.state == Suspended {
		k.resetTask(target)
		target.state = Ready
		k.enqueueTail(target.id)
	}

	if k.hooks.PostTaskHook != nil {
		k.hooks.PostTaskHook(running)
	}
	task.priority = task.cfg.Priority
	task.act--
	if task.act > 0 {
		k.resetTask(task)
		task.state = Ready
		k.enqueueTail(task.id)
	} else {
		task.state = Suspended
	}

	k.dispatchNext(dispatchDiscard)
	return E_OK
}

// Schedule has effect only for tasks configured with an internal
// resource: it temporarily lowers the running task's priority to its
// original priority and yields to any task ready in the range
// (origPriority, internalCeiling], then restores the internal-resource
// ceiling and resumes. It fails with E_OS_RESOURCE if the caller holds
// external resources, or E_OS_CALLEVEL from ISR context.
func (k *Kernel) Schedule() StatusType {
	if k.isr.nesting > 0 {
		return k.fail(ServiceSchedule, E_OS_CALLEVEL, 0)
	}
	running := &k.tasks[k.running]
	if len(running.resStack) > 0 {
		return k.fail(ServiceSchedule, E_OS_RESOURCE, int32(k.running))
	}
	if running.cfg.InternalResourceCeiling < 0 {
		return E_OK
	}
	running.priority = running.cfg.Priority
	k.checkPreemption()
	running.priority = k.currentCeiling(running)
	return E_OK
}

// GetTaskID returns the identifier of the currently running task.
func (k *Kernel) GetTaskID() (TaskID, StatusType) {
	return k.running, E_OK
}

// GetTaskState returns t's current lifecycle state. An out-of-range id
// returns E_OS_ID, in standard and extended builds alike.
func (k *Kernel) GetTaskState(t TaskID) (TaskState, StatusType) {
	task, status := k.taskRef(t)
	if status != E_OK {
		return Suspended, k.fail(ServiceGetTaskState, status, int32(t))
	}
	return task.state, E_OK
}

// currentCeiling computes what a task's current priority should be given
// what it holds right now: the ceiling of its
// topmost external resource if it holds one, else its internal-resource
// ceiling if it has one, else its original priority.
func (k *Kernel) currentCeiling(t *Task) uint8 {
	if len(t.resStack) > 0 {
		top := t.resStack[len(t.resStack)-1]
		return k.resources[top].ceiling
	}
	if t.cfg.InternalResourceCeiling >= 0 {
		return uint8(t.cfg.InternalResourceCeiling)
	}
	return t.cfg.Priority
}
