package kernel

// SetEvent sets the bits in mask on t's current event mask. Events belong
// to extended tasks only. If t is Waiting on any of the newly-set bits,
// it transitions to Ready and is enqueued at the tail of its slot.
//
// Fails with E_OS_ID for an invalid task, E_OS_ACCESS if t is a basic
// task, or E_OS_STATE if t is Suspended (both extended-build only, per
// the kernel's standard/extended status switch).
func (k *Kernel) SetEvent(t TaskID, mask EventMask) StatusType {
	return k.setEvent(ServiceSetEvent, t, mask, false)
}

// SetEventPreempt is SetEvent followed by a preemption check: waking a
// higher-priority task may require an immediate context switch.
func (k *Kernel) SetEventPreempt(t TaskID, mask EventMask) StatusType {
	return k.setEvent(ServiceSetEventPreempt, t, mask, true)
}

func (k *Kernel) setEvent(svc ServiceID, t TaskID, mask EventMask, preempt bool) StatusType {
	task, status := k.taskRef(t)
	if status != E_OK {
		return k.fail(svc, status, int32(t))
	}
	if k.opts.extended && !task.cfg.Extended {
		return k.fail(svc, E_OS_ACCESS, int32(t))
	}
	if k.opts.extended && task.state == Suspended {
		return k.fail(svc, E_OS_STATE, int32(t))
	}

	task.cevent |= mask
	if task.state == Waiting && task.wevent&mask != 0 {
		task.state = Ready
		k.enqueueTail(task.id)
	}
	if preempt {
		k.checkPreemption()
	}
	return E_OK
}

// ClearEvent clears the bits in mask on the calling task's current event
// mask. Only callable by the running extended task outside ISR context;
// the kernel core does not separately enforce "is the running task"
// beyond what calling through the running task's own id implies, since
// there is no other task whose events ClearEvent could plausibly target.
//
// Fails with E_OS_ACCESS if the running task is not extended, or
// E_OS_CALLEVEL if called from ISR context.
func (k *Kernel) ClearEvent(mask EventMask) StatusType {
	task := &k.tasks[k.running]
	if k.opts.extended && !task.cfg.Extended {
		return k.fail(ServiceClearEvent, E_OS_ACCESS, int32(k.running))
	}
	if k.opts.extended && k.isr.nesting > 0 {
		return k.fail(ServiceClearEvent, E_OS_CALLEVEL, int32(k.running))
	}
	task.cevent &^= mask
	return E_OK
}

// GetEvent returns t's current event mask. Same error discipline as
// SetEvent.
func (k *Kernel) GetEvent(t TaskID) (EventMask, StatusType) {
	task, status := k.taskRef(t)
	if status != E_OK {
		return 0, k.fail(ServiceGetEvent, status, int32(t))
	}
	if k.opts.extended && !task.cfg.Extended {
		return 0, k.fail(ServiceGetEvent, E_OS_ACCESS, int32(t))
	}
	if k.opts.extended && task.state == Suspended {
		return 0, k.fail(ServiceGetEvent, E_OS_STATE, int32(t))
	}
	return task.cevent, E_OK
}

// WaitEvent blocks the calling extended task until at least one bit in
// mask is set. If any awaited bit is already set, it returns immediately
// without blocking. Otherwise the task releases its internal resource
// (restoring its original priority), is marked Waiting, and the kernel
// dispatches the highest-priority Ready task with "block".
//
// Only callable by an extended task outside ISR context and not holding
// any (external) resources.
func (k *Kernel) WaitEvent(mask EventMask) StatusType {
	task := &k.tasks[k.running]
	if k.opts.extended && !task.cfg.Extended {
		return k.fail(ServiceWaitEvent, E_OS_ACCESS, int32(k.running))
	}
	if k.opts.extended && len(task.resStack) > 0 {
		return k.fail(ServiceWaitEvent, E_OS_RESOURCE, int32(k.running))
	}
	if k.opts.extended && k.isr.nesting > 0 {
		return k.fail(ServiceWaitEvent, E_OS_CALLEVEL, 0)
	}
	if task.cevent&mask != 0 {
		return E_OK
	}

	task.wevent = mask
	if k.hooks.PostTaskHook != nil {
		k.hooks.PostTaskHook(task.id)
	}
	task.priority = task.cfg.Priority
	task.state = Waiting
	k.dispatchNext(dispatchBlock)
	return E_OK
}
