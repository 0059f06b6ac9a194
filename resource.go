package kernel

// Resource is the run-time form of a declared OSEK resource: an identity
// and a ceiling priority, the maximum original priority of any task that
// may acquire it. Resources form per-task LIFO stacks via Task.resStack;
// the Resource itself holds no mutable occupancy state beyond what the
// owning task's stack implies. Some implementations carry a separate
// "occupied flag" only for extended-build diagnostics; this one derives
// occupancy from resStack membership instead of duplicating the bit.
type Resource struct {
	id      ResourceID
	ceiling uint8
}

func (k *Kernel) resourceRef(id ResourceID) (*Resource, StatusType) {
	if int(id) < 0 || int(id) >= len(k.resources) {
		return nil, E_OS_ID
	}
	return &k.resources[id], E_OK
}

// GetResource implements the Immediate Priority Ceiling Protocol
// acquisition half: on success, r is pushed onto the calling task's
// resource stack and the task's current priority is raised to r's
// ceiling, which by construction is >= every task that can ever contend
// for it, so no such task can run until it is released.
//
// Fails with E_OS_ID for an invalid resource, or (extended build only)
// E_OS_ACCESS if the resource is already occupied or the calling task's
// original priority exceeds the resource's ceiling (a configuration
// error: the resource was never meant to be reachable from this task).
func (k *Kernel) GetResource(r ResourceID) StatusType {
	res, status := k.resourceRef(r)
	if status != E_OK {
		return k.fail(ServiceGetResource, status, int32(r))
	}
	running := &k.tasks[k.running]
	if k.opts.extended && running.cfg.Priority > res.ceiling {
		return k.fail(ServiceGetResource, E_OS_ACCESS, int32(r))
	}
	if k.opts.extended && k.resourceOccupied(r) {
		return k.fail(ServiceGetResource, E_OS_ACCESS, int32(r))
	}
	running.resStack = append(running.resStack, r)
	running.priority = res.ceiling
	return E_OK
}

// resourceOccupied reports whether any task currently holds r, by
// construction only possible for the running task or one it preempted
// mid-hold (a task holding a resource cannot be Ready/Waiting under
// IPCP, since its priority is at least the resource's ceiling and no
// higher-priority task contending for it can make it stop running).
func (k *Kernel) resourceOccupied(r ResourceID) bool {
	for i := range k.tasks {
		for _, held := range k.tasks[i].resStack {
			if held == r {
				return true
			}
		}
	}
	return false
}

// ReleaseResource implements the IPCP release half: r must be the top of
// the calling task's resource stack (resources nest strictly LIFO). The
// task's priority is restored to the ceiling of the new top resource if
// one remains, else its internal-resource ceiling if it has one, else its
// original priority.
//
// Fails with E_OS_ID for an invalid resource, E_OS_NOFUNC if the stack is
// empty, or (extended build only) E_OS_NOFUNC if r is not on top of the
// stack, or E_OS_ACCESS if the calling task's priority does not match r's
// ceiling (it was never validly held).
func (k *Kernel) ReleaseResource(r ResourceID) StatusType {
	return k.releaseResource(ServiceReleaseResource, r, false)
}

// ReleaseResourcePreempt is ReleaseResource followed by a preemption
// check: lowering priority may reveal a pending higher-priority task.
func (k *Kernel) ReleaseResourcePreempt(r ResourceID) StatusType {
	return k.releaseResource(ServiceReleaseResourcePreempt, r, true)
}

func (k *Kernel) releaseResource(svc ServiceID, r ResourceID, preempt bool) StatusType {
	res, status := k.resourceRef(r)
	if status != E_OK {
		return k.fail(svc, status, int32(r))
	}
	running := &k.tasks[k.running]
	// An empty stack is always rejected, extended build or not: popping it
	// would corrupt running's resStack rather than just return a stale
	// status, and an id/state check whose failure could corrupt kernel
	// state is never skipped, regardless of build.
	if len(running.resStack) == 0 {
		return k.fail(svc, E_OS_NOFUNC, int32(r))
	}
	if k.opts.extended && running.resStack[len(running.resStack)-1] != r {
		return k.fail(svc, E_OS_NOFUNC, int32(r))
	}
	if k.opts.extended && running.priority != res.ceiling {
		return k.fail(svc, E_OS_ACCESS, int32(r))
	}
	running.resStack = running.resStack[:len(running.resStack)-1]
	running.priority = k.currentCeiling(running)
	if preempt {
		k.checkPreemption()
	}
	return E_OK
}
