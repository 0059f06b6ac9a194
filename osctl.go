package kernel

// GetActiveApplicationMode returns the mode StartOS was called with.
func (k *Kernel) GetActiveApplicationMode() AppModeID {
	return k.mode
}

// StartOS brings the kernel up in mode: it arms the timer, activates mode's
// auto-start tasks, initializes its auto-start alarms and schedule tables,
// invokes StartupHook, then dispatches the highest-priority ready task.
// Like the original kernel, control does not return to the
// caller in the way an ordinary function does: the dispatch at the end
// hands the processor to a task via Arch.SwitchTask, and whether StartOS's
// Go call frame is ever revisited is entirely up to that Arch
// implementation (a bare-metal port never returns to it; cmd/sdvossim's
// simulated Arch runs each task as a goroutine and blocks here until
// control passes back to the idle task).
func (k *Kernel) StartOS(mode AppModeID) StatusType {
	if int(mode) < 0 || int(mode) >= len(k.cfg.Modes) {
		return k.fail(ServiceStartOS, E_OS_ID, int32(mode))
	}
	k.mode = mode
	appMode := &k.cfg.Modes[mode]

	if err := k.arch.TimerInit(); err != nil {
		return k.fail(ServiceStartOS, E_OS_STATE, int32(mode))
	}
	k.arch.EnableAllInterrupts()

	for _, t := range appMode.AutoStartTasks {
		k.ActivateTask(t)
	}
	for _, a := range appMode.AutoStartAlarms {
		if a.Absolute {
			k.SetAbsAlarm(a.Alarm, a.Value, a.Cycle)
		} else {
			k.SetRelAlarm(a.Alarm, a.Value, a.Cycle)
		}
	}
	for _, tb := range appMode.AutoStartTables {
		switch tb.Kind {
		case StartAbs:
			k.StartScheduleTableAbs(tb.Table, tb.Value)
		case StartRel:
			k.StartScheduleTableRel(tb.Table, tb.Value)
		case StartSynchron:
			k.StartScheduleTableSynchron(tb.Table)
		}
	}

	if k.hooks.StartupHook != nil {
		k.hooks.StartupHook()
	}

	k.dispatchNext(dispatchBlock)
	return E_OK
}

// ShutdownOS ends kernel operation: it passes status to ShutdownHook,
// if one is registered, and returns. Unlike the original embedded kernel, which
// halts or reboots the hardware, there is no platform-agnostic "halt"
// primitive for Arch to expose; the caller of StartOS — a bare-metal
// entry point or cmd/sdvossim's main — is responsible for stopping the
// process once ShutdownOS returns.
func (k *Kernel) ShutdownOS(status StatusType) {
	if k.hooks.ShutdownHook != nil {
		k.hooks.ShutdownHook(status)
	}
}
