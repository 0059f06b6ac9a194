package kernel

import "fmt"

// StatusType is the closed set of return codes every kernel service
// produces. It implements error so a failed service can be returned,
// wrapped and matched with errors.Is/errors.As like any other Go error,
// while E_OK itself is never treated as an error by callers that check it.
type StatusType uint8

const (
	// E_OK indicates the service completed without error.
	E_OK StatusType = iota
	// E_OS_ACCESS indicates a caller lacked the rights for the requested
	// operation (resource already occupied, ceiling violation, basic task
	// touching events, ...).
	E_OS_ACCESS
	// E_OS_CALLEVEL indicates the service was called from a context that
	// may not call it (e.g. a scheduling service from a category-1 ISR).
	E_OS_CALLEVEL
	// E_OS_ID indicates an out-of-range or otherwise invalid identifier.
	E_OS_ID
	// E_OS_LIMIT indicates a counting limit was reached (multiple
	// activation request beyond MaxActivations).
	E_OS_LIMIT
	// E_OS_NOFUNC indicates the requested operation has no effect in the
	// current state (releasing a resource not held, cancelling an
	// inactive alarm, ...).
	E_OS_NOFUNC
	// E_OS_RESOURCE indicates the caller still holds a resource that must
	// be released first (TerminateTask/ChainTask/Schedule discipline).
	E_OS_RESOURCE
	// E_OS_STATE indicates the target is in a state that forbids the
	// operation (SetEvent on a Suspended task, activating an already
	// active alarm, ...).
	E_OS_STATE
	// E_OS_VALUE indicates a parameter is out of the permitted range.
	E_OS_VALUE
)

func (s StatusType) String() string {
	switch s {
	case E_OK:
		return "E_OK"
	case E_OS_ACCESS:
		return "E_OS_ACCESS"
	case E_OS_CALLEVEL:
		return "E_OS_CALLEVEL"
	case E_OS_ID:
		return "E_OS_ID"
	case E_OS_LIMIT:
		return "E_OS_LIMIT"
	case E_OS_NOFUNC:
		return "E_OS_NOFUNC"
	case E_OS_RESOURCE:
		return "E_OS_RESOURCE"
	case E_OS_STATE:
		return "E_OS_STATE"
	case E_OS_VALUE:
		return "E_OS_VALUE"
	default:
		return "E_UNKNOWN"
	}
}

// Error implements the error interface. Callers that want a plain
// StatusType (the OSEK-idiomatic return value) rather than an error can
// keep using it directly; both forms compare equal via ==.
func (s StatusType) Error() string {
	return s.String()
}

// ServiceID identifies the kernel service a failed call recorded into the
// ErrorContext, named after the OSEK/AUTOSAR service rather than a raw
// call-site label.
type ServiceID uint8

const (
	ServiceUnknown ServiceID = iota
	ServiceActivateTask
	ServiceActivateTaskPreempt
	ServiceTerminateTask
	ServiceChainTask
	ServiceSchedule
	ServiceGetTaskID
	ServiceGetTaskState
	ServiceGetResource
	ServiceReleaseResource
	ServiceReleaseResourcePreempt
	ServiceSetEvent
	ServiceSetEventPreempt
	ServiceClearEvent
	ServiceGetEvent
	ServiceWaitEvent
	ServiceGetAlarmBase
	ServiceGetAlarm
	ServiceSetRelAlarm
	ServiceSetAbsAlarm
	ServiceCancelAlarm
	ServiceIncrementCounter
	ServiceGetCounterValue
	ServiceGetElapsedValue
	ServiceStartScheduleTableRel
	ServiceStartScheduleTableAbs
	ServiceStartScheduleTableSynchron
	ServiceStopScheduleTable
	ServiceNextScheduleTable
	ServiceSyncScheduleTable
	ServiceSetScheduleTableAsync
	ServiceGetScheduleTableStatus
	ServiceStartOS
	ServiceShutdownOS
)

var serviceNames = [...]string{
	ServiceUnknown:                    "Unknown",
	ServiceActivateTask:               "ActivateTask",
	ServiceActivateTaskPreempt:        "ActivateTaskPreempt",
	ServiceTerminateTask:              "TerminateTask",
	ServiceChainTask:                  "ChainTask",
	ServiceSchedule:                   "Schedule",
	ServiceGetTaskID:                  "GetTaskID",
	ServiceGetTaskState:               "GetTaskState",
	ServiceGetResource:                "GetResource",
	ServiceReleaseResource:            "ReleaseResource",
	ServiceReleaseResourcePreempt:     "ReleaseResourcePreempt",
	ServiceSetEvent:                   "SetEvent",
	ServiceSetEventPreempt:            "SetEventPreempt",
	ServiceClearEvent:                 "ClearEvent",
	ServiceGetEvent:                   "GetEvent",
	ServiceWaitEvent:                  "WaitEvent",
	ServiceGetAlarmBase:               "GetAlarmBase",
	ServiceGetAlarm:                   "GetAlarm",
	ServiceSetRelAlarm:                "SetRelAlarm",
	ServiceSetAbsAlarm:                "SetAbsAlarm",
	ServiceCancelAlarm:                "CancelAlarm",
	ServiceIncrementCounter:           "IncrementCounter",
	ServiceGetCounterValue:            "GetCounterValue",
	ServiceGetElapsedValue:            "GetElapsedValue",
	ServiceStartScheduleTableRel:      "StartScheduleTableRel",
	ServiceStartScheduleTableAbs:      "StartScheduleTableAbs",
	ServiceStartScheduleTableSynchron: "StartScheduleTableSynchron",
	ServiceStopScheduleTable:          "StopScheduleTable",
	ServiceNextScheduleTable:          "NextScheduleTable",
	ServiceSyncScheduleTable:          "SyncScheduleTable",
	ServiceSetScheduleTableAsync:      "SetScheduleTableAsync",
	ServiceGetScheduleTableStatus:     "GetScheduleTableStatus",
	ServiceStartOS:                    "StartOS",
	ServiceShutdownOS:                 "ShutdownOS",
}

// String returns the service's OSEK/AUTOSAR name, used in error logging
// and KernelError's message.
func (s ServiceID) String() string {
	if int(s) < len(serviceNames) {
		return serviceNames[s]
	}
	return "Unknown"
}

// ErrorContext records the last failed service call for ErrorHook
// introspection: the service id plus up to three parameters.
type ErrorContext struct {
	Service ServiceID
	Status  StatusType
	Args    [3]int32
}

// KernelError pairs a failed service with its StatusType for callers that
// wrap a failure as a Go error. The services themselves return a bare
// StatusType, matching OSEK convention, and never construct a KernelError.
type KernelError struct {
	Service ServiceID
	Status  StatusType
}

func (e *KernelError) Error() string {
	return fmt.Sprintf("kernel: service %s failed: %s", e.Service, e.Status)
}

// Unwrap exposes the underlying StatusType so errors.Is(err, kernel.E_OS_ID)
// works against a *KernelError the same way it works against a bare
// StatusType.
func (e *KernelError) Unwrap() error {
	return e.Status
}
