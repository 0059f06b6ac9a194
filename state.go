package kernel

// TaskState is a task's position in its lifecycle. A task never ceases to
// exist; it only moves between these four states.
type TaskState uint8

const (
	// Suspended tasks hold no context and are not queued anywhere.
	Suspended TaskState = iota
	// Ready tasks are queued in their current-priority slot, waiting to
	// be dispatched.
	Ready
	// Waiting tasks have blocked in WaitEvent; only extended tasks reach
	// this state.
	Waiting
	// Running is held by at most one task at a time: the one the kernel
	// context is currently dispatched to.
	Running
)

func (s TaskState) String() string {
	switch s {
	case Suspended:
		return "Suspended"
	case Ready:
		return "Ready"
	case Waiting:
		return "Waiting"
	case Running:
		return "Running"
	default:
		return "Unknown"
	}
}

// ScheduleTableStatus is a schedule table's position in its state machine.
type ScheduleTableStatus uint8

const (
	// TableStopped tables are not driven by their counter at all.
	TableStopped ScheduleTableStatus = iota
	// TableNext tables are queued to take over from a predecessor via
	// NextScheduleTable, but have not started processing expiry points
	// yet.
	TableNext
	// TableWaiting tables have been started with StartScheduleTableSynchron
	// and are parked until the first SyncScheduleTable call.
	TableWaiting
	// TableRunning tables are actively processing expiry points.
	TableRunning
	// TableRunningAndSync is TableRunning with |deviation| <= precision
	// since the last SyncScheduleTable call.
	TableRunningAndSync
)

func (s ScheduleTableStatus) String() string {
	switch s {
	case TableStopped:
		return "Stopped"
	case TableNext:
		return "Next"
	case TableWaiting:
		return "Waiting"
	case TableRunning:
		return "Running"
	case TableRunningAndSync:
		return "RunningAndSync"
	default:
		return "Unknown"
	}
}

// dispatchFlag distinguishes the two ways Dispatch may hand off from the
// outgoing task.
type dispatchFlag uint8

const (
	// dispatchBlock preserves the outgoing task's context in its TCB; it
	// will resume later.
	dispatchBlock dispatchFlag = iota
	// dispatchDiscard means the outgoing task is terminating; its context
	// is never resumed.
	dispatchDiscard
)
