package kernel

import "fmt"

// Tick is a counter value or a relative/absolute tick offset, matching the
// OSEK TickType.
type Tick uint64

// EventMask is the bitset of events a task may own. Its width is whatever
// the application declares; the kernel never assumes a fixed width beyond
// the 64 bits Go's uint64 gives it. OSEK implementations typically pick
// the smallest integer width fitting all declared events per task, a
// generator packing concern the static Config need not reproduce.
type EventMask uint64

// AppModeID selects which of a Config's auto-start vectors StartOS uses.
type AppModeID int

// TaskID, ResourceID, CounterID, AlarmID and TableID are arena indices
// into their respective Config/Kernel slices: pointer graphs are
// implemented as indices into static arrays rather than raw pointers,
// since every entity here is generator-created and never freed.
type (
	TaskID     int
	ResourceID int
	CounterID  int
	AlarmID    int
	TableID    int
)

// noTask, noResource, ... are the "no entity" sentinels used where a zero
// index would otherwise be ambiguous with a real id 0.
const (
	noTask     TaskID     = -1
	noResource ResourceID = -1
	noAlarm    AlarmID    = -1
	noTable    TableID    = -1
)

// IdleTaskID is the reserved id of the always-runnable, lowest-priority
// idle task every Config implicitly carries, guaranteeing NextTask always
// finds something to run.
const IdleTaskID TaskID = 0

// SchedulerResourceID is the reserved id of the internal "scheduler"
// resource (entry 0 of the resource array, reserved for RES_SCHEDULER),
// used by Schedule to protect the scheduler's own bookkeeping without
// being user-visible.
const SchedulerResourceID ResourceID = 0

// TaskConfig is one task's static, generator-produced declaration.
type TaskConfig struct {
	// Entry is the task's entry point. For a basic task it must run to
	// completion (or self-Chain/be preempted); for an extended task it
	// may call WaitEvent.
	Entry func()
	// Priority is the task's original (base) priority; higher values
	// preempt lower ones.
	Priority uint8
	// InternalResourceCeiling is the ceiling priority of this task's
	// internal resource, or -1 if it has none. Non-preemptable tasks are
	// modeled with InternalResourceCeiling == MaxPriority.
	InternalResourceCeiling int16
	// MaxActivations bounds ActivateTask's multi-activation queue depth.
	MaxActivations uint8
	// Extended marks the task as event-capable (may WaitEvent); false
	// means a basic task.
	Extended bool
	// Events is the set of event bits this extended task owns. Ignored
	// for basic tasks.
	Events EventMask
}

// AlarmAction selects what FireAlarm does when an alarm expires.
type AlarmAction uint8

const (
	AlarmActivateTask AlarmAction = iota
	AlarmSetEvent
	AlarmCallback
)

// AlarmConfig is one alarm's static declaration: which counter drives it
// and what it does when it fires. Exactly one of Task/EventMask/Callback
// is meaningful, selected by Action.
type AlarmConfig struct {
	Counter   CounterID
	Action    AlarmAction
	Task      TaskID    // for AlarmActivateTask
	EventMask EventMask // for AlarmSetEvent
	Callback  func()    // for AlarmCallback
}

// ResourceConfig is one resource's static declaration.
type ResourceConfig struct {
	// Ceiling is this resource's own ceiling priority: the maximum
	// original priority of any task that may acquire it.
	Ceiling uint8
	// LinkGroup, if non-zero, names a set of resources that share a
	// single ceiling equal to the maximum ceiling declared across the
	// group. Aggregated once, eagerly, when the Config is validated in New.
	LinkGroup int
}

// CounterConfig is one counter's static properties (OSEK's
// maxallowedvalue/ticksperbase/mincycle).
type CounterConfig struct {
	MaxAllowedValue Tick
	TicksPerBase    Tick
	MinCycle        Tick
}

// EventSetting pairs a task with the events a schedule-table expiry point
// sets on it.
type EventSetting struct {
	Task TaskID
	Mask EventMask
}

// ExpiryPointConfig is one point on a schedule table's timeline: an
// offset from table start, the tasks it activates (processed before
// events), the events it sets, and the explicit-sync adjustment bounds
// for the interval following this point.
type ExpiryPointConfig struct {
	Offset      Tick
	Activations []TaskID
	Events      []EventSetting
	MaxLengthen Tick
	MaxShorten  Tick
}

// SyncStrategy selects how a schedule table participates in explicit
// synchronization.
type SyncStrategy uint8

const (
	SyncNone SyncStrategy = iota
	SyncImplicit
	SyncExplicit
)

// ScheduleTableConfig is one schedule table's static declaration. Its
// expiry points must be supplied sorted by ascending Offset.
type ScheduleTableConfig struct {
	Counter      CounterID
	ExpiryPoints []ExpiryPointConfig
	Duration     Tick
	Precision    Tick
	Repeating    bool
	Sync         SyncStrategy
}

// ScheduleTableStartKind selects which of StartScheduleTableRel/Abs/
// Synchron an auto-start entry uses.
type ScheduleTableStartKind uint8

const (
	StartRel ScheduleTableStartKind = iota
	StartAbs
	StartSynchron
)

// AlarmAutoStart is one "initialize this alarm on entry to this mode"
// entry from the generator's auto-start vectors.
type AlarmAutoStart struct {
	Alarm    AlarmID
	Absolute bool
	Value    Tick // relative increment, or absolute start tick
	Cycle    Tick
}

// ScheduleTableAutoStart is one "start this table on entry to this mode"
// entry.
type ScheduleTableAutoStart struct {
	Table TableID
	Kind  ScheduleTableStartKind
	Value Tick // start tick/offset; ignored for StartSynchron
}

// AppMode is one compile-time-enumerated application mode: the set of
// tasks, alarms and schedule tables StartOS brings up automatically.
type AppMode struct {
	Name            string
	AutoStartTasks  []TaskID
	AutoStartAlarms []AlarmAutoStart
	AutoStartTables []ScheduleTableAutoStart
}

// Config bundles everything the (out-of-scope) configuration generator
// would otherwise produce: the fixed task/resource/counter/alarm/
// schedule-table arrays, the ISR list and the per-mode auto-start
// vectors. Every integer id elsewhere in this package is an
// index into one of these slices (IdleTaskID and SchedulerResourceID are
// reserved and, if absent, synthesized by validate).
type Config struct {
	// Extended selects the extended-status build (full precondition
	// validation) versus the standard build (only id checks that could
	// corrupt kernel state). See WithExtendedStatus.
	Extended bool

	Tasks     []TaskConfig
	Resources []ResourceConfig
	Counters  []CounterConfig
	Alarms    []AlarmConfig
	Tables    []ScheduleTableConfig
	ISRs      []ISRHandle
	Modes     []AppMode

	// MaxPriority is the highest valid task priority; ready-queue slots
	// span [0, MaxPriority].
	MaxPriority uint8
}

// maxPriorityAmongTasks is used by validate to size the reserved
// SchedulerResourceID's ceiling when the caller didn't declare resource 0
// explicitly.
func (c *Config) maxPriorityAmongTasks() uint8 {
	var max uint8
	for _, t := range c.Tasks {
		if t.Priority > max {
			max = t.Priority
		}
	}
	return max
}

// validate checks static well-formedness and performs the one-time, at
// construction, aggregations a real generator would have done ahead of
// time: reserving task 0 as the idle task, reserving resource 0 as
// RES_SCHEDULER, and computing each linked-resource group's shared
// ceiling.
func (c *Config) validate() error {
	if len(c.Tasks) == 0 {
		c.Tasks = []TaskConfig{{Entry: func() {}, Priority: 0, MaxActivations: 1}}
	}
	if len(c.Resources) == 0 {
		c.Resources = append(c.Resources, ResourceConfig{})
	}
	if c.Resources[SchedulerResourceID].Ceiling == 0 {
		c.Resources[SchedulerResourceID].Ceiling = c.maxPriorityAmongTasks()
	}

	groupCeiling := map[int]uint8{}
	for _, r := range c.Resources {
		if r.LinkGroup == 0 {
			continue
		}
		if r.Ceiling > groupCeiling[r.LinkGroup] {
			groupCeiling[r.LinkGroup] = r.Ceiling
		}
	}
	for i, r := range c.Resources {
		if r.LinkGroup != 0 {
			c.Resources[i].Ceiling = groupCeiling[r.LinkGroup]
		}
	}

	for i, t := range c.Tasks {
		if int(t.Priority) > int(c.MaxPriority) {
			return fmt.Errorf("kernel: task %d priority %d exceeds MaxPriority %d", i, t.Priority, c.MaxPriority)
		}
		// Zero is indistinguishable from an un-set field; a ceiling of 0
		// could never protect an internal resource from anything above
		// idle priority anyway, so treat it as "no internal resource"
		// rather than requiring every task literal to spell out -1.
		if t.InternalResourceCeiling == 0 {
			c.Tasks[i].InternalResourceCeiling = -1
		}
	}
	for i, a := range c.Alarms {
		if int(a.Counter) < 0 || int(a.Counter) >= len(c.Counters) {
			return fmt.Errorf("kernel: alarm %d references invalid counter %d", i, a.Counter)
		}
	}
	for i, tb := range c.Tables {
		if int(tb.Counter) < 0 || int(tb.Counter) >= len(c.Counters) {
			return fmt.Errorf("kernel: schedule table %d references invalid counter %d", i, tb.Counter)
		}
		for j := 1; j < len(tb.ExpiryPoints); j++ {
			if tb.ExpiryPoints[j].Offset <= tb.ExpiryPoints[j-1].Offset {
				return fmt.Errorf("kernel: schedule table %d expiry points not strictly increasing at index %d", i, j)
			}
		}
	}
	return nil
}
