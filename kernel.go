package kernel

import (
	"fmt"

	"github.com/sdvos-go/kernel/internal/klog"
)

// Kernel is the single context object: every piece of mutable state the
// kernel manages lives here, and every service is a method taking
// *Kernel explicitly rather than touching package-level globals. A
// Kernel is built once from a Config and is never resized:
// every arena slice is allocated in New and indexed by the TaskID/
// ResourceID/CounterID/AlarmID/TableID the Config assigned it.
type Kernel struct {
	cfg Config

	tasks     []Task
	resources []Resource
	counters  []Counter
	alarms    []AlarmNode
	tables    []ScheduleTable

	readyQueue []prioSlot
	running    TaskID
	mode       AppModeID

	isr isrState

	opts   kernelOptions
	hooks  Hooks
	arch   Arch
	guard  hookGuard
	logger klog.Logger

	lastError ErrorContext
}

// New builds a Kernel from cfg, which is validated and may have its
// zero-valued fields (idle task, RES_SCHEDULER, linked-resource ceilings)
// filled in as a side effect (Config.validate). WithArch is
// required; every other Option defaults to an inert choice (standard
// build, no hooks, a no-op logger).
func New(cfg Config, opts ...Option) (*Kernel, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := kernelOptions{logger: klog.Nop(), extended: cfg.Extended}
	for _, opt := range opts {
		opt.apply(&o)
	}
	if o.arch == nil {
		return nil, fmt.Errorf("kernel: WithArch is required")
	}

	k := &Kernel{
		cfg:     cfg,
		opts:    o,
		hooks:   o.hooks,
		arch:    o.arch,
		logger:  o.logger,
		running: IdleTaskID,
	}

	k.tasks = make([]Task, len(cfg.Tasks))
	for i := range k.tasks {
		k.tasks[i] = Task{
			id:        TaskID(i),
			cfg:       &cfg.Tasks[i],
			priority:  cfg.Tasks[i].Priority,
			state:     Suspended,
			queueNext: noTask,
		}
	}
	// The idle task is always runnable and starts out Running rather than
	// queued, matching the ready-queue invariant that a running task
	// occupies no slot.
	k.tasks[IdleTaskID].state = Running
	k.tasks[IdleTaskID].act = 1

	k.resources = make([]Resource, len(cfg.Resources))
	for i := range k.resources {
		k.resources[i] = Resource{id: ResourceID(i), ceiling: cfg.Resources[i].Ceiling}
	}

	k.counters = make([]Counter, len(cfg.Counters))
	for i := range k.counters {
		k.counters[i] = Counter{
			id:        CounterID(i),
			cfg:       &cfg.Counters[i],
			alarmHead: noAlarm,
			tableHead: noTable,
		}
	}

	k.alarms = make([]AlarmNode, len(cfg.Alarms))
	for i := range k.alarms {
		k.alarms[i] = AlarmNode{id: AlarmID(i), cfg: &cfg.Alarms[i], prev: noAlarm, next: noAlarm}
	}

	k.tables = make([]ScheduleTable, len(cfg.Tables))
	for i := range k.tables {
		tcfg := &cfg.Tables[i]
		var delay Tick
		if n := len(tcfg.ExpiryPoints); n > 0 {
			delay = tcfg.Duration - tcfg.ExpiryPoints[n-1].Offset
		}
		k.tables[i] = ScheduleTable{
			id:      TableID(i),
			cfg:     tcfg,
			status:  TableStopped,
			nextExp: noExpiry,
			toTbl:   noTable,
			fromTbl: noTable,
			prev:    noTable,
			next:    noTable,
			delay:   delay,
		}
	}

	k.readyQueue = make([]prioSlot, int(cfg.MaxPriority)+1)
	for i := range k.readyQueue {
		k.readyQueue[i] = newPrioSlot()
	}

	return k, nil
}

// fail is the single choke point every failing service funnels through:
// it records the (service, args) error context, logs it, and invokes
// ErrorHook under the recursion guard, then returns status unchanged for
// the caller to return directly.
func (k *Kernel) fail(svc ServiceID, status StatusType, args ...int32) StatusType {
	var recorded [3]int32
	copy(recorded[:], args)
	ctx := ErrorContext{Service: svc, Status: status, Args: recorded}
	k.lastError = ctx

	k.logger.Error(svc.String(), status.String(), args...)
	k.guard.runErrorHook(k.hooks, ctx)

	return status
}

// LastError returns the error context recorded by the most recently
// failed service call, for callers that want to inspect it outside
// ErrorHook.
func (k *Kernel) LastError() ErrorContext {
	return k.lastError
}
