package killer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Options tunes a single orchestrator
type Options struct {
	UsageWindow         time.Duration
	QueryTimeout        time.Duration
	SystemUIPackage     string
	FallbackHomePackage string
	UserID              int
}

// Deps bundles the collaborators the orchestrator talks to
type Deps struct {
	Usage     UsageSource
	Tasks     TaskManager
	Processes ProcessController
	Metadata  MetadataProvider
	Home      HomeResolver
	Presenter Presenter
	Messages  MessageFormatter
	Authority Authority
	LockTask  LockTask
	Recorder  Recorder
}

// Orchestrator runs one kill invocation at a time. It keeps no state
// between invocations.
type Orchestrator struct {
	opts   Options
	deps   Deps
	logger *zap.Logger
	now    func() time.Time
}

// NewOrchestrator wires an orchestrator. Recorder may be nil.
func NewOrchestrator(opts Options, deps Deps, logger *zap.Logger) *Orchestrator {
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		opts:   opts,
		deps:   deps,
		logger: logger.Named("killer"),
		now:    time.Now,
	}
}

// Run performs a full invocation: guards, resolution, termination,
// recents pruning and notification.
func (o *Orchestrator) Run(ctx context.Context) Outcome {
	start := o.now()
	id := uuid.NewString()
	log := o.logger.With(zap.String("invocation_id", id))

	out := o.run(ctx, log)
	out.InvocationID = id
	o.deps.Recorder.ObserveOutcome(out, o.now().Sub(start))
	return out
}

func (o *Orchestrator) run(ctx context.Context, log *zap.Logger) Outcome {
	if reason, ok := o.guard(ctx, log); !ok {
		return Outcome{Reason: reason, Err: reasonError(reason)}
	}

	decision, err := o.Decide(ctx)
	if err != nil {
		log.Warn("Usage history unavailable, aborting", zap.Error(err))
		return Outcome{Reason: ReasonRemoteFailure, Err: err}
	}

	if !decision.HasTarget() {
		return o.apply(ctx, log, decision, nil)
	}

	tasks, err := o.listTasks(ctx)
	if err != nil {
		log.Warn("Task list unavailable, aborting", zap.Error(err))
		return Outcome{Reason: ReasonRemoteFailure, Err: err}
	}

	return o.apply(ctx, log, decision, tasks)
}

// guard checks the preconditions. It never causes side effects.
func (o *Orchestrator) guard(ctx context.Context, log *zap.Logger) (Reason, bool) {
	if !o.deps.Authority.HasForceStopAuthority() {
		log.Info("Caller cannot kill processes, aborting")
		return ReasonPermissionDenied, false
	}

	active, err := o.deps.LockTask.IsSingleTaskModeActive(ctx)
	if err != nil {
		// An unknown lock state is treated as locked.
		log.Warn("Lock-task state unknown, aborting", zap.Error(err))
		return ReasonLockTaskActive, false
	}
	if active {
		log.Info("Single-task mode active, aborting")
		return ReasonLockTaskActive, false
	}

	return ReasonNone, true
}

// Decide queries the usage history and resolves a decision without any
// side effect. A failing usage query is returned as ErrRemoteService.
func (o *Orchestrator) Decide(ctx context.Context) (KillDecision, error) {
	records, err := o.queryUsage(ctx)
	if err != nil {
		return KillDecision{}, err
	}
	return Resolve(records, o.ProtectedSet(ctx)), nil
}

// ProtectedSet builds the protected set for this moment. The home
// package is looked up every time; a lookup that fails or outlives the
// query timeout leaves the fallback home in place.
func (o *Orchestrator) ProtectedSet(ctx context.Context) ProtectedSet {
	home := o.opts.FallbackHomePackage
	if o.deps.Home != nil {
		pkg, err := within(ctx, o.opts.QueryTimeout, o.deps.Home.DefaultHomePackage)
		switch {
		case err != nil:
			o.logger.Debug("Default home lookup failed, using fallback",
				zap.String("fallback", home), zap.Error(err))
		case pkg != "":
			home = pkg
		}
	}
	return ProtectedSet{SystemUI: o.opts.SystemUIPackage, Home: home}
}

func (o *Orchestrator) queryUsage(ctx context.Context) ([]UsageRecord, error) {
	end := o.now()
	start := end.Add(-o.opts.UsageWindow)
	records, err := within(ctx, o.opts.QueryTimeout, func(ctx context.Context) ([]UsageRecord, error) {
		return o.deps.Usage.QueryRecentUsage(ctx, start, end)
	})
	if err != nil {
		return nil, remoteFailure("query usage", err)
	}
	return records, nil
}

func (o *Orchestrator) listTasks(ctx context.Context) ([]RecentTask, error) {
	filter := DefaultTaskFilter(o.opts.UserID)
	tasks, err := within(ctx, o.opts.QueryTimeout, func(ctx context.Context) ([]RecentTask, error) {
		return o.deps.Tasks.ListRecentTasks(ctx, filter)
	})
	if err != nil {
		return nil, remoteFailure("list tasks", err)
	}
	return tasks, nil
}

// within runs call with a deadline of timeout and returns as soon as the
// deadline passes, whether or not call honors ctx. An abandoned call keeps
// running in its goroutine and its result is dropped.
func within[T any](ctx context.Context, timeout time.Duration, call func(context.Context) (T, error)) (T, error) {
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := call(ctx)
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Apply acts on an already resolved decision using the given task
// snapshot. Guards are not evaluated here; Run does that.
func (o *Orchestrator) Apply(ctx context.Context, decision KillDecision, tasks []RecentTask) Outcome {
	return o.apply(ctx, o.logger, decision, tasks)
}

func (o *Orchestrator) apply(ctx context.Context, log *zap.Logger, decision KillDecision, tasks []RecentTask) Outcome {
	if !decision.HasTarget() {
		log.Debug("Nothing to kill", zap.Stringer("reason", decision.Reason))
		return Outcome{Reason: decision.Reason, Err: reasonError(decision.Reason)}
	}

	pkg := decision.TargetPackageID
	log = log.With(zap.String("package", pkg))

	// A kill in flight is not preempted by the trigger going away.
	ctx = context.WithoutCancel(ctx)

	if err := o.deps.Processes.ForceStop(ctx, pkg, o.opts.UserID); err != nil {
		log.Warn("Force stop failed", zap.Error(err))
		return Outcome{
			PackageID: pkg,
			Reason:    ReasonRemoteFailure,
			Err:       remoteFailure("force stop", err),
		}
	}

	removed := o.prune(ctx, log, pkg, tasks)
	name := o.displayName(log, pkg)

	text := name
	if o.deps.Messages != nil {
		text = o.deps.Messages.AppKilled(name)
	}
	if o.deps.Presenter != nil {
		if err := o.deps.Presenter.ShowTransientMessage(ctx, text); err != nil {
			log.Debug("Notification not shown", zap.Error(err))
		}
	}

	log.Info("Killed foreground app",
		zap.String("display_name", name),
		zap.Int64s("removed_tasks", removed))

	return Outcome{
		Killed:       true,
		PackageID:    pkg,
		DisplayName:  name,
		Reason:       ReasonNone,
		RemovedTasks: removed,
	}
}

// prune removes every task owned by pkg and nothing else
func (o *Orchestrator) prune(ctx context.Context, log *zap.Logger, pkg string, tasks []RecentTask) []int64 {
	var removed []int64
	for _, task := range tasks {
		if !samePackage(task.OwnerPackageID, pkg) {
			continue
		}
		if err := o.deps.Tasks.RemoveTask(ctx, task.TaskID); err != nil {
			log.Warn("Failed to remove task", zap.Int64("task_id", task.TaskID), zap.Error(err))
			continue
		}
		removed = append(removed, task.TaskID)
	}
	return removed
}

// displayName falls back to the raw package id
func (o *Orchestrator) displayName(log *zap.Logger, pkg string) string {
	if o.deps.Metadata == nil {
		return pkg
	}
	name, err := o.deps.Metadata.DisplayName(pkg)
	if err != nil || name == "" {
		if err != nil && !errors.Is(err, ErrNotFound) {
			log.Debug("Display name lookup failed", zap.Error(err))
		}
		return pkg
	}
	return name
}
