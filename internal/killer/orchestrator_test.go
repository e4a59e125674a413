package killer

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type harness struct {
	usage     *fakeUsage
	tasks     *fakeTasks
	procs     *fakeProcesses
	home      *fakeHome
	presenter *fakePresenter
	recorder  *fakeRecorder
	logs      *observer.ObservedLogs

	authority fakeAuthority
	lockTask  fakeLockTask
	metadata  fakeMetadata
	opts      Options
}

func newHarness() *harness {
	return &harness{
		usage: &fakeUsage{records: []UsageRecord{
			{PackageID: "firefox", LastEventType: EventForeground, LastUsed: 1000},
			{PackageID: "code", LastEventType: EventForeground, LastUsed: 2000},
		}},
		tasks: &fakeTasks{tasks: []RecentTask{
			{TaskID: 1, OwnerPackageID: "code"},
			{TaskID: 2, OwnerPackageID: "gimp"},
			{TaskID: 3, OwnerPackageID: "code"},
		}},
		procs:     &fakeProcesses{},
		home:      &fakeHome{pkg: "nautilus"},
		presenter: &fakePresenter{},
		recorder:  &fakeRecorder{},
		authority: true,
		metadata:  fakeMetadata{"code": "Visual Studio Code"},
		opts: Options{
			UsageWindow:         time.Hour,
			QueryTimeout:        time.Second,
			SystemUIPackage:     "gnome-shell",
			FallbackHomePackage: "nautilus",
			UserID:              1000,
		},
	}
}

func (h *harness) build() *Orchestrator {
	core, logs := observer.New(zapcore.DebugLevel)
	h.logs = logs
	return NewOrchestrator(h.opts, Deps{
		Usage:     h.usage,
		Tasks:     h.tasks,
		Processes: h.procs,
		Metadata:  h.metadata,
		Home:      h.home,
		Presenter: h.presenter,
		Messages:  fakeMessages{},
		Authority: h.authority,
		LockTask:  h.lockTask,
		Recorder:  h.recorder,
	}, zap.New(core))
}

func (h *harness) assertNoSideEffects(t *testing.T) {
	t.Helper()
	assert.Empty(t, h.procs.stopped, "force stop must not be called")
	assert.Empty(t, h.tasks.removed, "no task may be removed")
	assert.Empty(t, h.presenter.messages, "no message may be shown")
}

func TestRunKillsMostRecentApp(t *testing.T) {
	h := newHarness()
	out := h.build().Run(context.Background())

	require.True(t, out.Killed)
	assert.NoError(t, out.Err)
	assert.NotEmpty(t, out.InvocationID)
	assert.Equal(t, "code", out.PackageID)
	assert.Equal(t, "Visual Studio Code", out.DisplayName)
	assert.Equal(t, ReasonNone, out.Reason)

	assert.Equal(t, []string{"code"}, h.procs.stopped)
	assert.Equal(t, []int{1000}, h.procs.userIDs)
	assert.ElementsMatch(t, []int64{1, 3}, h.tasks.removed)
	assert.ElementsMatch(t, []int64{1, 3}, out.RemovedTasks)
	assert.Equal(t, []string{"Visual Studio Code killed"}, h.presenter.messages)
	assert.Equal(t, DefaultTaskFilter(1000), h.tasks.filter)

	require.Len(t, h.recorder.outcomes, 1)
	assert.True(t, h.recorder.outcomes[0].Killed)
}

func TestRunQueriesConfiguredWindow(t *testing.T) {
	h := newHarness()
	h.opts.UsageWindow = 60 * time.Minute
	h.build().Run(context.Background())

	assert.Equal(t, 60*time.Minute, h.usage.end.Sub(h.usage.start))
}

func TestRunGuards(t *testing.T) {
	tests := []struct {
		name       string
		authority  fakeAuthority
		lockTask   fakeLockTask
		wantReason Reason
		wantErr    error
	}{
		{
			name:       "no authority",
			authority:  false,
			wantReason: ReasonPermissionDenied,
			wantErr:    ErrPermissionDenied,
		},
		{
			name:       "lock task active",
			authority:  true,
			lockTask:   fakeLockTask{active: true},
			wantReason: ReasonLockTaskActive,
			wantErr:    ErrLockTaskActive,
		},
		{
			name:       "lock task state unknown",
			authority:  true,
			lockTask:   fakeLockTask{err: errors.New("bus gone")},
			wantReason: ReasonLockTaskActive,
			wantErr:    ErrLockTaskActive,
		},
		{
			name:       "no authority and locked",
			authority:  false,
			lockTask:   fakeLockTask{active: true},
			wantReason: ReasonPermissionDenied,
			wantErr:    ErrPermissionDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.authority = tt.authority
			h.lockTask = tt.lockTask

			out := h.build().Run(context.Background())

			assert.False(t, out.Killed)
			assert.Equal(t, tt.wantReason, out.Reason)
			assert.ErrorIs(t, out.Err, tt.wantErr)
			h.assertNoSideEffects(t)
			assert.Zero(t, h.tasks.listed, "task list must not be queried")
			assert.Zero(t, h.home.calls, "resolution must not begin")
		})
	}
}

func TestRunNothingToKill(t *testing.T) {
	tests := []struct {
		name       string
		records    []UsageRecord
		wantReason Reason
	}{
		{name: "empty history", records: nil, wantReason: ReasonNoneFound},
		{
			name: "only home in foreground",
			records: []UsageRecord{
				{PackageID: "nautilus", LastEventType: EventForeground, LastUsed: 500},
			},
			wantReason: ReasonProtected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.usage.records = tt.records

			out := h.build().Run(context.Background())

			assert.False(t, out.Killed)
			assert.Equal(t, tt.wantReason, out.Reason)
			assert.ErrorIs(t, out.Err, ErrNoTargetFound)
			h.assertNoSideEffects(t)
			assert.Zero(t, h.tasks.listed)
			assert.Equal(t, 1, h.logs.FilterMessage("Nothing to kill").Len())
			assert.Zero(t, h.logs.FilterLevelExact(zapcore.WarnLevel).Len())
		})
	}
}

func TestRunHomeResolvedPerInvocation(t *testing.T) {
	h := newHarness()
	h.usage.records = []UsageRecord{
		{PackageID: "xfdesktop", LastEventType: EventForeground, LastUsed: 100},
	}
	orch := h.build()

	out := orch.Run(context.Background())
	assert.True(t, out.Killed, "custom home is not protected while launcher is home")

	h.home.pkg = "xfdesktop"
	out = orch.Run(context.Background())
	assert.False(t, out.Killed)
	assert.Equal(t, ReasonProtected, out.Reason)
	assert.Equal(t, 2, h.home.calls)
}

func TestRunHomeLookupFailureUsesFallback(t *testing.T) {
	h := newHarness()
	h.home.err = errors.New("no desktop window")
	h.usage.records = []UsageRecord{
		{PackageID: "nautilus", LastEventType: EventForeground, LastUsed: 100},
	}

	out := h.build().Run(context.Background())

	assert.Equal(t, ReasonProtected, out.Reason)
	h.assertNoSideEffects(t)
}

func TestRunUsageQueryFailure(t *testing.T) {
	h := newHarness()
	h.usage.err = errors.New("database is locked")

	out := h.build().Run(context.Background())

	assert.False(t, out.Killed)
	assert.Equal(t, ReasonRemoteFailure, out.Reason)
	assert.ErrorIs(t, out.Err, ErrRemoteService)
	h.assertNoSideEffects(t)
}

func TestRunUsageQueryTimeout(t *testing.T) {
	h := newHarness()
	h.usage.block = true
	h.opts.QueryTimeout = 20 * time.Millisecond

	start := time.Now()
	out := h.build().Run(context.Background())

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, ReasonRemoteFailure, out.Reason)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
	h.assertNoSideEffects(t)
}

func TestRunTaskListTimeout(t *testing.T) {
	h := newHarness()
	h.tasks.delay = 300 * time.Millisecond
	h.opts.QueryTimeout = 20 * time.Millisecond

	start := time.Now()
	out := h.build().Run(context.Background())

	assert.Less(t, time.Since(start), 250*time.Millisecond)
	assert.False(t, out.Killed)
	assert.Equal(t, ReasonRemoteFailure, out.Reason)
	assert.ErrorIs(t, out.Err, ErrRemoteService)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
	h.assertNoSideEffects(t)
}

func TestRunSlowHomeLookupUsesFallback(t *testing.T) {
	h := newHarness()
	h.home = &fakeHome{pkg: "xfdesktop", delay: 300 * time.Millisecond}
	h.opts.QueryTimeout = 20 * time.Millisecond
	h.usage.records = []UsageRecord{
		{PackageID: "nautilus", LastEventType: EventForeground, LastUsed: 100},
	}

	start := time.Now()
	out := h.build().Run(context.Background())

	assert.Less(t, time.Since(start), 250*time.Millisecond)
	assert.False(t, out.Killed)
	assert.Equal(t, ReasonProtected, out.Reason)
	h.assertNoSideEffects(t)
}

func TestRunTaskListFailure(t *testing.T) {
	h := newHarness()
	h.tasks.listErr = errors.New("display closed")

	out := h.build().Run(context.Background())

	assert.False(t, out.Killed)
	assert.Equal(t, ReasonRemoteFailure, out.Reason)
	assert.ErrorIs(t, out.Err, ErrRemoteService)
	h.assertNoSideEffects(t)
}

func TestRunForceStopFailureEndsFlow(t *testing.T) {
	h := newHarness()
	h.procs.err = errors.New("no such process")

	out := h.build().Run(context.Background())

	assert.False(t, out.Killed)
	assert.Equal(t, "code", out.PackageID)
	assert.Equal(t, ReasonRemoteFailure, out.Reason)
	assert.ErrorIs(t, out.Err, ErrRemoteService)
	assert.Empty(t, h.tasks.removed)
	assert.Empty(t, h.presenter.messages)
}

func TestApplyPrunesOnlyMatchingTasks(t *testing.T) {
	h := newHarness()
	orch := h.build()

	out := orch.Apply(context.Background(), KillDecision{TargetPackageID: "code"}, h.tasks.tasks)

	require.True(t, out.Killed)
	assert.ElementsMatch(t, []int64{1, 3}, h.tasks.removed)
	assert.NotContains(t, h.tasks.removed, int64(2))
}

func TestApplyContinuesPastRemovalFailure(t *testing.T) {
	h := newHarness()
	h.tasks.removeErr = map[int64]error{1: errors.New("window vanished")}

	out := h.build().Apply(context.Background(), KillDecision{TargetPackageID: "code"}, h.tasks.tasks)

	assert.True(t, out.Killed)
	assert.Equal(t, []int64{3}, out.RemovedTasks)
	assert.Len(t, h.presenter.messages, 1)
	assert.Equal(t, 1, h.logs.FilterMessage("Failed to remove task").Len())
}

func TestApplyDisplayNameFallback(t *testing.T) {
	h := newHarness()
	h.metadata = fakeMetadata{}

	out := h.build().Apply(context.Background(), KillDecision{TargetPackageID: "code"}, nil)

	require.True(t, out.Killed)
	assert.Equal(t, "code", out.DisplayName)
	assert.Equal(t, []string{"code killed"}, h.presenter.messages)
}

func TestApplyEmptyDisplayNameFallsBack(t *testing.T) {
	h := newHarness()
	h.metadata = fakeMetadata{"code": ""}

	out := h.build().Apply(context.Background(), KillDecision{TargetPackageID: "code"}, nil)

	assert.Equal(t, "code", out.DisplayName)
}

func TestApplyNoTarget(t *testing.T) {
	h := newHarness()

	out := h.build().Apply(context.Background(), KillDecision{Skipped: true, Reason: ReasonNoneFound}, h.tasks.tasks)

	assert.False(t, out.Killed)
	assert.Equal(t, ReasonNoneFound, out.Reason)
	h.assertNoSideEffects(t)
}

func TestApplyPresenterFailureIsIgnored(t *testing.T) {
	h := newHarness()
	h.presenter.err = errors.New("no notification daemon")

	out := h.build().Apply(context.Background(), KillDecision{TargetPackageID: "code"}, nil)

	assert.True(t, out.Killed)
	assert.NoError(t, out.Err)
}

func TestApplyIgnoresTriggerCancellation(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := h.build().Apply(ctx, KillDecision{TargetPackageID: "code"}, h.tasks.tasks)

	assert.True(t, out.Killed)
	assert.NoError(t, h.procs.ctxErr)
	assert.ElementsMatch(t, []int64{1, 3}, h.tasks.removed)
}

func TestDecideHasNoSideEffects(t *testing.T) {
	h := newHarness()

	decision, err := h.build().Decide(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "code", decision.TargetPackageID)
	h.assertNoSideEffects(t)
	assert.Zero(t, h.tasks.listed)
}
