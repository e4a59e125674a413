package killer

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

type fakeUsage struct {
	records []UsageRecord
	err     error
	block   bool

	start, end time.Time
}

func (f *fakeUsage) QueryRecentUsage(ctx context.Context, start, end time.Time) ([]UsageRecord, error) {
	f.start, f.end = start, end
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.records, f.err
}

type fakeTasks struct {
	mu        sync.Mutex
	tasks     []RecentTask
	listErr   error
	removeErr map[int64]error
	removed   []int64
	listed    int
	filter    TaskFilter
	delay     time.Duration // ignores ctx while sleeping
}

func (f *fakeTasks) ListRecentTasks(_ context.Context, filter TaskFilter) ([]RecentTask, error) {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed++
	f.filter = filter
	return f.tasks, f.listErr
}

func (f *fakeTasks) RemoveTask(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.removeErr[id]; err != nil {
		return err
	}
	f.removed = append(f.removed, id)
	return nil
}

type fakeProcesses struct {
	err     error
	stopped []string
	userIDs []int
	ctxErr  error
}

func (f *fakeProcesses) ForceStop(ctx context.Context, pkg string, userID int) error {
	f.ctxErr = ctx.Err()
	if f.err != nil {
		return f.err
	}
	f.stopped = append(f.stopped, pkg)
	f.userIDs = append(f.userIDs, userID)
	return nil
}

type fakeMetadata map[string]string

func (f fakeMetadata) DisplayName(pkg string) (string, error) {
	name, ok := f[pkg]
	if !ok {
		return "", errors.Wrapf(ErrNotFound, "package %s", pkg)
	}
	return name, nil
}

type fakeHome struct {
	pkg   string
	err   error
	calls int
	delay time.Duration // ignores ctx while sleeping
}

func (f *fakeHome) DefaultHomePackage(context.Context) (string, error) {
	f.calls++
	time.Sleep(f.delay)
	return f.pkg, f.err
}

type fakePresenter struct {
	messages []string
	err      error
}

func (f *fakePresenter) ShowTransientMessage(_ context.Context, text string) error {
	f.messages = append(f.messages, text)
	return f.err
}

type fakeMessages struct{}

func (fakeMessages) AppKilled(name string) string {
	return name + " killed"
}

type fakeAuthority bool

func (f fakeAuthority) HasForceStopAuthority() bool { return bool(f) }

type fakeLockTask struct {
	active bool
	err    error
}

func (f fakeLockTask) IsSingleTaskModeActive(context.Context) (bool, error) {
	return f.active, f.err
}

type fakeRecorder struct {
	outcomes []Outcome
}

func (f *fakeRecorder) ObserveOutcome(o Outcome, _ time.Duration) {
	f.outcomes = append(f.outcomes, o)
}
