package killer

import (
	"context"
	"time"
)

// UsageSource returns usage records observed inside [start, end]
type UsageSource interface {
	QueryRecentUsage(ctx context.Context, start, end time.Time) ([]UsageRecord, error)
}

// TaskFilter narrows the live task list
type TaskFilter struct {
	IgnoreHome        bool
	IgnorePinned      bool
	IgnoreUnavailable bool
	IncludeProfiles   bool
	UserID            int
}

// DefaultTaskFilter excludes home and pinned tasks and includes every
// profile of the active user.
func DefaultTaskFilter(userID int) TaskFilter {
	return TaskFilter{
		IgnoreHome:        true,
		IgnorePinned:      true,
		IgnoreUnavailable: true,
		IncludeProfiles:   true,
		UserID:            userID,
	}
}

// TaskManager lists and removes entries of the recents list
type TaskManager interface {
	ListRecentTasks(ctx context.Context, filter TaskFilter) ([]RecentTask, error)
	RemoveTask(ctx context.Context, taskID int64) error
}

// ProcessController terminates every process of a package for a user.
// It fails when nothing is running or the caller lacks authority.
type ProcessController interface {
	ForceStop(ctx context.Context, packageID string, userID int) error
}

// MetadataProvider resolves a human-readable label for a package.
// It returns ErrNotFound when the package is unknown.
type MetadataProvider interface {
	DisplayName(packageID string) (string, error)
}

// HomeResolver returns the current default home package
type HomeResolver interface {
	DefaultHomePackage(ctx context.Context) (string, error)
}

// Presenter shows a short-lived message to the user. Fire and forget.
type Presenter interface {
	ShowTransientMessage(ctx context.Context, text string) error
}

// MessageFormatter renders the localized "app killed" text
type MessageFormatter interface {
	AppKilled(displayName string) string
}

// Authority reports whether this process may force-stop packages
type Authority interface {
	HasForceStopAuthority() bool
}

// LockTask reports whether the session is pinned to a single task
type LockTask interface {
	IsSingleTaskModeActive(ctx context.Context) (bool, error)
}

// Recorder observes terminal outcomes (metrics)
type Recorder interface {
	ObserveOutcome(o Outcome, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOutcome(Outcome, time.Duration) {}
