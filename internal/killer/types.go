package killer

import (
	"strings"

	"github.com/pkg/errors"
)

// EventType is the kind of the last usage event recorded for an app
type EventType int

const (
	EventOther EventType = iota
	EventForeground
	EventBackground
)

func (e EventType) String() string {
	switch e {
	case EventForeground:
		return "foreground"
	case EventBackground:
		return "background"
	default:
		return "other"
	}
}

// ParseEventType maps a stored event name back to an EventType
func ParseEventType(s string) EventType {
	switch strings.ToLower(s) {
	case "foreground":
		return EventForeground
	case "background":
		return EventBackground
	default:
		return EventOther
	}
}

// UsageRecord is one app's usage snapshot inside the query window
type UsageRecord struct {
	PackageID     string    `json:"package_id"`
	LastEventType EventType `json:"last_event_type"`
	LastUsed      int64     `json:"last_used"` // epoch milliseconds
}

// RecentTask is one entry of the live task list (a top-level window on X11)
type RecentTask struct {
	TaskID         int64  `json:"task_id"`
	OwnerPackageID string `json:"owner_package_id"`
}

// Reason explains why an invocation did or did not kill anything
type Reason int

const (
	ReasonNone Reason = iota
	ReasonNoneFound
	ReasonProtected
	ReasonLockTaskActive
	ReasonPermissionDenied
	ReasonRemoteFailure
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNoneFound:
		return "none_found"
	case ReasonProtected:
		return "protected"
	case ReasonLockTaskActive:
		return "lock_task_active"
	case ReasonPermissionDenied:
		return "permission_denied"
	case ReasonRemoteFailure:
		return "remote_failure"
	default:
		return "unknown"
	}
}

// MarshalText lets reasons render by name in JSON and logs
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Reason) UnmarshalText(text []byte) error {
	for c := ReasonNone; c <= ReasonRemoteFailure; c++ {
		if c.String() == string(text) {
			*r = c
			return nil
		}
	}
	return errors.Errorf("unknown reason %q", text)
}

// KillDecision is the resolver's verdict for a single invocation.
// An empty TargetPackageID means there is nothing to kill.
type KillDecision struct {
	TargetPackageID string `json:"target_package_id,omitempty"`
	DisplayName     string `json:"display_name,omitempty"`
	Skipped         bool   `json:"skipped"`
	Reason          Reason `json:"reason"`
}

// HasTarget reports whether the decision names a package to kill
func (d KillDecision) HasTarget() bool {
	return d.TargetPackageID != ""
}

// ProtectedSet holds the packages that are never killed.
// It is rebuilt on every invocation since the home app can change.
type ProtectedSet struct {
	SystemUI string `json:"system_ui"`
	Home     string `json:"home"`
}

// Contains reports whether pkg is protected
func (p ProtectedSet) Contains(pkg string) bool {
	return samePackage(pkg, p.SystemUI) || samePackage(pkg, p.Home)
}

// Outcome is the terminal result of one orchestrator invocation
type Outcome struct {
	InvocationID string  `json:"invocation_id"`
	Killed       bool    `json:"killed"`
	PackageID    string  `json:"package_id,omitempty"`
	DisplayName  string  `json:"display_name,omitempty"`
	Reason       Reason  `json:"reason"`
	RemovedTasks []int64 `json:"removed_tasks,omitempty"`
	Err          error   `json:"-"`
}

// ErrorMessage returns the failure message, if any
func (o Outcome) ErrorMessage() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

func samePackage(a, b string) bool {
	return a != "" && b != "" && strings.EqualFold(a, b)
}
