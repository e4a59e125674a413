package x11

import (
	"context"
	"strings"

	"killfocus/internal/killer"
	"killfocus/pkg/window"
)

// TaskManager exposes the window manager's client list as the recents list.
// Every window on the display belongs to the session user, so the user
// and profile parts of the filter are satisfied by the display itself.
type TaskManager struct {
	windows window.Lister
}

func NewTaskManager(windows window.Lister) *TaskManager {
	return &TaskManager{windows: windows}
}

func (m *TaskManager) ListRecentTasks(ctx context.Context, filter killer.TaskFilter) ([]killer.RecentTask, error) {
	windows, err := m.windows.ListWindows()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return filterTasks(windows, filter), nil
}

func (m *TaskManager) RemoveTask(_ context.Context, taskID int64) error {
	return m.windows.CloseWindow(uint32(taskID))
}

// OwnerPIDs returns the _NET_WM_PID of every window whose class is
// packageID. Windows without a PID are skipped.
func (m *TaskManager) OwnerPIDs(_ context.Context, packageID string) ([]int, error) {
	windows, err := m.windows.ListWindows()
	if err != nil {
		return nil, err
	}
	var pids []int
	for _, w := range windows {
		if w.PID != 0 && strings.EqualFold(w.AppName, packageID) {
			pids = append(pids, int(w.PID))
		}
	}
	return pids, nil
}

// filterTasks maps windows to tasks, most recently mapped first
func filterTasks(windows []window.WindowInfo, filter killer.TaskFilter) []killer.RecentTask {
	tasks := make([]killer.RecentTask, 0, len(windows))
	for i := len(windows) - 1; i >= 0; i-- {
		w := windows[i]
		if filter.IgnoreHome && (w.Desktop || w.Dock) {
			continue
		}
		if filter.IgnorePinned && w.Sticky {
			continue
		}
		if filter.IgnoreUnavailable && w.AppName == "" {
			continue
		}
		tasks = append(tasks, killer.RecentTask{
			TaskID:         int64(w.ID),
			OwnerPackageID: w.AppName,
		})
	}
	return tasks
}
