package process

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

// commLen is the kernel's TASK_COMM_LEN minus the trailing NUL
const commLen = 15

var (
	// ErrNotRunning means no process of the package is alive for the user
	ErrNotRunning = errors.New("package is not running")

	// ErrNotPermitted means at least one matching process could not be signalled
	ErrNotPermitted = errors.New("not permitted to signal process")
)

// WindowOwners reports the processes that own a package's windows
type WindowOwners interface {
	OwnerPIDs(ctx context.Context, packageID string) ([]int, error)
}

// Controller force-stops packages by signalling every matching process
type Controller struct {
	procRoot string
	selfPID  int
	owners   WindowOwners
	kill     func(pid int, sig unix.Signal) error
}

// NewController scans /proc
func NewController() *Controller {
	return NewControllerAt(procfs.DefaultMountPoint)
}

// NewControllerAt scans a proc filesystem mounted at root
func NewControllerAt(root string) *Controller {
	return &Controller{
		procRoot: root,
		selfPID:  os.Getpid(),
		kill:     unix.Kill,
	}
}

// WithWindowOwners also signals the processes owning the package's
// windows. A window class need not match its process name: gnome-terminal
// windows belong to gnome-terminal-server.
func (c *Controller) WithWindowOwners(owners WindowOwners) *Controller {
	c.owners = owners
	return c
}

// Match returns the PIDs owned by uid whose command name, executable or
// argv[0] equals packageID.
func (c *Controller) Match(packageID string, uid int) ([]int, error) {
	fs, err := procfs.NewFS(c.procRoot)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open proc filesystem")
	}

	procs, err := fs.AllProcs()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list processes")
	}

	want := strings.ToLower(packageID)
	var pids []int
	for _, p := range procs {
		if p.PID == c.selfPID {
			continue
		}

		status, err := p.NewStatus()
		if err != nil {
			// raced with process exit
			continue
		}
		if status.UIDs[0] != uint64(uid) {
			continue
		}

		if matches(p, want) {
			pids = append(pids, p.PID)
		}
	}

	return pids, nil
}

func matches(p procfs.Proc, want string) bool {
	if comm, err := p.Comm(); err == nil && commMatches(comm, want) {
		return true
	}
	if exe, err := p.Executable(); err == nil && exe != "" && strings.ToLower(filepath.Base(exe)) == want {
		return true
	}
	if args, err := p.CmdLine(); err == nil && len(args) > 0 {
		return strings.ToLower(filepath.Base(args[0])) == want
	}
	return false
}

func commMatches(comm, want string) bool {
	comm = strings.ToLower(comm)
	if len(want) > commLen {
		return comm == want[:commLen]
	}
	return comm == want
}

// ForceStop sends SIGKILL to every process of packageID owned by userID.
// Processes that exit before the signal lands are ignored.
func (c *Controller) ForceStop(ctx context.Context, packageID string, userID int) error {
	pids, err := c.Match(packageID, userID)
	if err != nil {
		return err
	}
	pids = c.addWindowOwners(ctx, pids, packageID, userID)
	if err := ctx.Err(); err != nil {
		return err
	}

	killed := 0
	var denied []int
	for _, pid := range pids {
		err := c.kill(pid, unix.SIGKILL)
		switch {
		case err == nil:
			killed++
		case errors.Is(err, unix.ESRCH):
		case errors.Is(err, unix.EPERM):
			denied = append(denied, pid)
		default:
			return errors.Wrapf(err, "failed to kill pid %d", pid)
		}
	}

	if len(denied) > 0 {
		return errors.Wrapf(ErrNotPermitted, "pids %v", denied)
	}
	if killed == 0 {
		return errors.Wrapf(ErrNotRunning, "package %s", packageID)
	}
	return nil
}

// addWindowOwners appends the window-owning processes of packageID that
// belong to uid and are not already in pids. Lookup failures leave pids
// as they are.
func (c *Controller) addWindowOwners(ctx context.Context, pids []int, packageID string, uid int) []int {
	if c.owners == nil {
		return pids
	}
	owners, err := c.owners.OwnerPIDs(ctx, packageID)
	if err != nil || len(owners) == 0 {
		return pids
	}
	fs, err := procfs.NewFS(c.procRoot)
	if err != nil {
		return pids
	}

	seen := make(map[int]bool, len(pids))
	for _, pid := range pids {
		seen[pid] = true
	}
	for _, pid := range owners {
		if seen[pid] || pid == c.selfPID {
			continue
		}
		seen[pid] = true

		p, err := fs.Proc(pid)
		if err != nil {
			continue
		}
		status, err := p.NewStatus()
		if err != nil || status.UIDs[0] != uint64(uid) {
			continue
		}
		pids = append(pids, pid)
	}
	return pids
}
