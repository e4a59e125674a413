package process

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// fakeProc writes the files procfs reads for one process
func fakeProc(t *testing.T, root string, pid int, comm string, uid int, argv0 string) {
	t.Helper()

	dir := filepath.Join(root, fmt.Sprint(pid))
	require.NoError(t, os.MkdirAll(dir, 0755))

	status := fmt.Sprintf("Name:\t%s\nPid:\t%d\nUid:\t%d\t%d\t%d\t%d\nGid:\t%d\t%d\t%d\t%d\n",
		comm, pid, uid, uid, uid, uid, uid, uid, uid, uid)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "status"), []byte(status), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "comm"), []byte(comm+"\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cmdline"), []byte(argv0+"\x00--flag\x00"), 0644))
}

type killRecorder struct {
	signalled []int
	errs      map[int]error
}

func (k *killRecorder) kill(pid int, sig unix.Signal) error {
	if err := k.errs[pid]; err != nil {
		return err
	}
	k.signalled = append(k.signalled, pid)
	return nil
}

func newTestController(t *testing.T) (*Controller, *killRecorder) {
	t.Helper()
	root := t.TempDir()

	fakeProc(t, root, 100, "firefox", 1000, "/usr/lib/firefox/firefox")
	fakeProc(t, root, 101, "Web Content", 1000, "/usr/lib/firefox/firefox")
	fakeProc(t, root, 102, "firefox", 1001, "/usr/lib/firefox/firefox")
	fakeProc(t, root, 103, "code", 1000, "/usr/share/code/code")
	fakeProc(t, root, 104, "gnome-terminal-", 1000, "/usr/libexec/gnome-terminal-server")

	kr := &killRecorder{errs: map[int]error{}}
	c := NewControllerAt(root)
	c.kill = kr.kill
	return c, kr
}

func TestMatch(t *testing.T) {
	c, _ := newTestController(t)

	tests := []struct {
		pkg  string
		uid  int
		want []int
	}{
		{pkg: "firefox", uid: 1000, want: []int{100, 101}},
		{pkg: "Firefox", uid: 1000, want: []int{100, 101}},
		{pkg: "firefox", uid: 1001, want: []int{102}},
		{pkg: "code", uid: 1000, want: []int{103}},
		{pkg: "gnome-terminal-server", uid: 1000, want: []int{104}},
		{pkg: "slack", uid: 1000, want: nil},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%d", tt.pkg, tt.uid), func(t *testing.T) {
			got, err := c.Match(tt.pkg, tt.uid)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestForceStop(t *testing.T) {
	c, kr := newTestController(t)

	require.NoError(t, c.ForceStop(context.Background(), "firefox", 1000))
	assert.ElementsMatch(t, []int{100, 101}, kr.signalled)
}

func TestForceStopNotRunning(t *testing.T) {
	c, kr := newTestController(t)

	err := c.ForceStop(context.Background(), "slack", 1000)
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.Empty(t, kr.signalled)
}

func TestForceStopAlreadyGone(t *testing.T) {
	c, kr := newTestController(t)
	kr.errs[103] = unix.ESRCH

	err := c.ForceStop(context.Background(), "code", 1000)
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestForceStopPermissionDenied(t *testing.T) {
	c, kr := newTestController(t)
	kr.errs[101] = unix.EPERM

	err := c.ForceStop(context.Background(), "firefox", 1000)
	assert.ErrorIs(t, err, ErrNotPermitted)
	assert.Equal(t, []int{100}, kr.signalled)
}

type staticOwners struct {
	pids []int
	err  error
}

func (s staticOwners) OwnerPIDs(context.Context, string) ([]int, error) {
	return s.pids, s.err
}

func TestForceStopWindowOwners(t *testing.T) {
	tests := []struct {
		name   string
		pkg    string
		owners staticOwners
		want   []int
	}{
		{name: "class differs from process name", pkg: "gnome-terminal", owners: staticOwners{pids: []int{104}}, want: []int{104}},
		{name: "owner already matched by name", pkg: "firefox", owners: staticOwners{pids: []int{100, 100}}, want: []int{100, 101}},
		{name: "other user and vanished owners skipped", pkg: "gnome-terminal", owners: staticOwners{pids: []int{102, 999, 104}}, want: []int{104}},
		{name: "lookup failure keeps name matches", pkg: "code", owners: staticOwners{err: errors.New("display closed")}, want: []int{103}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, kr := newTestController(t)
			c.WithWindowOwners(tt.owners)

			require.NoError(t, c.ForceStop(context.Background(), tt.pkg, 1000))
			assert.ElementsMatch(t, tt.want, kr.signalled)
		})
	}
}

func TestForceStopWithoutOwnersNotRunning(t *testing.T) {
	c, _ := newTestController(t)

	err := c.ForceStop(context.Background(), "gnome-terminal", 1000)
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestCommMatches(t *testing.T) {
	assert.True(t, commMatches("Code", "code"))
	assert.True(t, commMatches("gnome-terminal-", "gnome-terminal-server"))
	assert.False(t, commMatches("gnome-terminal", "gnome-terminal-server"))
}
