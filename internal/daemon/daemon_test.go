package daemon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type signalRecorder struct {
	alive map[int]bool
	sent  []unix.Signal
}

func (s *signalRecorder) signal(pid int, sig unix.Signal) error {
	if !s.alive[pid] {
		return unix.ESRCH
	}
	s.sent = append(s.sent, sig)
	return nil
}

func newTestDaemon(t *testing.T, alive ...int) (*Daemon, *signalRecorder) {
	t.Helper()
	rec := &signalRecorder{alive: map[int]bool{}}
	for _, pid := range alive {
		rec.alive[pid] = true
	}
	d := New(filepath.Join(t.TempDir(), "killfocus.pid"))
	d.signal = rec.signal
	return d, rec
}

func TestWriteReadRemovePID(t *testing.T) {
	d, _ := newTestDaemon(t)

	pid, err := d.ReadPID()
	require.NoError(t, err)
	assert.Zero(t, pid)

	require.NoError(t, d.WritePID())
	pid, err = d.ReadPID()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, d.RemovePID())
	require.NoError(t, d.RemovePID())
}

func TestReadPIDInvalid(t *testing.T) {
	d, _ := newTestDaemon(t)
	require.NoError(t, os.WriteFile(d.PIDFile(), []byte("not-a-pid"), 0o644))

	_, err := d.ReadPID()
	assert.Error(t, err)
}

func TestIsRunning(t *testing.T) {
	d, _ := newTestDaemon(t, 4242)
	require.NoError(t, os.WriteFile(d.PIDFile(), []byte("4242\n"), 0o644))

	running, pid, err := d.IsRunning()
	require.NoError(t, err)
	assert.True(t, running)
	assert.Equal(t, 4242, pid)
}

func TestIsRunningRemovesStalePID(t *testing.T) {
	d, _ := newTestDaemon(t)
	require.NoError(t, os.WriteFile(d.PIDFile(), []byte("4242"), 0o644))

	running, _, err := d.IsRunning()
	require.NoError(t, err)
	assert.False(t, running)

	_, err = os.Stat(d.PIDFile())
	assert.True(t, os.IsNotExist(err))
}

func TestStop(t *testing.T) {
	d, rec := newTestDaemon(t, 4242)
	require.NoError(t, os.WriteFile(d.PIDFile(), []byte("4242"), 0o644))

	require.NoError(t, d.Stop())
	assert.Equal(t, []unix.Signal{0, unix.SIGTERM}, rec.sent)

	_, err := os.Stat(d.PIDFile())
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, d.Stop(), ErrNotRunning)
}
