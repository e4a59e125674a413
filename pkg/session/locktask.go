package session

import (
	"context"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
)

const serviceUnknown = "org.freedesktop.DBus.Error.ServiceUnknown"

type screenSaver struct {
	name string
	obj  caller
}

// LockTask treats kiosk mode and an active screen locker as single-task mode
type LockTask struct {
	kiosk  bool
	savers []screenSaver
}

// NewLockTask queries the GNOME and freedesktop screensaver services
func NewLockTask(conn *dbus.Conn, kiosk bool) *LockTask {
	lt := &LockTask{kiosk: kiosk}
	if conn != nil {
		lt.savers = []screenSaver{
			{name: "org.gnome.ScreenSaver", obj: conn.Object("org.gnome.ScreenSaver", "/org/gnome/ScreenSaver")},
			{name: "org.freedesktop.ScreenSaver", obj: conn.Object("org.freedesktop.ScreenSaver", "/org/freedesktop/ScreenSaver")},
		}
	}
	return lt
}

// IsSingleTaskModeActive implements killer.LockTask. A session with no
// screensaver service on the bus is reported as unlocked; any other
// failure is returned so the caller can refuse to act.
func (l *LockTask) IsSingleTaskModeActive(ctx context.Context) (bool, error) {
	if l.kiosk {
		return true, nil
	}

	for _, s := range l.savers {
		var active bool
		err := s.obj.CallWithContext(ctx, s.name+".GetActive", 0).Store(&active)
		if err == nil {
			return active, nil
		}
		if isServiceUnknown(err) {
			continue
		}
		return false, errors.Wrapf(err, "failed to query %s", s.name)
	}

	return false, nil
}

func isServiceUnknown(err error) bool {
	var v dbus.Error
	if errors.As(err, &v) {
		return v.Name == serviceUnknown
	}
	var p *dbus.Error
	if errors.As(err, &p) {
		return p.Name == serviceUnknown
	}
	return false
}
