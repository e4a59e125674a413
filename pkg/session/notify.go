package session

import (
	"context"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
)

const (
	notificationsDest   = "org.freedesktop.Notifications"
	notificationsPath   = "/org/freedesktop/Notifications"
	notifyMethod        = notificationsDest + ".Notify"
	transientTimeoutMs  = 2000
	notificationAppName = "killfocus"
)

// caller is the part of dbus.BusObject used here
type caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// Notifier shows transient desktop notifications
type Notifier struct {
	obj caller
}

// NewNotifier talks to the notification daemon on the session bus
func NewNotifier(conn *dbus.Conn) *Notifier {
	return &Notifier{obj: conn.Object(notificationsDest, notificationsPath)}
}

// ShowTransientMessage implements killer.Presenter. The notification is
// marked transient so it does not pile up in the notification history.
func (n *Notifier) ShowTransientMessage(ctx context.Context, text string) error {
	hints := map[string]dbus.Variant{
		"transient": dbus.MakeVariant(true),
		"urgency":   dbus.MakeVariant(byte(0)),
	}

	call := n.obj.CallWithContext(ctx, notifyMethod, 0,
		notificationAppName, uint32(0), "", text, "", []string{}, hints, int32(transientTimeoutMs))
	if call.Err != nil {
		return errors.Wrap(call.Err, "failed to send notification")
	}
	return nil
}
