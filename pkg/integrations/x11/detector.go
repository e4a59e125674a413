package x11

import (
	"os"
	"strings"

	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"

	"killfocus/pkg/window"
)

// Detector implements window.Detector and window.Lister for X11
type Detector struct {
	c *client
}

// NewDetector connects to the display named by $DISPLAY
func NewDetector() (*Detector, error) {
	return NewDetectorDisplay(os.Getenv("DISPLAY"))
}

// NewDetectorDisplay connects to a specific display
func NewDetectorDisplay(display string) (*Detector, error) {
	c, err := newClient(display)
	if err != nil {
		return nil, err
	}
	return &Detector{c: c}, nil
}

// IsAvailable reports whether the X connection is open
func (d *Detector) IsAvailable() bool {
	return d != nil && d.c != nil
}

// GetDisplayServer returns "x11"
func (d *Detector) GetDisplayServer() string {
	return "x11"
}

// GetFocusedWindow returns information about the currently focused window
func (d *Detector) GetFocusedWindow() (*window.WindowInfo, error) {
	id, err := d.c.getActiveWindow()
	if err != nil {
		return nil, err
	}

	info := d.describe(id)
	if info.AppName == "" {
		return nil, errors.Errorf("window 0x%x has no WM_CLASS", uint32(id))
	}
	return &info, nil
}

// ListWindows returns the managed client windows, oldest first
func (d *Detector) ListWindows() ([]window.WindowInfo, error) {
	ids, err := d.c.getClientList()
	if err != nil {
		return nil, err
	}

	windows := make([]window.WindowInfo, 0, len(ids))
	for _, id := range ids {
		windows = append(windows, d.describe(id))
	}
	return windows, nil
}

// CloseWindow asks the window manager to close a window
func (d *Detector) CloseWindow(id uint32) error {
	return d.c.closeWindow(xproto.Window(id))
}

// DesktopWindowClass returns the class of the window drawing the desktop,
// the X11 notion of the current home app.
func (d *Detector) DesktopWindowClass() (string, error) {
	windows, err := d.ListWindows()
	if err != nil {
		return "", err
	}
	for _, w := range windows {
		if w.Desktop && w.AppName != "" {
			return w.AppName, nil
		}
	}
	return "", errors.New("no desktop window")
}

func (d *Detector) describe(id xproto.Window) window.WindowInfo {
	instance, class := d.c.getWindowClass(id)
	if class == "" {
		class = instance
	}

	types := d.c.getAtoms(id, "_NET_WM_WINDOW_TYPE")
	state := d.c.getAtoms(id, "_NET_WM_STATE")

	return window.WindowInfo{
		ID:            uint32(id),
		AppName:       strings.ToLower(class),
		Instance:      instance,
		WindowTitle:   d.c.getWindowName(id),
		PID:           d.c.getWindowPID(id),
		Desktop:       types[d.c.atoms["_NET_WM_WINDOW_TYPE_DESKTOP"]],
		Dock:          types[d.c.atoms["_NET_WM_WINDOW_TYPE_DOCK"]],
		Sticky:        state[d.c.atoms["_NET_WM_STATE_STICKY"]],
		DisplayServer: "x11",
	}
}

// Close cleans up resources
func (d *Detector) Close() error {
	if d.c != nil {
		d.c.close()
	}
	return nil
}
