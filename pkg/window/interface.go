package window

// WindowInfo represents information about a top-level window
type WindowInfo struct {
	ID            uint32
	AppName       string // WM_CLASS class, used as the package id
	Instance      string // WM_CLASS instance
	WindowTitle   string
	PID           uint32
	Desktop       bool // _NET_WM_WINDOW_TYPE_DESKTOP
	Dock          bool // _NET_WM_WINDOW_TYPE_DOCK
	Sticky        bool // _NET_WM_STATE_STICKY, shown on every workspace
	DisplayServer string
}

// Detector is the interface that all window detection implementations must satisfy
type Detector interface {
	// GetFocusedWindow returns information about the currently focused window
	GetFocusedWindow() (*WindowInfo, error)

	// IsAvailable checks if this detector can run on the current system
	IsAvailable() bool

	// GetDisplayServer returns the display server type
	GetDisplayServer() string

	// Close cleans up any resources used by the detector
	Close() error
}

// Lister enumerates and closes managed top-level windows
type Lister interface {
	// ListWindows returns the window manager's client list, oldest first
	ListWindows() ([]WindowInfo, error)

	// CloseWindow asks the window manager to close a window
	CloseWindow(id uint32) error
}
