package detector

import (
	"os"

	"github.com/pkg/errors"

	"killfocus/pkg/integrations/x11"
)

// ErrNoDisplay is returned when there is no X server to talk to. Wayland
// sessions are reachable only through XWayland.
var ErrNoDisplay = errors.New("no X display available (DISPLAY is not set)")

// New connects to the X server named by DISPLAY
func New() (*x11.Detector, error) {
	if os.Getenv("DISPLAY") == "" {
		if DetectDisplayServer() == "wayland" {
			return nil, errors.Wrap(ErrNoDisplay, "wayland session without XWayland")
		}
		return nil, ErrNoDisplay
	}
	return x11.NewDetector()
}

// DetectDisplayServer reports the session type: "x11", "wayland" or "unknown"
func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}
