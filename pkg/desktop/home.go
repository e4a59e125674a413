package desktop

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"

	"killfocus/internal/killer"
)

// homeByDesktop maps XDG_CURRENT_DESKTOP components to the app that
// draws the desktop.
var homeByDesktop = map[string]string{
	"gnome":      "nautilus",
	"ubuntu":     "nautilus",
	"kde":        "plasmashell",
	"xfce":       "xfdesktop",
	"mate":       "caja",
	"cinnamon":   "nemo-desktop",
	"x-cinnamon": "nemo-desktop",
	"lxde":       "pcmanfm",
	"lxqt":       "pcmanfm-qt",
	"budgie":     "budgie-desktop",
}

// placeholders are answers that name the desktop machinery instead of an app
var placeholders = map[string]bool{
	"":               true,
	"desktop":        true,
	"desktop_window": true,
	"mutter":         true,
	"xfwm4":          true,
	"kwin_x11":       true,
	"openbox":        true,
}

// EnvHome derives the home app from XDG_CURRENT_DESKTOP at call time
type EnvHome struct {
	getenv func(string) string
}

func NewEnvHome() *EnvHome {
	return &EnvHome{getenv: os.Getenv}
}

func (h *EnvHome) DefaultHomePackage(context.Context) (string, error) {
	current := h.getenv("XDG_CURRENT_DESKTOP")
	for _, part := range strings.Split(current, ":") {
		if pkg, ok := homeByDesktop[strings.ToLower(strings.TrimSpace(part))]; ok {
			return pkg, nil
		}
	}
	return "", errors.Errorf("unknown desktop %q", current)
}

// HomeChain asks each resolver in turn and returns the first real answer
type HomeChain []killer.HomeResolver

func (c HomeChain) DefaultHomePackage(ctx context.Context) (string, error) {
	var lastErr error
	for _, r := range c {
		if r == nil {
			continue
		}
		pkg, err := r.DefaultHomePackage(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		pkg = strings.ToLower(strings.TrimSpace(pkg))
		if placeholders[pkg] {
			continue
		}
		return pkg, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no home resolver answered")
	}
	return "", lastErr
}
