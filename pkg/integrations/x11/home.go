package x11

import "context"

// HomeResolver reports the desktop window's class as the default home app
type HomeResolver struct {
	detector *Detector
}

func NewHomeResolver(detector *Detector) *HomeResolver {
	return &HomeResolver{detector: detector}
}

func (h *HomeResolver) DefaultHomePackage(context.Context) (string, error) {
	return h.detector.DesktopWindowClass()
}
