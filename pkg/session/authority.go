package session

import "golang.org/x/sys/unix"

// Authority grants force-stop when the feature is enabled and this process
// can signal the active user's processes.
type Authority struct {
	enabled bool
	userID  int
	geteuid func() int
}

func NewAuthority(enabled bool, userID int) *Authority {
	return &Authority{enabled: enabled, userID: userID, geteuid: unix.Geteuid}
}

// HasForceStopAuthority implements killer.Authority
func (a *Authority) HasForceStopAuthority() bool {
	if !a.enabled {
		return false
	}
	euid := a.geteuid()
	return euid == 0 || euid == a.userID
}
