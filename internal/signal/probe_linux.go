//go:build linux

package signal

import "os"

// PlatformLockProbe asks logind for the LockedHint of the current session.
func PlatformLockProbe() Prober {
	session := os.Getenv("XDG_SESSION_ID")
	if session == "" {
		session = "self"
	}
	return &CommandLockProbe{
		Name:      "loginctl",
		Args:      []string{"show-session", session, "-p", "LockedHint", "--value"},
		Interpret: OutputYesLocked,
	}
}
