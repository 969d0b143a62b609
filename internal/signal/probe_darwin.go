//go:build darwin

package signal

// PlatformLockProbe reports the screen as locked while the screen saver runs.
func PlatformLockProbe() Prober {
	return &CommandLockProbe{
		Name:      "pgrep",
		Args:      []string{"-x", "ScreenSaverEngine"},
		Interpret: ExitZeroLocked,
	}
}
