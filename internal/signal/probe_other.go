//go:build !darwin && !linux

package signal

// PlatformLockProbe has no lock source on this platform; lock and unlock can
// still be reported through "stt signal".
func PlatformLockProbe() Prober {
	return Never
}
