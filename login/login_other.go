//go:build !darwin && !linux && !windows

package login

const Supported = false

func Enabled() bool  { return false }
func Enable() error  { return ErrUnsupported }
func Disable() error { return nil }
