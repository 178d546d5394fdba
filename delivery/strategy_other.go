//go:build !darwin && !windows && !linux

package delivery

func NativeStrategy() Strategy { return nil }
