//go:build !linux

package main

import (
	"os"
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

// Hotkeys and the system tray must be driven from the main thread on macOS
// and Windows, so everything but the -gui front end runs under mainthread.
func main() {
	os.Exit(start(mainthread.Init))
}
