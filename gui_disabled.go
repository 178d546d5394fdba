//go:build !gui

package main

import (
	"vozflow/config"
	"vozflow/tray"
)

const guiEnabled = false

func runWindowed(*config.Config, options) int {
	panic("vozflow: built without GUI support (rebuild with -tags gui)")
}

func startTray(m *tray.Model) (stop func()) { return tray.Start(m) }
