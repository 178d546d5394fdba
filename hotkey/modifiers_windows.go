//go:build windows

package hotkey

import "golang.design/x/hotkey"

var modifierMap = map[Modifier]hotkey.Modifier{
	CmdOrCtrl: hotkey.ModCtrl,
	Super:     hotkey.ModWin,
	Ctrl:      hotkey.ModCtrl,
	Alt:       hotkey.ModAlt,
	Shift:     hotkey.ModShift,
}
