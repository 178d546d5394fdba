//go:build darwin

package hotkey

import "golang.design/x/hotkey"

var modifierMap = map[Modifier]hotkey.Modifier{
	CmdOrCtrl: hotkey.ModCmd,
	Super:     hotkey.ModCmd,
	Ctrl:      hotkey.ModCtrl,
	Alt:       hotkey.ModOption,
	Shift:     hotkey.ModShift,
}
