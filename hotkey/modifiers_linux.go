//go:build linux

package hotkey

import "golang.design/x/hotkey"

// X11 maps Alt to Mod1 and Super to Mod4 on common keyboard layouts.
var modifierMap = map[Modifier]hotkey.Modifier{
	CmdOrCtrl: hotkey.ModCtrl,
	Super:     hotkey.Mod4,
	Ctrl:      hotkey.ModCtrl,
	Alt:       hotkey.Mod1,
	Shift:     hotkey.ModShift,
}
