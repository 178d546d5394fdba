package hotkey

import (
	"errors"
	"fmt"
	"strings"
)

type Modifier int

const (
	// CmdOrCtrl is Command on macOS and Control everywhere else.
	CmdOrCtrl Modifier = iota
	Super
	Ctrl
	Alt
	Shift
)

var modifierNames = map[Modifier]string{
	CmdOrCtrl: "CommandOrControl",
	Super:     "Super",
	Ctrl:      "Control",
	Alt:       "Alt",
	Shift:     "Shift",
}

var modifierAliases = map[string]Modifier{
	"commandorcontrol": CmdOrCtrl,
	"cmdorctrl":        CmdOrCtrl,
	"command":          Super,
	"cmd":              Super,
	"super":            Super,
	"meta":             Super,
	"win":              Super,
	"control":          Ctrl,
	"ctrl":             Ctrl,
	"alt":              Alt,
	"option":           Alt,
	"shift":            Shift,
}

var (
	ErrEmpty        = errors.New("empty shortcut")
	ErrUnknownKey   = errors.New("unknown key")
	ErrNoKey        = errors.New("shortcut has no key")
	ErrMultipleKeys = errors.New("shortcut has more than one key")
)

// Accelerator is a parsed key combination: a set of modifiers plus exactly
// one key, both in canonical spelling.
type Accelerator struct {
	Mods []Modifier
	Key  string
}

func (a Accelerator) String() string {
	parts := make([]string, 0, len(a.Mods)+1)
	for _, m := range a.Mods {
		parts = append(parts, modifierNames[m])
	}
	return strings.Join(append(parts, a.Key), "+")
}

// Parse accepts Electron-style accelerators ("CommandOrControl+Shift+Space",
// "alt+f9"). Tokens are case-insensitive; modifiers are returned in a fixed
// order regardless of input order.
func Parse(accel string) (Accelerator, error) {
	accel = strings.TrimSpace(accel)
	if accel == "" {
		return Accelerator{}, ErrEmpty
	}

	var seen [Shift + 1]bool
	var key string
	for _, tok := range strings.Split(accel, "+") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			return Accelerator{}, fmt.Errorf("parse %q: empty token", accel)
		}
		lower := strings.ToLower(tok)
		if m, ok := modifierAliases[lower]; ok {
			seen[m] = true
			continue
		}
		name, ok := canonicalKey(lower)
		if !ok {
			return Accelerator{}, fmt.Errorf("parse %q: %w %q", accel, ErrUnknownKey, tok)
		}
		if key != "" {
			return Accelerator{}, fmt.Errorf("parse %q: %w", accel, ErrMultipleKeys)
		}
		key = name
	}
	if key == "" {
		return Accelerator{}, fmt.Errorf("parse %q: %w", accel, ErrNoKey)
	}

	a := Accelerator{Key: key}
	for m := CmdOrCtrl; m <= Shift; m++ {
		if seen[m] {
			a.Mods = append(a.Mods, m)
		}
	}
	return a, nil
}

var namedKeys = map[string]string{
	"space":  "Space",
	"enter":  "Enter",
	"return": "Enter",
	"esc":    "Escape",
	"escape": "Escape",
	"tab":    "Tab",
	"delete": "Delete",
	"left":   "Left",
	"right":  "Right",
	"up":     "Up",
	"down":   "Down",
}

func canonicalKey(lower string) (string, bool) {
	if name, ok := namedKeys[lower]; ok {
		return name, true
	}
	if len(lower) == 1 {
		c := lower[0]
		switch {
		case c >= 'a' && c <= 'z':
			return strings.ToUpper(lower), true
		case c >= '0' && c <= '9':
			return lower, true
		}
	}
	if len(lower) >= 2 && lower[0] == 'f' {
		var n int
		if _, err := fmt.Sscanf(lower[1:], "%d", &n); err == nil && n >= 1 && n <= 12 && fmt.Sprint(n) == lower[1:] {
			return "F" + lower[1:], true
		}
	}
	return "", false
}
