// Package login registers the host to launch when the user logs in.
package login

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	AppName = "Voz Flow"
	AppID   = "io.vozflow.host"
)

var ErrUnsupported = errors.New("launch at login is not supported on this platform")

// Set enables or disables launch at login.
func Set(on bool) error {
	if on {
		return Enable()
	}
	return Disable()
}

// Registration exposes the launch-at-login state as a value for menus.
type Registration struct{}

func (Registration) Enabled() bool     { return Enabled() }
func (Registration) Set(on bool) error { return Set(on) }

func executable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

// desktopEntry renders an XDG autostart entry. Exec arguments are quoted per
// the desktop entry rules.
func desktopEntry(exe string) string {
	var b strings.Builder
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	fmt.Fprintf(&b, "Name=%s\n", AppName)
	fmt.Fprintf(&b, "Exec=%s\n", quoteExec(exe))
	b.WriteString("Terminal=false\n")
	b.WriteString("X-GNOME-Autostart-enabled=true\n")
	return b.String()
}

func quoteExec(arg string) string {
	if !strings.ContainsAny(arg, " \t\n\"'\\><~|&;$*?#()`%") {
		return arg
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`", `$`, `\$`, `%`, `%%`)
	return `"` + r.Replace(arg) + `"`
}
