package delivery

import (
	"fmt"
	"os/exec"
	"strings"
)

// commandStrategy runs a helper program with argv built from the text.
// Nothing passes through a shell.
type commandStrategy struct {
	name string
	prog string
	args func(text string) []string
	run  func(prog string, args ...string) error
}

func (c *commandStrategy) Name() string { return c.name }

func (c *commandStrategy) Paste(text string) error {
	return c.run(c.prog, c.args(text)...)
}

func runCommand(prog string, args ...string) error {
	out, err := exec.Command(prog, args...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return fmt.Errorf("%s: %w", prog, err)
		}
		return fmt.Errorf("%s: %w: %s", prog, err, msg)
	}
	return nil
}

// osascriptArgs sends Cmd+V through System Events. Single-line text is set on
// the clipboard again first; multi-line text would lose its line breaks to
// Escape, so the clipboard written by Deliver is pasted as is.
func osascriptArgs(text string) []string {
	keystroke := []string{"-e", `tell application "System Events" to keystroke "v" using command down`}
	if multiline(text) {
		return keystroke
	}
	return append([]string{"-e", "set the clipboard to " + Quote(text, AppleScript)}, keystroke...)
}

// powershellArgs sends Ctrl+V with SendKeys, after Set-Clipboard for
// single-line text.
func powershellArgs(text string) []string {
	script := "Add-Type -AssemblyName System.Windows.Forms; " +
		"[System.Windows.Forms.SendKeys]::SendWait('^v')"
	if !multiline(text) {
		script = "Set-Clipboard -Value " + Quote(text, PowerShell) + "; " + script
	}
	return []string{"-NoProfile", "-NonInteractive", "-Command", script}
}

func multiline(text string) bool { return strings.ContainsAny(text, "\r\n") }
