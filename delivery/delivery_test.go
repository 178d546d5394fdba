package delivery

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"vozflow/apperr"
)

func TestEscape(t *testing.T) {
	for _, tt := range []struct {
		name string
		in   string
		d    Dialect
		want string
	}{
		{"applescript quotes", `say "hi"`, AppleScript, `say \"hi\"`},
		{"applescript backslash", `C:\tmp`, AppleScript, `C:\\tmp`},
		{"applescript apostrophe kept", "it's", AppleScript, "it's"},
		{"powershell apostrophe", "it's", PowerShell, "it''s"},
		{"powershell double quote kept", `say "hi"`, PowerShell, `say "hi"`},
		{"posix apostrophe", "it's", POSIX, `it'\''s`},
		{"newline", "one\ntwo", POSIX, "one two"},
		{"crlf run", "one\r\n\r\ntwo", PowerShell, "one two"},
		{"trailing newline", "done\n", AppleScript, "done "},
		{"plain", "hola mundo", AppleScript, "hola mundo"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := Escape(tt.in, tt.d); got != tt.want {
				t.Errorf("Escape(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestQuote(t *testing.T) {
	if got := Quote(`a "b"`, AppleScript); got != `"a \"b\""` {
		t.Errorf("applescript: %s", got)
	}
	if got := Quote("it's", PowerShell); got != "'it''s'" {
		t.Errorf("powershell: %s", got)
	}
	if got := Quote("it's", POSIX); got != `'it'\''s'` {
		t.Errorf("posix: %s", got)
	}
}

func TestOsascriptArgs(t *testing.T) {
	args := osascriptArgs(`say "hi" now`)
	if len(args) != 4 || args[0] != "-e" || args[2] != "-e" {
		t.Fatalf("args = %q", args)
	}
	if args[1] != `set the clipboard to "say \"hi\" now"` {
		t.Errorf("script = %s", args[1])
	}
	if !strings.Contains(args[3], "command down") {
		t.Errorf("keystroke = %s", args[3])
	}
}

func TestMultilineKeepsClipboard(t *testing.T) {
	args := osascriptArgs("first line\nsecond line")
	if len(args) != 2 || !strings.Contains(args[1], "command down") {
		t.Errorf("osascript args = %q", args)
	}
	if slices.ContainsFunc(args, func(a string) bool { return strings.Contains(a, "set the clipboard") }) {
		t.Errorf("multi-line text re-set the clipboard: %q", args)
	}

	script := powershellArgs("one\r\ntwo")[3]
	if strings.Contains(script, "Set-Clipboard") || !strings.Contains(script, "SendWait('^v')") {
		t.Errorf("powershell script = %s", script)
	}
}

func TestPowershellArgs(t *testing.T) {
	args := powershellArgs("don't stop")
	script := args[len(args)-1]
	if !strings.HasPrefix(script, "Set-Clipboard -Value 'don''t stop';") {
		t.Errorf("script = %s", script)
	}
	if !strings.Contains(script, "SendWait('^v')") {
		t.Errorf("script = %s", script)
	}
}

func TestCommandStrategyUsesArgv(t *testing.T) {
	var gotProg string
	var gotArgs []string
	s := &commandStrategy{
		name: "test",
		prog: "osascript",
		args: osascriptArgs,
		run: func(prog string, args ...string) error {
			gotProg, gotArgs = prog, args
			return nil
		},
	}
	if err := s.Paste(`"; rm -rf ~; echo "`); err != nil {
		t.Fatal(err)
	}
	if gotProg != "osascript" || len(gotArgs) != 4 {
		t.Fatalf("ran %s %q", gotProg, gotArgs)
	}
	if !slices.Contains(gotArgs, `set the clipboard to "\"; rm -rf ~; echo \""`) {
		t.Errorf("args = %q", gotArgs)
	}
}

func TestDeliverWritesThenPastes(t *testing.T) {
	clip := NewFakeClipboard("old")
	paste := &FakeStrategy{}
	d := New(clip, paste)

	if err := d.Deliver("Hello."); err != nil {
		t.Fatal(err)
	}
	if got, _ := clip.ReadAll(); got != "Hello." {
		t.Errorf("clipboard = %q", got)
	}
	if p := paste.Pasted(); len(p) != 1 || p[0] != "Hello." {
		t.Errorf("pasted = %q", p)
	}
}

func TestDeliverPasteFailureIsNotAnError(t *testing.T) {
	clip := NewFakeClipboard("")
	d := New(clip, &FakeStrategy{Fail: true})

	if err := d.Deliver("text"); err != nil {
		t.Errorf("err = %v, want nil", err)
	}
	if got, _ := clip.ReadAll(); got != "text" {
		t.Errorf("clipboard = %q", got)
	}
}

func TestDeliverClipboardFailure(t *testing.T) {
	clip := NewFakeClipboard("old")
	clip.WriteErr = errors.New("no display")
	paste := &FakeStrategy{}

	err := New(clip, paste).Deliver("text")
	if !apperr.Is(err, apperr.Delivery) {
		t.Fatalf("err = %v, want delivery error", err)
	}
	if len(paste.Pasted()) != 0 {
		t.Error("pasted after clipboard failure")
	}
}

func TestDeliverClipboardOnly(t *testing.T) {
	clip := NewFakeClipboard("")
	d := New(clip, nil)
	if err := d.Deliver("x"); err != nil {
		t.Fatal(err)
	}
	if d.StrategyName() != "none" {
		t.Errorf("StrategyName = %q", d.StrategyName())
	}
}
