package hotkey

// Hotkey is one OS-level global shortcut registration with press/release
// events. Register fails when the OS or another application already owns
// the combination.
type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

// Factory builds an unregistered Hotkey for an accelerator string such as
// "CommandOrControl+Shift+Space".
type Factory func(accel string) (Hotkey, error)
