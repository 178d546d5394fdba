//go:build linux

package delivery

import (
	"sync"

	"github.com/micmonay/keybd_event"
)

// keybdStrategy sends Ctrl+V through a uinput virtual keyboard.
type keybdStrategy struct {
	once sync.Once
	kb   keybd_event.KeyBonding
	err  error
}

func NativeStrategy() Strategy { return &keybdStrategy{} }

func (k *keybdStrategy) Name() string { return "uinput" }

// Init opens the virtual keyboard. Paste calls it lazily; calling it early
// gives the compositor time to pick up the new device.
func (k *keybdStrategy) Init() error {
	k.once.Do(func() {
		k.kb, k.err = keybd_event.NewKeyBonding()
	})
	return k.err
}

func (k *keybdStrategy) Paste(string) error {
	if err := k.Init(); err != nil {
		return err
	}
	k.kb.SetKeys(keybd_event.VK_V)
	k.kb.HasCTRL(true)
	return k.kb.Launching()
}
