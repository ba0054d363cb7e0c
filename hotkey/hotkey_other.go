//go:build !linux

package hotkey

import (
	"fmt"

	xhotkey "golang.design/x/hotkey"
)

var xKeys = map[string]xhotkey.Key{
	"space": xhotkey.KeySpace,
	"a":     xhotkey.KeyA, "b": xhotkey.KeyB, "c": xhotkey.KeyC,
	"d": xhotkey.KeyD, "e": xhotkey.KeyE, "f": xhotkey.KeyF,
	"g": xhotkey.KeyG, "h": xhotkey.KeyH, "i": xhotkey.KeyI,
	"j": xhotkey.KeyJ, "k": xhotkey.KeyK, "l": xhotkey.KeyL,
	"m": xhotkey.KeyM, "n": xhotkey.KeyN, "o": xhotkey.KeyO,
	"p": xhotkey.KeyP, "q": xhotkey.KeyQ, "r": xhotkey.KeyR,
	"s": xhotkey.KeyS, "t": xhotkey.KeyT, "u": xhotkey.KeyU,
	"v": xhotkey.KeyV, "w": xhotkey.KeyW, "x": xhotkey.KeyX,
	"y": xhotkey.KeyY, "z": xhotkey.KeyZ,
	"0": xhotkey.Key0, "1": xhotkey.Key1, "2": xhotkey.Key2,
	"3": xhotkey.Key3, "4": xhotkey.Key4, "5": xhotkey.Key5,
	"6": xhotkey.Key6, "7": xhotkey.Key7, "8": xhotkey.Key8,
	"9": xhotkey.Key9,
}

type xHotkey struct {
	hk     *xhotkey.Hotkey
	toggle chan struct{}
	stop   chan struct{}
}

func New(comboSpec string) (Hotkey, error) {
	c, err := parseCombo(comboSpec)
	if err != nil {
		return nil, err
	}
	if c.alt || c.super {
		return nil, fmt.Errorf("combo %q: only ctrl and shift modifiers are supported on this platform", comboSpec)
	}
	var mods []xhotkey.Modifier
	if c.ctrl {
		mods = append(mods, xhotkey.ModCtrl)
	}
	if c.shift {
		mods = append(mods, xhotkey.ModShift)
	}
	key, ok := xKeys[c.key]
	if !ok {
		return nil, fmt.Errorf("unknown key %q in combo %q", c.key, comboSpec)
	}
	return &xHotkey{
		hk:     xhotkey.New(mods, key),
		toggle: make(chan struct{}, 1),
	}, nil
}

func (h *xHotkey) Register() error {
	if err := h.hk.Register(); err != nil {
		return err
	}
	h.stop = make(chan struct{})
	go func() {
		for {
			select {
			case <-h.hk.Keydown():
				select {
				case h.toggle <- struct{}{}:
				default:
				}
			case <-h.stop:
				return
			}
		}
	}()
	return nil
}

func (h *xHotkey) Unregister() {
	if h.stop != nil {
		close(h.stop)
		h.stop = nil
	}
	h.hk.Unregister()
}

func (h *xHotkey) Toggle() <-chan struct{} {
	return h.toggle
}

func Diagnose() (string, error) {
	return "system-wide hotkey registration available", nil
}
