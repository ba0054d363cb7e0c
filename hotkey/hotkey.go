// Package hotkey fires toggle intents when the configured key combo is
// pressed. On Linux it reads evdev devices directly so it works on
// Wayland; elsewhere it registers a system-wide hotkey.
package hotkey

import (
	"fmt"
	"strings"
)

type Hotkey interface {
	Register() error
	Unregister()
	// Toggle delivers one tick per combo press. Presses that arrive
	// while a previous tick is unread are dropped.
	Toggle() <-chan struct{}
}

// combo is a parsed key combination like "ctrl+shift+space".
type combo struct {
	ctrl  bool
	shift bool
	alt   bool
	super bool
	key   string
}

func parseCombo(s string) (combo, error) {
	var c combo
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	if len(parts) < 2 {
		return c, fmt.Errorf("combo %q needs at least one modifier and a key", s)
	}
	for _, mod := range parts[:len(parts)-1] {
		switch strings.TrimSpace(mod) {
		case "ctrl", "control":
			c.ctrl = true
		case "shift":
			c.shift = true
		case "alt":
			c.alt = true
		case "super", "meta", "win", "cmd":
			c.super = true
		default:
			return c, fmt.Errorf("unknown modifier %q in combo %q", mod, s)
		}
	}
	c.key = strings.TrimSpace(parts[len(parts)-1])
	if !validKey(c.key) {
		return c, fmt.Errorf("unknown key %q in combo %q", c.key, s)
	}
	return c, nil
}

func validKey(key string) bool {
	if key == "space" {
		return true
	}
	if len(key) != 1 {
		return false
	}
	r := key[0]
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

func (c combo) String() string {
	var parts []string
	if c.ctrl {
		parts = append(parts, "ctrl")
	}
	if c.shift {
		parts = append(parts, "shift")
	}
	if c.alt {
		parts = append(parts, "alt")
	}
	if c.super {
		parts = append(parts, "super")
	}
	return strings.Join(append(parts, c.key), "+")
}
