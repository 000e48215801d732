package hotkeys

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidHotkey is wrapped by every Parse failure.
var ErrInvalidHotkey = errors.New("invalid hotkey")

// Modifier is a RegisterHotKey modifier mask.
type Modifier uint32

const (
	ModAlt     Modifier = 0x0001
	ModControl Modifier = 0x0002
	ModShift   Modifier = 0x0004
	ModWin     Modifier = 0x0008
)

// Hotkey is a parsed key combination.
type Hotkey struct {
	Mods Modifier
	// Key is the Windows virtual-key code.
	Key uint32
	// keyName is the canonical spelling of Key.
	keyName string
}

var modifierNames = map[string]Modifier{
	"ctrl":    ModControl,
	"control": ModControl,
	"alt":     ModAlt,
	"shift":   ModShift,
	"win":     ModWin,
	"super":   ModWin,
	"cmd":     ModWin,
}

var namedKeys = map[string]uint32{
	"backspace": 0x08,
	"tab":       0x09,
	"enter":     0x0D,
	"return":    0x0D,
	"pause":     0x13,
	"esc":       0x1B,
	"escape":    0x1B,
	"space":     0x20,
	"pageup":    0x21,
	"pagedown":  0x22,
	"end":       0x23,
	"home":      0x24,
	"left":      0x25,
	"up":        0x26,
	"right":     0x27,
	"down":      0x28,
	"insert":    0x2D,
	"delete":    0x2E,
	";":         0xBA,
	"=":         0xBB,
	",":         0xBC,
	"-":         0xBD,
	".":         0xBE,
	"/":         0xBF,
	"`":         0xC0,
	"[":         0xDB,
	"\\":        0xDC,
	"]":         0xDD,
	"'":         0xDE,
}

// canonicalNames folds aliases so String round-trips.
var canonicalNames = map[string]string{
	"return": "enter",
	"escape": "esc",
}

// Parse reads combinations such as "ctrl+alt+left" or "Win+Shift+F12".
// Exactly one non-modifier key is required.
func Parse(s string) (Hotkey, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	if len(parts) == 0 || (len(parts) == 1 && parts[0] == "") {
		return Hotkey{}, fmt.Errorf("%w: empty", ErrInvalidHotkey)
	}

	var hk Hotkey
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return Hotkey{}, fmt.Errorf("%w %q: empty key name", ErrInvalidHotkey, s)
		}
		if mod, ok := modifierNames[part]; ok {
			hk.Mods |= mod
			continue
		}
		vk, name, ok := lookupKey(part)
		if !ok {
			return Hotkey{}, fmt.Errorf("%w %q: unknown key %q", ErrInvalidHotkey, s, part)
		}
		if hk.keyName != "" {
			return Hotkey{}, fmt.Errorf("%w %q: more than one key", ErrInvalidHotkey, s)
		}
		hk.Key = vk
		hk.keyName = name
	}
	if hk.keyName == "" {
		return Hotkey{}, fmt.Errorf("%w %q: no key", ErrInvalidHotkey, s)
	}
	return hk, nil
}

func lookupKey(name string) (uint32, string, bool) {
	if vk, ok := namedKeys[name]; ok {
		if canon, ok := canonicalNames[name]; ok {
			name = canon
		}
		return vk, name, true
	}
	if len(name) == 1 {
		c := name[0]
		switch {
		case c >= 'a' && c <= 'z':
			return uint32(c-'a') + 'A', name, true
		case c >= '0' && c <= '9':
			return uint32(c), name, true
		}
	}
	if len(name) >= 2 && name[0] == 'f' {
		var n int
		if _, err := fmt.Sscanf(name[1:], "%d", &n); err == nil && n >= 1 && n <= 24 && fmt.Sprintf("f%d", n) == name {
			return 0x70 + uint32(n-1), name, true
		}
	}
	return 0, "", false
}

// String returns the canonical form, modifiers first.
func (h Hotkey) String() string {
	var parts []string
	if h.Mods&ModControl != 0 {
		parts = append(parts, "ctrl")
	}
	if h.Mods&ModAlt != 0 {
		parts = append(parts, "alt")
	}
	if h.Mods&ModShift != 0 {
		parts = append(parts, "shift")
	}
	if h.Mods&ModWin != 0 {
		parts = append(parts, "win")
	}
	return strings.Join(append(parts, h.keyName), "+")
}
