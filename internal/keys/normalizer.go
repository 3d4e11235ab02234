// Package keys turns raw key signals into a clean stream of typed characters.
package keys

import (
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
)

// Normalizer emits each physical key press at most once. Repeated downs of
// the held key (OS autorepeat) are dropped until that key is released, and
// only single-character keys are forwarded.
type Normalizer struct {
	onChar   func(rune)
	held     string
	detached bool
}

// NewNormalizer returns a normalizer that calls onChar for every accepted press.
func NewNormalizer(onChar func(rune)) *Normalizer {
	return &Normalizer{onChar: onChar}
}

// KeyDown handles a key-down signal. The returned flag asks the host to
// suppress its default handling of the key (quick-find on apostrophe).
func (n *Normalizer) KeyDown(key string) (preventDefault bool) {
	if n.detached {
		return false
	}
	preventDefault = key == "'"
	if key == n.held {
		return preventDefault
	}
	if utf8.RuneCountInString(key) != 1 {
		return preventDefault
	}
	n.held = key
	r, _ := utf8.DecodeRuneInString(key)
	if n.onChar != nil {
		n.onChar(r)
	}
	return preventDefault
}

// KeyUp releases the held key when it matches.
func (n *Normalizer) KeyUp(key string) {
	if n.detached {
		return
	}
	if key == n.held {
		n.held = ""
	}
}

// Detach stops all further callbacks.
func (n *Normalizer) Detach() {
	n.detached = true
	n.held = ""
	n.onChar = nil
}

// FromKeyMsg converts a Bubble Tea key message into a key name. Printable
// keys map to their character; everything else maps to a multi-character
// name that the normalizer ignores.
func FromKeyMsg(msg tea.KeyMsg) string {
	switch msg.Type {
	case tea.KeySpace:
		return " "
	case tea.KeyRunes:
		if msg.Alt || msg.Paste {
			return msg.String()
		}
		return string(msg.Runes)
	default:
		return msg.String()
	}
}

// Press feeds a terminal key message through the normalizer. Terminals do
// not report key releases, so each message is a full down/up pair.
func (n *Normalizer) Press(msg tea.KeyMsg) {
	key := FromKeyMsg(msg)
	n.KeyDown(key)
	n.KeyUp(key)
}
