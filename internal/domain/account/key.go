package account

import (
	"errors"
	"strings"
)

var ErrKeyRequired = errors.New("account: wallet key is required")

// Key is an opaque wallet public key supplied by the identity collaborator.
// Its structure is never interpreted.
type Key string

// ParseKey trims the raw value and rejects empty keys.
func ParseKey(raw string) (Key, error) {
	key := strings.TrimSpace(raw)
	if key == "" {
		return "", ErrKeyRequired
	}
	return Key(key), nil
}

func (k Key) String() string { return string(k) }

func (k Key) IsZero() bool { return strings.TrimSpace(string(k)) == "" }

// Truncated renders the key as "ABCD...WXYZ" for display.
func (k Key) Truncated() string {
	runes := []rune(string(k))
	if len(runes) <= 8 {
		return string(k)
	}
	return string(runes[:4]) + "..." + string(runes[len(runes)-4:])
}
