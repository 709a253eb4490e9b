// Package keys is the catalogue of symbolic key names a button action can
// press: named special keys, lowercase letters, digits and function keys.
//
// A Registry is an ordinary value. Build one with New and hand it to the
// components that need to resolve names; there is no process-wide table.
package keys

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrUnknownKey is matched by every ResolutionError.
var ErrUnknownKey = errors.New("keys: unknown key")

// Kind classifies a key by the catalogue it came from.
type Kind string

const (
	KindSpecial   Kind = "special"
	KindAlpha     Kind = "alpha"
	KindNumeric   Kind = "numeric"
	KindFunction  Kind = "function"
	KindCharacter Kind = "character"
)

// Key is an injectable key primitive.
type Key struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

func (k Key) String() string { return k.Name }

// Group is a named slice of the catalogue, listed in the configuration UI.
type Group struct {
	Name string `json:"name"`
	Keys []Key  `json:"keys"`
}

// ResolutionError reports a symbolic key name missing from the registry.
type ResolutionError struct {
	Name string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("keys: unknown key %q", e.Name)
}

func (e *ResolutionError) Unwrap() error { return ErrUnknownKey }

// Special key names, in listing order.
var specialNames = []string{
	"ALT", "CTRL", "SHIFT", "SUPER", "TAB", "ENTER", "ESC", "DEL", "BACKSPACE",
	"SPACE", "INSERT", "HOME", "END", "PAGEUP", "PAGEDOWN",
	"UP", "DOWN", "LEFT", "RIGHT",
}

const functionKeyCount = 24

// Registry resolves symbolic names to keys.
type Registry struct {
	groups []Group
	byName map[string]Key
}

// New builds a registry holding the special, alpha, numeric and function
// catalogues.
func New() *Registry {
	special := make([]Key, 0, len(specialNames))
	for _, n := range specialNames {
		special = append(special, Key{Name: n, Kind: KindSpecial})
	}

	alpha := make([]Key, 0, 26)
	for r := 'a'; r <= 'z'; r++ {
		alpha = append(alpha, Key{Name: string(r), Kind: KindAlpha})
	}

	numeric := make([]Key, 0, 10)
	for d := 0; d <= 9; d++ {
		numeric = append(numeric, Key{Name: strconv.Itoa(d), Kind: KindNumeric})
	}

	function := make([]Key, 0, functionKeyCount)
	for n := 1; n <= functionKeyCount; n++ {
		function = append(function, Key{Name: "F" + strconv.Itoa(n), Kind: KindFunction})
	}

	r := &Registry{
		groups: []Group{
			{Name: "Special", Keys: special},
			{Name: "Alpha", Keys: alpha},
			{Name: "Numbers", Keys: numeric},
			{Name: "Function", Keys: function},
		},
		byName: make(map[string]Key),
	}
	for _, g := range r.groups {
		for _, k := range g.Keys {
			r.byName[k.Name] = k
		}
	}
	return r
}

// Resolve looks name up by exact, case-sensitive match.
func (r *Registry) Resolve(name string) (Key, error) {
	k, ok := r.byName[name]
	if !ok {
		return Key{}, &ResolutionError{Name: name}
	}
	return k, nil
}

// ResolveAll resolves every name, stopping at the first unknown one.
func (r *Registry) ResolveAll(names []string) ([]Key, error) {
	out := make([]Key, 0, len(names))
	for _, n := range names {
		k, err := r.Resolve(n)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

// All returns every key: special, alpha, numeric, then function.
func (r *Registry) All() []Key {
	var out []Key
	for _, g := range r.groups {
		out = append(out, g.Keys...)
	}
	return out
}

// Groups returns the catalogues in the same order as All. The returned
// slices are copies.
func (r *Registry) Groups() []Group {
	out := make([]Group, len(r.groups))
	for i, g := range r.groups {
		out[i] = Group{Name: g.Name, Keys: append([]Key(nil), g.Keys...)}
	}
	return out
}

// Char returns the key that types c. Characters that are not catalogue
// names are still injectable as KindCharacter keys.
func Char(c rune) Key {
	name := string(c)
	switch {
	case c >= 'a' && c <= 'z':
		return Key{Name: name, Kind: KindAlpha}
	case c >= '0' && c <= '9':
		return Key{Name: name, Kind: KindNumeric}
	}
	return Key{Name: name, Kind: KindCharacter}
}
