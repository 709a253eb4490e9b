package action

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/nerrad567/streamdeckx/internal/keys"
)

// Type is the discriminator persisted in action.type.
type Type string

const (
	TypeText        Type = "TEXT"
	TypeMultiKey    Type = "MULTIKEY"
	TypeDelay       Type = "DELAY"
	TypeApplication Type = "APPLICATION"
)

// Types lists every supported variant.
func Types() []Type {
	return []Type{TypeText, TypeMultiKey, TypeDelay, TypeApplication}
}

// ParseType maps a stored type string to its Type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !slices.Contains(Types(), t) {
		return "", &UnsupportedVariantError{Type: s}
	}
	return t, nil
}

// Action is one step of a button's sequence.
type Action interface {
	// ID is the storage key, zero before the action is persisted.
	ID() int64
	// Order positions the action within its button's sequence.
	Order() int
	// Parameter is the raw, variant-specific configuration string.
	Parameter() string
	Type() Type
	// DisplayValue is a short human readable summary.
	DisplayValue() string
	// Execute performs the effect, returning when it is complete. Only
	// Delay observes ctx.
	Execute(ctx context.Context) error
}

// Injector emits synthetic key events.
type Injector interface {
	Press(k keys.Key) error
	Release(k keys.Key) error
}

// Launcher starts external programs without waiting for them.
type Launcher interface {
	Launch(command string) error
}

// KeyResolver maps symbolic key names to keys.
type KeyResolver interface {
	Resolve(name string) (keys.Key, error)
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Equal reports whether a and b describe the same effect. Text actions
// compare their text and MultiKey actions compare their key names without
// regard to order. Other variants compare type and parameter. IDs and
// orders are ignored.
func Equal(a, b Action) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Type() != b.Type() {
		return false
	}
	if am, ok := a.(*MultiKey); ok {
		bm, ok := b.(*MultiKey)
		if !ok {
			return false
		}
		x, y := slices.Clone(am.names), slices.Clone(bm.names)
		slices.Sort(x)
		slices.Sort(y)
		return slices.Equal(x, y)
	}
	return a.Parameter() == b.Parameter()
}

// Description is the serialisable view of an action.
type Description struct {
	ID        int64  `json:"id"`
	Type      Type   `json:"type"`
	Order     int    `json:"order"`
	Parameter string `json:"parameter"`
	Display   string `json:"display"`
}

// Describe returns the serialisable view of a.
func Describe(a Action) Description {
	return Description{
		ID:        a.ID(),
		Type:      a.Type(),
		Order:     a.Order(),
		Parameter: a.Parameter(),
		Display:   a.DisplayValue(),
	}
}

// splitKeyNames splits a MultiKey parameter, dropping blanks around and
// between separators.
func splitKeyNames(parameter string) []string {
	var names []string
	for _, n := range strings.Split(parameter, ";") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}
