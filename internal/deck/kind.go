package deck

import "fmt"

// Kind is a deck model. Its value is what the deck table stores in type.
type Kind string

const (
	KindOriginal Kind = "ORIGINAL"
	KindXL       Kind = "XL"
	KindMini     Kind = "MINI"
	KindVirtual  Kind = "VIRTUAL"
)

type kindSpec struct {
	display       string
	columns, rows int
	keySize       int
}

var kindSpecs = map[Kind]kindSpec{
	KindOriginal: {"Stream Deck Original", 5, 3, 72},
	KindXL:       {"Stream Deck XL", 8, 4, 96},
	KindMini:     {"Stream Deck Mini", 3, 2, 80},
	KindVirtual:  {"Virtual Stream Deck", 5, 3, 72},
}

// Kinds lists every supported kind.
func Kinds() []Kind {
	return []Kind{KindOriginal, KindXL, KindMini, KindVirtual}
}

// ParseKind maps a stored kind name to its Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := kindSpecs[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// KindFromDisplayName maps a product name such as "Stream Deck XL" to its
// Kind.
func KindFromDisplayName(name string) (Kind, error) {
	for k, spec := range kindSpecs {
		if spec.display == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// DisplayName is the product name, also the default deck name.
func (k Kind) DisplayName() string { return kindSpecs[k].display }

// Grid is the default columns and rows. Only virtual decks may differ.
func (k Kind) Grid() (columns, rows int) {
	s := kindSpecs[k]
	return s.columns, s.rows
}

// KeySize is the native key image edge in pixels.
func (k Kind) KeySize() int { return kindSpecs[k].keySize }

func (k Kind) valid() bool {
	_, ok := kindSpecs[k]
	return ok
}
