package action

import (
	"fmt"
	"strings"
)

// Factory builds actions from their stored form.
type Factory struct {
	Keys     KeyResolver
	Injector Injector
	Launcher Launcher

	// Sleep replaces the real clock for Delay actions. Nil uses Sleep.
	Sleep SleepFunc
}

// New builds the variant named by typ. An id of zero marks an action not
// yet persisted.
func (f *Factory) New(typ Type, parameter string, order int, id int64) (Action, error) {
	b := base{id: id, order: order, parameter: parameter}

	switch typ {
	case TypeText:
		return &Text{base: b, injector: f.Injector}, nil

	case TypeMultiKey:
		names := splitKeyNames(parameter)
		if len(names) == 0 {
			return nil, fmt.Errorf("%w: empty key chord", ErrInvalidParameter)
		}
		// Store the normalised form so equal chords persist identically.
		b.parameter = strings.Join(names, ";")
		return &MultiKey{base: b, names: names, resolver: f.Keys, injector: f.Injector}, nil

	case TypeDelay:
		seconds, err := parseDelay(parameter)
		if err != nil {
			return nil, err
		}
		return &Delay{base: b, seconds: seconds, sleep: f.Sleep}, nil

	case TypeApplication:
		if strings.TrimSpace(parameter) == "" {
			return nil, fmt.Errorf("%w: empty application command", ErrInvalidParameter)
		}
		return &Application{base: b, launcher: f.Launcher}, nil
	}

	return nil, &UnsupportedVariantError{Type: string(typ)}
}

// NewFromStored is New with the type given as its stored string.
func (f *Factory) NewFromStored(typ, parameter string, order int, id int64) (Action, error) {
	t, err := ParseType(typ)
	if err != nil {
		return nil, err
	}
	return f.New(t, parameter, order, id)
}

// Validate checks that typ and parameter would build a runnable action.
// Beyond New it resolves MultiKey names, so a configuration request naming
// an unknown key fails before anything is stored.
func (f *Factory) Validate(typ Type, parameter string) error {
	a, err := f.New(typ, parameter, 0, 0)
	if err != nil {
		return err
	}
	if m, ok := a.(*MultiKey); ok {
		if _, err := m.Keys(); err != nil {
			return err
		}
	}
	return nil
}
