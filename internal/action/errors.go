package action

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedVariant is matched by UnsupportedVariantError.
	ErrUnsupportedVariant = errors.New("action: unsupported variant")

	// ErrInvalidParameter is returned when a parameter cannot be decoded for
	// its variant, for example a non-integer delay.
	ErrInvalidParameter = errors.New("action: invalid parameter")

	// ErrNoInjector is returned when a key action runs without an Injector.
	ErrNoInjector = errors.New("action: no key injector configured")

	// ErrNoLauncher is returned when an application action runs without a
	// Launcher.
	ErrNoLauncher = errors.New("action: no launcher configured")
)

// UnsupportedVariantError reports an action type string with no variant.
type UnsupportedVariantError struct {
	Type string
}

func (e *UnsupportedVariantError) Error() string {
	return fmt.Sprintf("action: unsupported variant %q", e.Type)
}

func (e *UnsupportedVariantError) Unwrap() error { return ErrUnsupportedVariant }
