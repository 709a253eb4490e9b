package deck

import (
	"errors"
	"fmt"

	"github.com/nerrad567/streamdeckx/internal/action"
)

// Domain errors for the deck package. Typed errors below unwrap to these so
// callers can use errors.Is:
//
//	if errors.Is(err, deck.ErrNotFound) {
//	    // unknown deck, button or action
//	}
var (
	// ErrNotFound is matched by NotFoundError.
	ErrNotFound = errors.New("deck: not found")

	// ErrMissingIdentity is matched by MissingIdentityError.
	ErrMissingIdentity = errors.New("deck: entity has no storage identity")

	// ErrInvalidConfig is returned by New for unusable configurations.
	ErrInvalidConfig = errors.New("deck: invalid configuration")

	// ErrUnknownKind is returned for deck kinds outside the supported set.
	ErrUnknownKind = errors.New("deck: unknown kind")

	// ErrUnbound is returned when opening a deck that has no hardware handle.
	ErrUnbound = errors.New("deck: no hardware handle bound")

	// ErrInvalidStyle is returned by button mutators given unusable values.
	ErrInvalidStyle = errors.New("deck: invalid style")
)

// NotFoundError reports an unknown deck, button or action.
type NotFoundError struct {
	Entity string // "deck", "button" or "action"
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("deck: %s %s not found", e.Entity, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// MissingIdentityError reports an update or delete of an entity that was
// never persisted.
type MissingIdentityError struct {
	Entity string
}

func (e *MissingIdentityError) Error() string {
	return fmt.Sprintf("deck: %s has no storage identity", e.Entity)
}

func (e *MissingIdentityError) Unwrap() error { return ErrMissingIdentity }

// ActionError reports the action that aborted a button's sequence.
type ActionError struct {
	Position int
	// Index is the failing action's place in execution order; it is also
	// the number of actions that completed before it.
	Index    int
	ActionID int64
	Type     action.Type
	Err      error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("button %d: action %d (%s, id %d): %v", e.Position, e.Index, e.Type, e.ActionID, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }
