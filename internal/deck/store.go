package deck

import (
	"context"

	"github.com/nerrad567/streamdeckx/internal/action"
	"github.com/nerrad567/streamdeckx/internal/style"
)

// Store is the persistence a deck needs while it is being configured.
// Update and delete calls for an entity without an id fail with
// MissingIdentityError.
type Store interface {
	// UpdateButtonStyle writes the style of the button with buttonID.
	UpdateButtonStyle(ctx context.Context, buttonID int64, s style.Style) error

	// CreateAction inserts a and returns its new id.
	CreateAction(ctx context.Context, buttonID int64, a action.Action) (int64, error)

	// UpdateAction writes the order and parameter of a.
	UpdateAction(ctx context.Context, a action.Action) error

	// DeleteAction removes the action with id.
	DeleteAction(ctx context.Context, id int64) error
}
