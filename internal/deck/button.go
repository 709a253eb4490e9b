package deck

import (
	"cmp"
	"context"
	"fmt"
	"image"
	"slices"
	"strconv"
	"sync"

	"github.com/nerrad567/streamdeckx/internal/action"
	"github.com/nerrad567/streamdeckx/internal/style"
)

// Button is one key of a Deck. Its position is fixed; its style and
// action list change as the user configures it.
type Button struct {
	deck     *Deck
	position int

	// execMu is held for a whole ExecuteActions run so triggers from
	// different sources never interleave on one button.
	execMu sync.Mutex

	mu      sync.Mutex
	id      int64
	style   style.Style
	actions []action.Action // kept sorted by order, ties in insertion order
}

// Position is the 0-based, row-major index of the button on its deck.
func (b *Button) Position() int { return b.position }

// ID is the storage key, zero until the button is persisted.
func (b *Button) ID() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.id
}

// Equal reports whether b and o occupy the same position.
func (b *Button) Equal(o *Button) bool {
	return o != nil && b.position == o.position
}

// Style returns the current style.
func (b *Button) Style() style.Style {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.style
}

// Actions returns the actions in execution order.
func (b *Button) Actions() []action.Action {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.actions)
}

// ExecuteActions runs every action in ascending order, one after another.
// The first failure stops the sequence and is returned as an *ActionError.
// A button with no actions does nothing. Concurrent calls run one after
// the other.
func (b *Button) ExecuteActions(ctx context.Context) error {
	b.execMu.Lock()
	defer b.execMu.Unlock()

	for i, a := range b.Actions() {
		if err := a.Execute(ctx); err != nil {
			return &ActionError{
				Position: b.position,
				Index:    i,
				ActionID: a.ID(),
				Type:     a.Type(),
				Err:      err,
			}
		}
	}
	return nil
}

// SetText changes the label.
func (b *Button) SetText(ctx context.Context, label string) error {
	return b.mutate(ctx, func(s *style.Style) error {
		s.Label = label
		return nil
	})
}

// SetColors changes the background and text colours, given as #rgb or
// #rrggbb.
func (b *Button) SetColors(ctx context.Context, background, text string) error {
	for _, c := range []string{background, text} {
		if _, err := style.ParseHexColor(c); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidStyle, err)
		}
	}
	return b.mutate(ctx, func(s *style.Style) error {
		s.BackgroundColor, s.TextColor = background, text
		return nil
	})
}

// SetFontSize changes the font size in points.
func (b *Button) SetFontSize(ctx context.Context, size int) error {
	if size <= 0 {
		return fmt.Errorf("%w: font size must be positive, got %d", ErrInvalidStyle, size)
	}
	return b.mutate(ctx, func(s *style.Style) error {
		s.FontSize = size
		return nil
	})
}

// SetFont changes the font. The font must be loadable by the renderer;
// an empty name selects the renderer default.
func (b *Button) SetFont(ctx context.Context, font string) error {
	if _, err := b.deck.renderer.Measurer(font, b.Style().FontSize); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidStyle, err)
	}
	return b.mutate(ctx, func(s *style.Style) error {
		s.Font = font
		return nil
	})
}

// SetBackgroundImage sets a base64 encoded background image. An empty
// string removes the image.
func (b *Button) SetBackgroundImage(ctx context.Context, encoded string) error {
	return b.mutate(ctx, func(s *style.Style) error {
		s.BackgroundImage = encoded
		return nil
	})
}

// mutate applies change, pushes the new face to the hardware and persists
// the style. Render or push failures are logged; persistence still runs.
func (b *Button) mutate(ctx context.Context, change func(*style.Style) error) error {
	b.mu.Lock()
	next := b.style
	if err := change(&next); err != nil {
		b.mu.Unlock()
		return err
	}
	b.style = next
	id := b.id
	b.mu.Unlock()

	b.deck.pushFace(b)

	if id == 0 {
		return &MissingIdentityError{Entity: "button " + strconv.Itoa(b.position)}
	}
	if err := b.deck.store.UpdateButtonStyle(ctx, id, next); err != nil {
		return fmt.Errorf("saving button %d style: %w", b.position, err)
	}
	return nil
}

// AddAction appends an action after the current last one and persists it.
func (b *Button) AddAction(ctx context.Context, typ action.Type, parameter string) (action.Action, error) {
	if err := b.deck.actions.Validate(typ, parameter); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.id == 0 {
		return nil, &MissingIdentityError{Entity: "button " + strconv.Itoa(b.position)}
	}

	order := 0
	if n := len(b.actions); n > 0 {
		order = b.actions[n-1].Order() + 1
	}
	draft, err := b.deck.actions.New(typ, parameter, order, 0)
	if err != nil {
		return nil, err
	}
	id, err := b.deck.store.CreateAction(ctx, b.id, draft)
	if err != nil {
		return nil, fmt.Errorf("saving action: %w", err)
	}
	a, err := b.deck.actions.New(typ, draft.Parameter(), order, id)
	if err != nil {
		return nil, err
	}
	b.actions = append(b.actions, a)
	return a, nil
}

// UpdateAction changes the order and parameter of the action with id.
func (b *Button) UpdateAction(ctx context.Context, id int64, order int, parameter string) (action.Action, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexOf(id)
	if i < 0 {
		return nil, &NotFoundError{Entity: "action", Key: strconv.FormatInt(id, 10)}
	}
	typ := b.actions[i].Type()
	if err := b.deck.actions.Validate(typ, parameter); err != nil {
		return nil, err
	}
	a, err := b.deck.actions.New(typ, parameter, order, id)
	if err != nil {
		return nil, err
	}
	if err := b.deck.store.UpdateAction(ctx, a); err != nil {
		return nil, fmt.Errorf("saving action %d: %w", id, err)
	}

	// Remove and reinsert so a moved action lands after existing actions
	// that share its new order.
	b.actions = slices.Delete(b.actions, i, i+1)
	b.insertLocked(a)
	return a, nil
}

// RemoveAction deletes the action with id.
func (b *Button) RemoveAction(ctx context.Context, id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexOf(id)
	if i < 0 {
		return &NotFoundError{Entity: "action", Key: strconv.FormatInt(id, 10)}
	}
	if err := b.deck.store.DeleteAction(ctx, id); err != nil {
		return fmt.Errorf("deleting action %d: %w", id, err)
	}
	b.actions = slices.Delete(b.actions, i, i+1)
	return nil
}

func (b *Button) indexOf(id int64) int {
	if id == 0 {
		return -1
	}
	return slices.IndexFunc(b.actions, func(a action.Action) bool { return a.ID() == id })
}

// insertLocked places a after every action with an order not greater
// than its own.
func (b *Button) insertLocked(a action.Action) {
	i := slices.IndexFunc(b.actions, func(x action.Action) bool { return x.Order() > a.Order() })
	if i < 0 {
		i = len(b.actions)
	}
	b.actions = slices.Insert(b.actions, i, a)
}

// setActions replaces the action list, sorting it stably by order.
func (b *Button) setActions(actions []action.Action) {
	slices.SortStableFunc(actions, func(x, y action.Action) int { return cmp.Compare(x.Order(), y.Order()) })
	b.mu.Lock()
	b.actions = actions
	b.mu.Unlock()
}

// Face renders the button at the deck's key size.
func (b *Button) Face() (*image.RGBA, error) {
	return b.face(b.deck.KeySize())
}

func (b *Button) face(size int) (*image.RGBA, error) {
	return b.deck.renderer.Render(b.Style(), size)
}

// ButtonView is the serialisable summary of a button.
type ButtonView struct {
	Position int                  `json:"position"`
	ID       int64                `json:"id"`
	Style    style.Style          `json:"style"`
	Actions  []action.Description `json:"actions"`
}

// Describe summarises b.
func (b *Button) Describe() ButtonView {
	b.mu.Lock()
	defer b.mu.Unlock()

	v := ButtonView{
		Position: b.position,
		ID:       b.id,
		Style:    b.style,
		Actions:  make([]action.Description, len(b.actions)),
	}
	for i, a := range b.actions {
		v.Actions[i] = action.Describe(a)
	}
	return v
}
