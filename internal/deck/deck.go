package deck

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strconv"
	"sync"

	"github.com/nerrad567/streamdeckx/internal/action"
	"github.com/nerrad567/streamdeckx/internal/render"
	"github.com/nerrad567/streamdeckx/internal/style"
)

// Handle is a hardware connection to one deck. Implementations are not
// safe for concurrent use; Deck serialises every call.
type Handle interface {
	Open() error
	Close() error
	Reset() error
	SetKeyImage(index int, img image.Image) error
	// KeyImageSize is the native key image edge in pixels.
	KeyImageSize() int
}

// FaceRenderer draws button faces. *render.Renderer implements it.
type FaceRenderer interface {
	Render(s style.Style, size int) (*image.RGBA, error)
	Measurer(font string, size int) (render.Measurer, error)
}

// State is the hardware state of a deck.
type State int

const (
	// StateUnbound means no hardware handle is known.
	StateUnbound State = iota
	// StateClosed means a handle is bound but not claimed.
	StateClosed
	// StateOpen means the handle is claimed for exclusive I/O.
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// Config describes a deck and the collaborators it uses.
type Config struct {
	// Serial is the durable hardware serial number. Required.
	Serial string

	// Name defaults to the kind's display name.
	Name string

	// Kind is required.
	Kind Kind

	// Columns and Rows default to the kind's grid. Only virtual decks may
	// use a different grid.
	Columns int
	Rows    int

	// KeySize is the face size used while no handle is bound. Defaults
	// to the kind's native key size.
	KeySize int

	// Store persists button and action changes. Required.
	Store Store

	// Renderer draws faces. Required.
	Renderer FaceRenderer

	// Actions builds actions for the buttons. Required.
	Actions *action.Factory

	Logger Logger
}

func (cfg *Config) applyDefaults() {
	if cfg.Name == "" {
		cfg.Name = cfg.Kind.DisplayName()
	}
	cols, rows := cfg.Kind.Grid()
	if cfg.Columns == 0 {
		cfg.Columns = cols
	}
	if cfg.Rows == 0 {
		cfg.Rows = rows
	}
	if cfg.KeySize == 0 {
		cfg.KeySize = cfg.Kind.KeySize()
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}
}

// Validate reports every problem with cfg at once.
func (cfg Config) Validate() error {
	var errs []error
	if cfg.Serial == "" {
		errs = append(errs, errors.New("serial is required"))
	}
	if !cfg.Kind.valid() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind))
	} else if cfg.Kind != KindVirtual {
		cols, rows := cfg.Kind.Grid()
		if (cfg.Columns != 0 && cfg.Columns != cols) || (cfg.Rows != 0 && cfg.Rows != rows) {
			errs = append(errs, fmt.Errorf("%s decks are %dx%d, got %dx%d", cfg.Kind, cols, rows, cfg.Columns, cfg.Rows))
		}
	}
	if cfg.Columns < 0 || cfg.Rows < 0 || cfg.KeySize < 0 {
		errs = append(errs, errors.New("grid and key size must not be negative"))
	}
	if cfg.Store == nil {
		errs = append(errs, errors.New("store is required"))
	}
	if cfg.Renderer == nil {
		errs = append(errs, errors.New("renderer is required"))
	}
	if cfg.Actions == nil {
		errs = append(errs, errors.New("action factory is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Deck is one macro pad: a fixed grid of buttons and, while attached, the
// hardware handle their faces are pushed through.
//
// The button slice is built once by New and never resized, so position i
// always refers to the same Button. All handle I/O is serialised by the
// deck's mutex.
type Deck struct {
	serial  string
	name    string
	kind    Kind
	columns int
	rows    int
	keySize int

	store    Store
	renderer FaceRenderer
	actions  *action.Factory
	logger   Logger

	buttons []*Button

	mu      sync.Mutex
	handle  Handle
	session string
	state   State
}

// New validates cfg and builds an unbound deck whose buttons all carry the
// default style.
func New(cfg Config) (*Deck, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	d := &Deck{
		serial:   cfg.Serial,
		name:     cfg.Name,
		kind:     cfg.Kind,
		columns:  cfg.Columns,
		rows:     cfg.Rows,
		keySize:  cfg.KeySize,
		store:    cfg.Store,
		renderer: cfg.Renderer,
		actions:  cfg.Actions,
		logger:   cfg.Logger,
	}

	d.buttons = make([]*Button, cfg.Columns*cfg.Rows)
	for i := range d.buttons {
		d.buttons[i] = &Button{deck: d, position: i, style: style.Default(i)}
	}
	return d, nil
}

func (d *Deck) Serial() string { return d.serial }
func (d *Deck) Name() string   { return d.name }
func (d *Deck) Kind() Kind     { return d.kind }
func (d *Deck) Columns() int   { return d.columns }
func (d *Deck) Rows() int      { return d.rows }

// Buttons returns the buttons in position order.
func (d *Deck) Buttons() []*Button {
	return append([]*Button(nil), d.buttons...)
}

// Button returns the button at position.
func (d *Deck) Button(position int) (*Button, error) {
	if position < 0 || position >= len(d.buttons) {
		return nil, &NotFoundError{Entity: "button", Key: d.serial + "/" + strconv.Itoa(position)}
	}
	return d.buttons[position], nil
}

// State returns the hardware state.
func (d *Deck) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Session returns the transport session id of the bound handle, or "".
func (d *Deck) Session() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session
}

// KeySize is the face size: the handle's native size when bound.
func (d *Deck) KeySize() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.keySizeLocked()
}

func (d *Deck) keySizeLocked() int {
	if d.handle != nil {
		if n := d.handle.KeyImageSize(); n > 0 {
			return n
		}
	}
	return d.keySize
}

// Bind attaches the handle found for session. A previously bound handle
// is released first, so a replugged deck never keeps a stale handle.
func (d *Deck) Bind(session string, h Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.handle != nil && d.handle != h {
		d.releaseLocked()
	}
	d.handle = h
	d.session = session
	if d.state == StateUnbound {
		d.state = StateClosed
	}
}

// Unbind forgets the hardware handle, closing it if it was open.
func (d *Deck) Unbind() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.releaseLocked()
}

func (d *Deck) releaseLocked() {
	if d.state == StateOpen {
		if err := d.handle.Close(); err != nil {
			d.logger.Warn("closing released handle", "serial", d.serial, "error", err)
		}
	}
	d.handle = nil
	d.session = ""
	d.state = StateUnbound
}

// Open claims the handle. It does nothing if the deck is already open.
func (d *Deck) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.openLocked()
}

func (d *Deck) openLocked() error {
	switch d.state {
	case StateOpen:
		return nil
	case StateUnbound:
		return ErrUnbound
	}
	if err := d.handle.Open(); err != nil {
		return fmt.Errorf("opening deck %s: %w", d.serial, err)
	}
	d.state = StateOpen
	return nil
}

// Close releases the claim on the handle. It does nothing unless open.
func (d *Deck) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closeLocked()
}

func (d *Deck) closeLocked() error {
	if d.state != StateOpen {
		return nil
	}
	d.state = StateClosed
	if err := d.handle.Close(); err != nil {
		return fmt.Errorf("closing deck %s: %w", d.serial, err)
	}
	return nil
}

// Reset clears the hardware's key images. It does nothing without a handle.
func (d *Deck) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.handle == nil {
		return nil
	}
	return d.withOpenLocked(func(h Handle) error {
		if err := h.Reset(); err != nil {
			return fmt.Errorf("resetting deck %s: %w", d.serial, err)
		}
		return nil
	})
}

// withOpenLocked runs fn with the handle open and afterwards restores the
// state found on entry. d.mu must be held and a handle bound.
func (d *Deck) withOpenLocked(fn func(Handle) error) error {
	wasOpen := d.state == StateOpen
	if err := d.openLocked(); err != nil {
		return err
	}

	err := fn(d.handle)
	if !wasOpen {
		err = errors.Join(err, d.closeLocked())
	}
	return err
}

// Update pushes every button's face to the hardware. It does nothing for
// a deck without a handle. Faces that fail to render are logged and left
// unchanged on the device.
func (d *Deck) Update(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.handle == nil {
		return nil
	}
	size := d.keySizeLocked()
	return d.withOpenLocked(func(h Handle) error {
		for _, b := range d.buttons {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := b.face(size)
			if err != nil {
				d.logger.Warn("rendering face", "serial", d.serial, "position", b.position, "error", err)
				continue
			}
			if err := h.SetKeyImage(b.position, img); err != nil {
				return fmt.Errorf("setting key %d image: %w", b.position, err)
			}
		}
		return nil
	})
}

// pushFace renders b and sends it to the hardware. Without a handle the
// call is skipped. Failures are logged rather than returned.
func (d *Deck) pushFace(b *Button) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.handle == nil {
		return
	}
	img, err := b.face(d.keySizeLocked())
	if err != nil {
		d.logger.Warn("rendering face", "serial", d.serial, "position", b.position, "error", err)
		return
	}
	err = d.withOpenLocked(func(h Handle) error {
		return h.SetKeyImage(b.position, img)
	})
	if err != nil {
		d.logger.Warn("pushing face", "serial", d.serial, "position", b.position, "error", err)
	}
}

// View is the serialisable summary of a deck.
type View struct {
	Serial      string       `json:"serial"`
	Name        string       `json:"name"`
	Kind        Kind         `json:"kind"`
	DisplayName string       `json:"display_name"`
	Columns     int          `json:"columns"`
	Rows        int          `json:"rows"`
	State       string       `json:"state"`
	Session     string       `json:"session,omitempty"`
	Buttons     []ButtonView `json:"buttons,omitempty"`
}

// Describe summarises d. Buttons are included when withButtons is set.
func (d *Deck) Describe(withButtons bool) View {
	d.mu.Lock()
	v := View{
		Serial:      d.serial,
		Name:        d.name,
		Kind:        d.kind,
		DisplayName: d.kind.DisplayName(),
		Columns:     d.columns,
		Rows:        d.rows,
		State:       d.state.String(),
		Session:     d.session,
	}
	d.mu.Unlock()

	if withButtons {
		v.Buttons = make([]ButtonView, len(d.buttons))
		for i, b := range d.buttons {
			v.Buttons[i] = b.Describe()
		}
	}
	return v
}
