package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/streamdeckx/internal/deck"
)

// ErrNoDevices is returned when enumeration failed and found nothing.
var ErrNoDevices = errors.New("discovery: enumeration failed")

// Repository is the persistence the reconciler needs.
// *deck.SQLiteRepository implements it.
type Repository interface {
	Load(ctx context.Context, serial string, cfg deck.Config) (*deck.Deck, error)
	Create(ctx context.Context, d *deck.Deck) error
}

// Config configures a Reconciler.
type Config struct {
	Transport  Transport
	Registry   *deck.Registry
	Repository Repository

	// Deck is the template for loaded and created decks. Its
	// collaborators are used; identity and grid fields are overwritten.
	Deck deck.Config

	Logger Logger
}

// Attachment is a deck found on the current pass.
type Attachment struct {
	Deck   *deck.Deck
	Device Device

	// Bound is set when the device was bound to the deck on this pass.
	Bound bool

	// Created is set when the deck was seen for the first time and
	// persisted on this pass.
	Created bool
}

// Result reports one reconciliation pass.
type Result struct {
	Attached []Attachment

	// Detached lists the serials whose session disappeared.
	Detached []string

	// Skipped counts devices of an unknown type or with an unreadable
	// serial.
	Skipped int
}

// Reconciler maps hardware sessions to Deck instances.
//
// A session's serial is queried once and cached for the life of the
// reconciler. Decks are looked up in the registry, then in the
// repository, and created and persisted only when both miss.
type Reconciler struct {
	transport Transport
	registry  *deck.Registry
	repo      Repository
	template  deck.Config
	logger    Logger

	mu      sync.Mutex
	serials map[string]string // session → serial
	bound   map[string]string // serial → session
}

// NewReconciler validates cfg and creates a Reconciler.
func NewReconciler(cfg Config) (*Reconciler, error) {
	var errs []error
	if cfg.Transport == nil {
		errs = append(errs, errors.New("transport is required"))
	}
	if cfg.Registry == nil {
		errs = append(errs, errors.New("registry is required"))
	}
	if cfg.Repository == nil {
		errs = append(errs, errors.New("repository is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}

	return &Reconciler{
		transport: cfg.Transport,
		registry:  cfg.Registry,
		repo:      cfg.Repository,
		template:  cfg.Deck,
		logger:    cfg.Logger,
		serials:   make(map[string]string),
		bound:     make(map[string]string),
	}, nil
}

// Reconcile runs one discovery pass. Devices that cannot be identified or
// are of an unknown type are logged and skipped; decks whose session is
// gone are unbound. Persistence failures skip the affected device and are
// returned joined once the pass is complete.
func (r *Reconciler) Reconcile(ctx context.Context) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res Result

	devices, err := r.transport.Enumerate(ctx)
	partial := err != nil
	if partial {
		if len(devices) == 0 {
			return res, fmt.Errorf("%w: %w", ErrNoDevices, err)
		}
		r.logger.Warn("partial enumeration, keeping unseen decks bound", "error", err)
	}

	var errs []error
	seen := make(map[string]bool, len(devices))
	for _, dev := range devices {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		att, ok, err := r.reconcileDevice(ctx, dev)
		if err != nil {
			r.logger.Error("reconciling deck", "session", dev.SessionID(), "error", err)
			errs = append(errs, err)
		}
		if !ok {
			res.Skipped++
			continue
		}
		seen[att.Deck.Serial()] = true
		res.Attached = append(res.Attached, att)
	}

	// A failed transport hides its devices; they are not gone.
	for serial := range r.bound {
		if seen[serial] || partial {
			continue
		}
		if d, ok := r.registry.Get(serial); ok {
			d.Unbind()
		}
		delete(r.bound, serial)
		res.Detached = append(res.Detached, serial)
		r.logger.Info("deck detached", "serial", serial)
	}

	return res, errors.Join(errs...)
}

// Forget unbinds the deck for serial and drops it from the bound set, so
// the next pass binds it afresh and reports it as newly bound.
func (r *Reconciler) Forget(serial string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.registry.Get(serial); ok {
		d.Unbind()
	}
	delete(r.bound, serial)
}

// reconcileDevice resolves one device to its deck. ok is false when the
// device is skipped; err is set only for persistence failures.
func (r *Reconciler) reconcileDevice(ctx context.Context, dev Device) (Attachment, bool, error) {
	session := dev.SessionID()

	kind, err := kindOf(dev.DeckType())
	if err != nil {
		r.logger.Warn("unsupported deck type", "session", session, "type", dev.DeckType())
		return Attachment{}, false, nil
	}

	serial, ok := r.serials[session]
	if !ok {
		serial, err = dev.SerialNumber()
		if err != nil || serial == "" {
			r.logger.Warn("reading deck serial", "session", session, "error", err)
			return Attachment{}, false, nil
		}
		r.serials[session] = serial
	}

	att := Attachment{Device: dev}

	d, ok := r.registry.Get(serial)
	if !ok {
		d, att.Created, err = r.loadOrCreate(ctx, serial, kind, dev)
		if err != nil {
			return Attachment{}, false, err
		}
		d = r.registry.Register(d)
	}

	if d.Session() != session {
		d.Bind(session, dev)
		att.Bound = true
		r.logger.Info("deck attached", "serial", serial, "session", session, "kind", d.Kind())
	}
	r.bound[serial] = session

	att.Deck = d
	return att, true, nil
}

func (r *Reconciler) loadOrCreate(ctx context.Context, serial string, kind deck.Kind, dev Device) (*deck.Deck, bool, error) {
	d, err := r.repo.Load(ctx, serial, r.template)
	if err == nil {
		return d, false, nil
	}
	if !errors.Is(err, deck.ErrNotFound) {
		return nil, false, fmt.Errorf("loading deck %s: %w", serial, err)
	}

	cfg := r.template
	cfg.Serial = serial
	cfg.Kind = kind
	cfg.Name = ""
	cfg.Columns, cfg.Rows = 0, 0
	if g, ok := dev.(Gridded); ok && kind == deck.KindVirtual {
		cfg.Columns, cfg.Rows = g.Grid()
	}
	if n, ok := dev.(Named); ok {
		cfg.Name = n.Name()
	}

	d, err = deck.New(cfg)
	if err != nil {
		return nil, false, err
	}
	if err := r.repo.Create(ctx, d); err != nil {
		return nil, false, fmt.Errorf("creating deck %s: %w", serial, err)
	}
	r.logger.Info("deck created", "serial", serial, "kind", kind)
	return d, true, nil
}

// kindOf maps a device type, given as product or symbolic name, to a kind.
func kindOf(deckType string) (deck.Kind, error) {
	if k, err := deck.KindFromDisplayName(deckType); err == nil {
		return k, nil
	}
	return deck.ParseKind(deckType)
}
