package discovery

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nerrad567/streamdeckx/internal/deck"
)

// DefaultScanInterval is used when ScannerConfig.Interval is zero.
const DefaultScanInterval = 2 * time.Second

// ErrScannerStopped is returned by Rescan once Run has returned.
var ErrScannerStopped = errors.New("discovery: scanner stopped")

// KeyHandler runs a button press. Calls arrive on the device's reader
// goroutine and block further events from that device until they return.
type KeyHandler interface {
	HandleKey(ctx context.Context, d *deck.Deck, position int)
}

// Observer is told about attach and detach events.
type Observer interface {
	DeckAttached(d *deck.Deck, created bool)
	DeckDetached(serial string)
}

// ScannerConfig configures a Scanner.
type ScannerConfig struct {
	Reconciler *Reconciler
	Keys       KeyHandler
	Observer   Observer
	Interval   time.Duration
	Logger     Logger
}

// Scanner is the single loop owning hardware attach and detach. Each pass
// reconciles devices, then opens newly bound decks, installs their key
// callbacks and pushes every face.
type Scanner struct {
	reconciler *Reconciler
	keys       KeyHandler
	observer   Observer
	interval   time.Duration
	logger     Logger

	requests chan chan scanReply
	done     chan struct{}
	stopOnce sync.Once
}

type scanReply struct {
	res Result
	err error
}

// NewScanner creates a Scanner. Call Run to start it.
func NewScanner(cfg ScannerConfig) (*Scanner, error) {
	if cfg.Reconciler == nil {
		return nil, errors.New("discovery: reconciler is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultScanInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}
	return &Scanner{
		reconciler: cfg.Reconciler,
		keys:       cfg.Keys,
		observer:   cfg.Observer,
		interval:   cfg.Interval,
		logger:     cfg.Logger,
		requests:   make(chan chan scanReply),
		done:       make(chan struct{}),
	}, nil
}

// Run scans immediately and then every interval until ctx is cancelled.
// Rescan requests are served between ticks.
func (s *Scanner) Run(ctx context.Context) error {
	defer s.stopOnce.Do(func() { close(s.done) })

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.scan(ctx)
		case reply := <-s.requests:
			res, err := s.scan(ctx)
			reply <- scanReply{res: res, err: err}
		}
	}
}

// Rescan asks the running loop for an immediate pass and waits for its
// result.
func (s *Scanner) Rescan(ctx context.Context) (Result, error) {
	reply := make(chan scanReply, 1)
	select {
	case s.requests <- reply:
	case <-s.done:
		return Result{}, ErrScannerStopped
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	select {
	case r := <-reply:
		return r.res, r.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (s *Scanner) scan(ctx context.Context) (Result, error) {
	res, err := s.reconciler.Reconcile(ctx)
	if err != nil {
		s.logger.Warn("discovery pass", "error", err)
	}

	for _, att := range res.Attached {
		if att.Bound {
			s.attach(ctx, att)
		}
	}
	for _, serial := range res.Detached {
		if s.observer != nil {
			s.observer.DeckDetached(serial)
		}
	}
	return res, err
}

// attach claims a newly bound deck and starts delivering its key events.
// A deck that fails to open is forgotten and retried on the next pass.
func (s *Scanner) attach(ctx context.Context, att Attachment) {
	d := att.Deck

	if s.keys != nil {
		att.Device.SetKeyCallback(func(position int, pressed bool) {
			if pressed {
				s.keys.HandleKey(ctx, d, position)
			}
		})
	}
	if err := d.Open(); err != nil {
		s.logger.Error("opening deck, retrying next pass", "serial", d.Serial(), "error", err)
		s.reconciler.Forget(d.Serial())
		return
	}
	if err := d.Update(ctx); err != nil {
		s.logger.Warn("pushing faces", "serial", d.Serial(), "error", err)
	}
	if s.observer != nil {
		s.observer.DeckAttached(d, att.Created)
	}
}
