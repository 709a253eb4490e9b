// Package dispatch runs button action sequences for every trigger source:
// physical key presses, HTTP requests and MQTT commands. Each run produces
// an Execution record that is logged and passed to a Notifier.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/streamdeckx/internal/deck"
)

// Source is what triggered an execution.
type Source string

const (
	SourceKey  Source = "key"
	SourceAPI  Source = "api"
	SourceMQTT Source = "mqtt"
)

// Execution records one run of a button's actions.
type Execution struct {
	ID           string        `json:"id"`
	Serial       string        `json:"serial"`
	Position     int           `json:"position"`
	Source       Source        `json:"source"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration_ns"`
	ActionsTotal int           `json:"actions_total"`
	ActionsRun   int           `json:"actions_run"`
	Error        string        `json:"error,omitempty"`
}

// Failed reports whether an action aborted the run.
func (e Execution) Failed() bool { return e.Error != "" }

// Notifier receives every finished execution.
type Notifier interface {
	Executed(e Execution)
}

// Decks looks up registered decks. *deck.Registry implements it.
type Decks interface {
	Get(serial string) (*deck.Deck, bool)
}

// Logger defines the logging interface used by the dispatcher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Dispatcher. All fields are optional.
type Options struct {
	Notifier Notifier
	Logger   Logger
}

// Dispatcher executes buttons. It is safe for concurrent use; runs for
// different buttons proceed in parallel and are never cancelled by other
// triggers.
type Dispatcher struct {
	decks    Decks
	notifier Notifier
	logger   Logger

	now   func() time.Time
	newID func() string
}

// New creates a Dispatcher over decks.
func New(decks Decks, opts Options) *Dispatcher {
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	return &Dispatcher{
		decks:    decks,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Trigger executes the button at position on the deck with serial. The
// execution record is returned even when an action fails.
func (d *Dispatcher) Trigger(ctx context.Context, serial string, position int, source Source) (Execution, error) {
	dk, ok := d.decks.Get(serial)
	if !ok {
		return Execution{}, &deck.NotFoundError{Entity: "deck", Key: serial}
	}
	b, err := dk.Button(position)
	if err != nil {
		return Execution{}, err
	}
	return d.run(ctx, dk.Serial(), b, source)
}

// HandleKey executes a physically pressed button. Failures are logged and
// notified, not returned.
func (d *Dispatcher) HandleKey(ctx context.Context, dk *deck.Deck, position int) {
	b, err := dk.Button(position)
	if err != nil {
		d.logger.Warn("key outside deck grid", "serial", dk.Serial(), "position", position)
		return
	}
	_, _ = d.run(ctx, dk.Serial(), b, SourceKey)
}

func (d *Dispatcher) run(ctx context.Context, serial string, b *deck.Button, source Source) (Execution, error) {
	e := Execution{
		ID:           d.newID(),
		Serial:       serial,
		Position:     b.Position(),
		Source:       source,
		StartedAt:    d.now(),
		ActionsTotal: len(b.Actions()),
	}

	err := b.ExecuteActions(ctx)
	e.Duration = d.now().Sub(e.StartedAt)
	e.ActionsRun = e.ActionsTotal

	if err != nil {
		var actionErr *deck.ActionError
		if errors.As(err, &actionErr) {
			e.ActionsRun = actionErr.Index
		}
		e.Error = err.Error()
		d.logger.Warn("button execution failed",
			"execution_id", e.ID, "serial", serial, "position", e.Position,
			"source", source, "error", err)
	} else {
		d.logger.Info("button executed",
			"execution_id", e.ID, "serial", serial, "position", e.Position,
			"source", source, "actions", e.ActionsTotal, "duration", e.Duration)
	}

	if d.notifier != nil {
		d.notifier.Executed(e)
	}
	return e, err
}
