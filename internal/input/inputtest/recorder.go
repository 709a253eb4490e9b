// Package inputtest provides an in-memory keystroke injector for tests.
package inputtest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/streamdeckx/internal/input"
	"github.com/nerrad567/streamdeckx/internal/keys"
)

// ErrInjected is returned by a Recorder configured to fail.
var ErrInjected = errors.New("inputtest: injected failure")

// Recorder keeps key events in memory. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []input.Event

	// FailOn makes Press fail for the named key.
	FailOn string
}

func (r *Recorder) Press(k keys.Key) error {
	if r.FailOn != "" && k.Name == r.FailOn {
		return fmt.Errorf("%w: press %s", ErrInjected, k.Name)
	}
	r.add(k, true)
	return nil
}

func (r *Recorder) Release(k keys.Key) error {
	r.add(k, false)
	return nil
}

func (r *Recorder) add(k keys.Key, pressed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, input.Event{Key: k.Name, Kind: k.Kind, Pressed: pressed})
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []input.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]input.Event(nil), r.events...)
}

// Trace renders the events as "press:a", "release:a", ... for comparisons.
func (r *Recorder) Trace() []string {
	events := r.Events()
	out := make([]string, len(events))
	for i, e := range events {
		verb := "release"
		if e.Pressed {
			verb = "press"
		}
		out[i] = verb + ":" + e.Key
	}
	return out
}

// Reset clears the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
