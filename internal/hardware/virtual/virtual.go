// Package virtual provides in-memory decks for development and tests.
// A virtual deck behaves like attached hardware: it must be opened before
// it accepts images or delivers key events, and it gets a fresh session
// id each time it is plugged in.
package virtual

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/nerrad567/streamdeckx/internal/deck"
	"github.com/nerrad567/streamdeckx/internal/discovery"
)

var (
	// ErrClosed is returned for I/O on a device that is not open.
	ErrClosed = errors.New("virtual: device not open")

	// ErrKeyRange is returned for a key index outside the grid.
	ErrKeyRange = errors.New("virtual: key index out of range")
)

// Spec describes one virtual deck.
type Spec struct {
	Serial  string
	Name    string
	Columns int
	Rows    int
	KeySize int
}

// Device is one virtual deck.
type Device struct {
	spec    Spec
	session string

	mu       sync.Mutex
	open     bool
	images   map[int]image.Image
	callback discovery.KeyCallback
}

func newDevice(spec Spec) *Device {
	cols, rows := deck.KindVirtual.Grid()
	if spec.Columns <= 0 {
		spec.Columns = cols
	}
	if spec.Rows <= 0 {
		spec.Rows = rows
	}
	if spec.KeySize <= 0 {
		spec.KeySize = deck.KindVirtual.KeySize()
	}
	return &Device{spec: spec, session: uuid.NewString(), images: make(map[int]image.Image)}
}

func (d *Device) SessionID() string             { return d.session }
func (d *Device) SerialNumber() (string, error) { return d.spec.Serial, nil }
func (d *Device) DeckType() string              { return deck.KindVirtual.DisplayName() }
func (d *Device) Grid() (int, int)              { return d.spec.Columns, d.spec.Rows }
func (d *Device) KeyImageSize() int             { return d.spec.KeySize }
func (d *Device) Name() string                  { return d.spec.Name }

func (d *Device) Open() error {
	d.mu.Lock()
	d.open = true
	d.mu.Unlock()
	return nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	d.open = false
	d.mu.Unlock()
	return nil
}

// Reset clears every key image.
func (d *Device) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return ErrClosed
	}
	clear(d.images)
	return nil
}

func (d *Device) SetKeyImage(index int, img image.Image) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return ErrClosed
	}
	if err := d.checkIndex(index); err != nil {
		return err
	}
	d.images[index] = img
	return nil
}

func (d *Device) SetKeyCallback(fn discovery.KeyCallback) {
	d.mu.Lock()
	d.callback = fn
	d.mu.Unlock()
}

// Image returns the image last set for index.
func (d *Device) Image(index int) (image.Image, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	img, ok := d.images[index]
	return img, ok
}

// Press simulates pressing and releasing the key at index. The callback
// runs on the caller's goroutine.
func (d *Device) Press(index int) error {
	d.mu.Lock()
	open, cb := d.open, d.callback
	err := d.checkIndex(index)
	d.mu.Unlock()

	if err != nil {
		return err
	}
	if !open {
		return ErrClosed
	}
	if cb != nil {
		cb(index, true)
		cb(index, false)
	}
	return nil
}

func (d *Device) checkIndex(index int) error {
	if index < 0 || index >= d.spec.Columns*d.spec.Rows {
		return fmt.Errorf("%w: %d", ErrKeyRange, index)
	}
	return nil
}

// Transport holds the plugged-in virtual decks. It is safe for concurrent
// use.
type Transport struct {
	mu      sync.Mutex
	devices map[string]*Device
}

// NewTransport creates a transport with the given decks plugged in.
func NewTransport(specs ...Spec) *Transport {
	t := &Transport{devices: make(map[string]*Device)}
	for _, s := range specs {
		t.Plug(s)
	}
	return t
}

// Plug attaches a deck, replacing any deck with the same serial. The new
// device has a new session id.
func (t *Transport) Plug(spec Spec) *Device {
	d := newDevice(spec)
	t.mu.Lock()
	t.devices[spec.Serial] = d
	t.mu.Unlock()
	return d
}

// Unplug detaches the deck with serial.
func (t *Transport) Unplug(serial string) {
	t.mu.Lock()
	delete(t.devices, serial)
	t.mu.Unlock()
}

// Device returns the attached deck with serial.
func (t *Transport) Device(serial string) (*Device, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.devices[serial]
	return d, ok
}

// Enumerate lists the attached decks ordered by serial.
func (t *Transport) Enumerate(context.Context) ([]discovery.Device, error) {
	t.mu.Lock()
	serials := make([]string, 0, len(t.devices))
	for s := range t.devices {
		serials = append(serials, s)
	}
	sort.Strings(serials)
	out := make([]discovery.Device, len(serials))
	for i, s := range serials {
		out[i] = t.devices[s]
	}
	t.mu.Unlock()
	return out, nil
}
