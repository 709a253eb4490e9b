// Package streamdeck adapts github.com/muesli/streamdeck USB decks to the
// discovery transport.
package streamdeck

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/muesli/streamdeck"

	"github.com/nerrad567/streamdeckx/internal/deck"
	"github.com/nerrad567/streamdeckx/internal/discovery"
)

// ErrKeyRange is returned for a key index the device does not have.
var ErrKeyRange = errors.New("streamdeck: key index out of range")

// hidDevice is the subset of *streamdeck.Device the adapter drives.
type hidDevice interface {
	Open() error
	Close() error
	Reset() error
	SetImage(index uint8, img image.Image) error
	ReadKeys() (chan streamdeck.Key, error)
}

// Device is one USB deck.
type Device struct {
	hid     hidDevice
	session string
	serial  string
	keys    int
	pixels  int
	logger  discovery.Logger

	mu       sync.Mutex
	callback discovery.KeyCallback
	reading  bool
}

func newDevice(d *streamdeck.Device, logger discovery.Logger) *Device {
	return &Device{
		hid:     d,
		session: d.ID,
		serial:  d.Serial,
		keys:    int(d.Keys),
		pixels:  int(d.Pixels),
		logger:  logger,
	}
}

// SessionID is the USB device path, which changes on replug.
func (d *Device) SessionID() string { return d.session }

func (d *Device) SerialNumber() (string, error) {
	if d.serial == "" {
		return "", fmt.Errorf("streamdeck: device %s reported no serial", d.session)
	}
	return d.serial, nil
}

// DeckType names the product by its key count.
func (d *Device) DeckType() string {
	switch d.keys {
	case 6:
		return deck.KindMini.DisplayName()
	case 15:
		return deck.KindOriginal.DisplayName()
	case 32:
		return deck.KindXL.DisplayName()
	}
	return fmt.Sprintf("Stream Deck (%d keys)", d.keys)
}

func (d *Device) KeyImageSize() int { return d.pixels }

// Open claims the device and starts the key reader if it is not running.
func (d *Device) Open() error {
	if err := d.hid.Open(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reading {
		return nil
	}
	events, err := d.hid.ReadKeys()
	if err != nil {
		return fmt.Errorf("reading keys: %w", err)
	}
	d.reading = true
	go d.readKeys(events)
	return nil
}

// readKeys delivers events until the channel closes, which happens when
// the device is closed or unplugged.
func (d *Device) readKeys(events <-chan streamdeck.Key) {
	for k := range events {
		d.mu.Lock()
		cb := d.callback
		d.mu.Unlock()
		if cb != nil {
			cb(int(k.Index), k.Pressed)
		}
	}

	d.mu.Lock()
	d.reading = false
	d.mu.Unlock()
	d.logger.Debug("key reader stopped", "session", d.session)
}

func (d *Device) Close() error { return d.hid.Close() }
func (d *Device) Reset() error { return d.hid.Reset() }

func (d *Device) SetKeyImage(index int, img image.Image) error {
	if index < 0 || index >= d.keys {
		return fmt.Errorf("%w: %d", ErrKeyRange, index)
	}
	return d.hid.SetImage(uint8(index), img)
}

func (d *Device) SetKeyCallback(fn discovery.KeyCallback) {
	d.mu.Lock()
	d.callback = fn
	d.mu.Unlock()
}

// Transport enumerates USB decks. Devices keep their adapter, and with it
// their key callback, for as long as their USB path stays present.
type Transport struct {
	list   func() ([]streamdeck.Device, error)
	logger discovery.Logger

	mu      sync.Mutex
	devices map[string]*Device
}

// NewTransport creates a transport over the system's HID devices.
func NewTransport(logger discovery.Logger) *Transport {
	return &Transport{list: streamdeck.Devices, logger: logger, devices: make(map[string]*Device)}
}

func (t *Transport) Enumerate(ctx context.Context) ([]discovery.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	found, err := t.list()
	if err != nil {
		return nil, fmt.Errorf("enumerating stream decks: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	present := make(map[string]*Device, len(found))
	out := make([]discovery.Device, 0, len(found))
	for i := range found {
		id := found[i].ID
		dev, ok := t.devices[id]
		if !ok {
			dev = newDevice(&found[i], t.logger)
		}
		present[id] = dev
		out = append(out, dev)
	}
	t.devices = present
	return out, nil
}
