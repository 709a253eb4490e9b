package discovery

import (
	"context"
	"errors"

	"github.com/nerrad567/streamdeckx/internal/deck"
)

// KeyCallback receives key events from a device. position is the 0-based
// key index; pressed is false on release.
type KeyCallback func(position int, pressed bool)

// Device is one attached deck as reported by a Transport.
type Device interface {
	deck.Handle

	// SessionID identifies this attachment. It changes whenever the
	// device is replugged or the transport restarts.
	SessionID() string

	// SerialNumber queries the durable hardware serial.
	SerialNumber() (string, error)

	// DeckType is the product name, e.g. "Stream Deck XL".
	DeckType() string

	// SetKeyCallback installs the handler for key events. Events are only
	// delivered while the device is open.
	SetKeyCallback(fn KeyCallback)
}

// Gridded is implemented by devices whose grid is not fixed by their
// type, such as virtual decks.
type Gridded interface {
	Grid() (columns, rows int)
}

// Named is implemented by devices that carry a configured name. The name
// is used when the deck is first created.
type Named interface {
	Name() string
}

// Transport enumerates attached devices.
type Transport interface {
	Enumerate(ctx context.Context) ([]Device, error)
}

// MultiTransport enumerates several transports as one. A failing
// transport does not hide the devices of the others.
type MultiTransport []Transport

// Enumerate returns the devices of every transport, together with the
// joined errors of those that failed.
func (m MultiTransport) Enumerate(ctx context.Context) ([]Device, error) {
	var (
		devices []Device
		errs    []error
	)
	for _, t := range m {
		found, err := t.Enumerate(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		devices = append(devices, found...)
	}
	return devices, errors.Join(errs...)
}
