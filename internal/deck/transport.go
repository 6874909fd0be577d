package deck

import (
	"errors"
	"image"
)

var (
	// ErrNoDevice indicates no panel of a known signature is attached.
	ErrNoDevice = errors.New("no stream deck found")

	// ErrNotConnected indicates a write was attempted while disconnected.
	ErrNotConnected = errors.New("device not connected")

	// ErrInvalidKey indicates a key index outside the panel grid.
	ErrInvalidKey = errors.New("invalid key index")
)

// Transport locates and opens a panel of the expected vendor/product
// signature.
type Transport interface {
	Open() (Device, error)
}

// Device is an open panel connection. Implementations need not be safe for
// concurrent use beyond one reader plus one writer; Session enforces that
// split.
type Device interface {
	// Serial returns the device serial number, for logs.
	Serial() string

	// Keys returns the number of keys on the panel.
	Keys() int

	// ReadKeys blocks until an input report arrives and returns the full
	// key state (true = pressed), or nil for reports that carry no key
	// data. Returns an error when the transport fails.
	ReadKeys() ([]bool, error)

	// SetImage draws a 72x72 face onto a key.
	SetImage(key int, img image.Image) error

	// SetBrightness sets the backlight 0-100.
	SetBrightness(percent int) error

	// Reset clears the panel to its boot state.
	Reset() error

	Close() error
}
