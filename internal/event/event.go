package event

import "github.com/muurk/deckd/internal/config"

// Event is the single message type flowing through the daemon's event
// channel. The set of implementations is closed: the coordinator switches
// over all of them exhaustively and new variants must be handled there.
type Event interface {
	isEvent()
}

// KeyDown reports a physical key press (key index 0-14).
type KeyDown struct {
	Key int
}

// KeyUp reports a physical key release (key index 0-14).
type KeyUp struct {
	Key int
}

// DeviceConnected reports that the panel was found and opened. The panel's
// display contents are unknown at this point.
type DeviceConnected struct {
	Serial string
}

// DeviceDisconnected reports that the panel connection was lost.
type DeviceDisconnected struct{}

// ConfigReloaded carries a freshly validated configuration snapshot.
type ConfigReloaded struct {
	Config *config.Config
}

// EntityState reports an observed remote entity state ("on" or not).
type EntityState struct {
	EntityID string
	On       bool
}

// Shutdown asks the coordinator to terminate its loop.
type Shutdown struct{}

func (KeyDown) isEvent()            {}
func (KeyUp) isEvent()              {}
func (DeviceConnected) isEvent()    {}
func (DeviceDisconnected) isEvent() {}
func (ConfigReloaded) isEvent()     {}
func (EntityState) isEvent()        {}
func (Shutdown) isEvent()           {}
