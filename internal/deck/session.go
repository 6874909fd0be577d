package deck

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/deckd/internal/event"
	"github.com/muurk/deckd/internal/logging"
)

// Session owns the panel connection lifecycle:
// disconnected -> connecting -> connected, back to disconnected on any
// transport error, with reconnect attempts on a fixed interval.
//
// While connected it polls input reports, diffs them against the previous
// key state and emits exactly one KeyDown/KeyUp per physical transition.
// Brightness is applied once per successful connect, not per render.
type Session struct {
	transport Transport
	emit      func(event.Event)

	// brightness and reconnect read the active config snapshot, so a hot
	// reload takes effect at the next connect.
	brightness func() int
	reconnect  func() time.Duration

	mu  sync.Mutex
	dev Device
}

// NewSession creates a session over the given transport. Events are
// delivered through emit; brightness and reconnect are consulted at each
// connect attempt.
func NewSession(transport Transport, emit func(event.Event), brightness func() int, reconnect func() time.Duration) *Session {
	return &Session{
		transport:  transport,
		emit:       emit,
		brightness: brightness,
		reconnect:  reconnect,
	}
}

// Run drives the connect/read/reconnect loop until the context is
// cancelled.
func (s *Session) Run(ctx context.Context) {
	for ctx.Err() == nil {
		dev, err := s.transport.Open()
		if err != nil {
			if errors.Is(err, ErrNoDevice) {
				logging.Debug("No device found, waiting")
			} else {
				logging.Warn("Device open failed", zap.Error(err))
			}
			if !s.sleep(ctx) {
				return
			}
			continue
		}

		if err := dev.Reset(); err != nil {
			logging.Warn("Device reset failed", zap.Error(err))
		}
		if err := dev.SetBrightness(s.brightness()); err != nil {
			logging.Warn("Failed to set brightness", zap.Error(err))
		}

		s.setDevice(dev)
		// Close the handle when the context ends so a blocked read
		// unwinds during shutdown.
		stop := context.AfterFunc(ctx, func() { _ = dev.Close() })

		logging.LogDeviceEvent("connected",
			zap.String("serial", dev.Serial()),
			zap.Int("keys", dev.Keys()),
		)
		s.emit(event.DeviceConnected{Serial: dev.Serial()})

		err = s.readLoop(dev)

		stop()
		s.setDevice(nil)
		_ = dev.Close()

		if ctx.Err() != nil {
			return
		}
		logging.LogDeviceEvent("disconnected", zap.Error(err))
		s.emit(event.DeviceDisconnected{})

		if !s.sleep(ctx) {
			return
		}
	}
}

// readLoop polls input reports until the transport fails, emitting one
// event per key transition.
func (s *Session) readLoop(dev Device) error {
	prev := make([]bool, dev.Keys())
	for {
		states, err := dev.ReadKeys()
		if err != nil {
			return err
		}
		if states == nil {
			continue
		}
		for key, pressed := range states {
			if pressed == prev[key] {
				continue
			}
			if pressed {
				logging.Debug("Key down", zap.Int("key", key))
				s.emit(event.KeyDown{Key: key})
			} else {
				logging.Debug("Key up", zap.Int("key", key))
				s.emit(event.KeyUp{Key: key})
			}
		}
		copy(prev, states)
	}
}

// SetImage writes a face to a key on the connected panel. Returns
// ErrNotConnected while the panel is absent; the coordinator logs and
// carries on.
func (s *Session) SetImage(key int, img image.Image) error {
	s.mu.Lock()
	dev := s.dev
	s.mu.Unlock()
	if dev == nil {
		return ErrNotConnected
	}
	return dev.SetImage(key, img)
}

// Connected reports whether a panel is currently open, for observability.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dev != nil
}

func (s *Session) setDevice(dev Device) {
	s.mu.Lock()
	s.dev = dev
	s.mu.Unlock()
}

func (s *Session) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(s.reconnect()):
		return true
	}
}
