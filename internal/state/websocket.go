package state

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/deckd/internal/config"
	"github.com/muurk/deckd/internal/event"
	"github.com/muurk/deckd/internal/logging"
)

// wsReadTimeout bounds how long a read may block; Home Assistant pings
// periodically, so a quiet connection longer than this is dead.
const wsReadTimeout = 90 * time.Second

// Source subscribes to Home Assistant state_changed events over the
// WebSocket API, as a push alternative to REST polling. Observations arrive
// as the same EntityState events the poller emits, so the coordinator does
// not care which source is configured.
type Source struct {
	Snapshot    func() *config.Config
	Emit        func(event.Event)
	FallbackURL string
}

// NewSource creates a WebSocket state source.
func NewSource(snapshot func() *config.Config, emit func(event.Event)) *Source {
	return &Source{Snapshot: snapshot, Emit: emit}
}

// Run connects, subscribes and forwards state changes until the context is
// cancelled, reconnecting on failure with the configured poll interval as
// backoff. On every (re)connect it primes current states through one REST
// sweep, since the subscription only reports future changes.
func (s *Source) Run(ctx context.Context) {
	prime := NewPoller(s.Snapshot, s.Emit)
	prime.FallbackURL = s.FallbackURL

	for {
		snap := s.Snapshot()
		baseURL := snap.State.URL
		if baseURL == "" {
			baseURL = s.FallbackURL
		}

		if baseURL != "" {
			prime.sweep(ctx, snap)
			if err := s.subscribe(ctx, baseURL, snap); err != nil && ctx.Err() == nil {
				logging.Warn("WebSocket state source disconnected", zap.Error(err))
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(snap.State.PollInterval()):
		}
	}
}

// wsMessage covers every Home Assistant WebSocket API frame we care about.
type wsMessage struct {
	ID      int      `json:"id,omitempty"`
	Type    string   `json:"type"`
	Success *bool    `json:"success,omitempty"`
	Event   *wsEvent `json:"event,omitempty"`

	// auth frames
	AccessToken string `json:"access_token,omitempty"`
	EventType   string `json:"event_type,omitempty"`
}

type wsEvent struct {
	EventType string `json:"event_type"`
	Data      struct {
		EntityID string `json:"entity_id"`
		NewState *struct {
			State string `json:"state"`
		} `json:"new_state"`
	} `json:"data"`
}

func (s *Source) subscribe(ctx context.Context, baseURL string, snap *config.Config) error {
	wsURL := websocketURL(baseURL)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", wsURL, err)
	}
	defer conn.Close()

	// Close the connection when the context ends so the read loop unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if err := authenticate(conn, snap.State.Token); err != nil {
		return err
	}
	if err := conn.WriteJSON(wsMessage{ID: 1, Type: "subscribe_events", EventType: "state_changed"}); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	logging.Info("Subscribed to state changes", zap.String("url", wsURL))

	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("read failed: %w", err)
		}

		switch msg.Type {
		case "result":
			if msg.Success != nil && !*msg.Success {
				return fmt.Errorf("subscription rejected (id %d)", msg.ID)
			}
		case "event":
			s.handleEvent(msg.Event, s.Snapshot())
		case "ping":
			_ = conn.WriteJSON(wsMessage{ID: msg.ID, Type: "pong"})
		default:
			// pong, and frame types newer HA versions may add.
		}
	}
}

func (s *Source) handleEvent(ev *wsEvent, snap *config.Config) {
	if ev == nil || ev.EventType != "state_changed" || ev.Data.NewState == nil {
		return
	}
	// Only entities the current snapshot binds to a button are interesting.
	tracked := false
	for _, id := range snap.Entities() {
		if id == ev.Data.EntityID {
			tracked = true
			break
		}
	}
	if !tracked {
		return
	}
	s.Emit(event.EntityState{
		EntityID: ev.Data.EntityID,
		On:       ev.Data.NewState.State == "on",
	})
}

func authenticate(conn *websocket.Conn, token string) error {
	_ = conn.SetReadDeadline(time.Now().Add(requestTimeout))
	var hello wsMessage
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("failed to read auth_required: %w", err)
	}
	if hello.Type != "auth_required" {
		return fmt.Errorf("unexpected greeting %q", hello.Type)
	}
	if err := conn.WriteJSON(wsMessage{Type: "auth", AccessToken: token}); err != nil {
		return fmt.Errorf("failed to send auth: %w", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(requestTimeout))
	var result wsMessage
	if err := conn.ReadJSON(&result); err != nil {
		return fmt.Errorf("failed to read auth result: %w", err)
	}
	if result.Type != "auth_ok" {
		return fmt.Errorf("authentication rejected: %s", result.Type)
	}
	return nil
}

// websocketURL derives the WebSocket endpoint from the HTTP base URL.
func websocketURL(baseURL string) string {
	u := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/api/websocket"
}
