package state

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/deckd/internal/config"
	"github.com/muurk/deckd/internal/event"
	"github.com/muurk/deckd/internal/logging"
)

const (
	// requestTimeout bounds a single state fetch so one slow entity cannot
	// stall a whole sweep.
	requestTimeout = 3 * time.Second
)

// Poller periodically fetches the state of every entity referenced by the
// active snapshot from the Home Assistant REST API and emits an
// EntityState event per observation.
type Poller struct {
	// Snapshot returns the active configuration; called every cycle so a
	// hot reload changes the entity set and interval without a restart.
	Snapshot func() *config.Config

	// Emit delivers an event into the coordinator's channel.
	Emit func(event.Event)

	// FallbackURL is used when the snapshot has no [state] url configured
	// (filled by mDNS discovery at startup, may be empty).
	FallbackURL string

	client *http.Client
}

// NewPoller creates a poller over the given snapshot accessor and sink.
func NewPoller(snapshot func() *config.Config, emit func(event.Event)) *Poller {
	return &Poller{
		Snapshot: snapshot,
		Emit:     emit,
		client:   &http.Client{Timeout: requestTimeout},
	}
}

// Run polls until the context is cancelled. The first sweep happens
// immediately so buttons reflect reality right after startup.
func (p *Poller) Run(ctx context.Context) {
	for {
		snap := p.Snapshot()
		p.sweep(ctx, snap)

		select {
		case <-ctx.Done():
			return
		case <-time.After(snap.State.PollInterval()):
		}
	}
}

func (p *Poller) sweep(ctx context.Context, snap *config.Config) {
	baseURL := snap.State.URL
	if baseURL == "" {
		baseURL = p.FallbackURL
	}
	entities := snap.Entities()
	if baseURL == "" || len(entities) == 0 {
		return
	}

	for _, id := range entities {
		if ctx.Err() != nil {
			return
		}
		on, err := fetchEntityState(ctx, p.client, baseURL, snap.State.Token, id)
		if err != nil {
			logging.Warn("State poll failed",
				zap.String("entity", id),
				zap.Error(err),
			)
			continue
		}
		p.Emit(event.EntityState{EntityID: id, On: on})
	}
}

// fetchEntityState fetches one entity from GET /api/states/<id>. Any state
// other than "on" (off, unavailable, unknown) maps to false.
func fetchEntityState(ctx context.Context, client *http.Client, baseURL, token, entityID string) (bool, error) {
	url := fmt.Sprintf("%s/api/states/%s", strings.TrimRight(baseURL, "/"), entityID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var body struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	return body.State == "on", nil
}
