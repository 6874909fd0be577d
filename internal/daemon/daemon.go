package daemon

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/deckd/internal/action"
	"github.com/muurk/deckd/internal/config"
	"github.com/muurk/deckd/internal/deck"
	"github.com/muurk/deckd/internal/event"
	"github.com/muurk/deckd/internal/logging"
	"github.com/muurk/deckd/internal/nav"
	"github.com/muurk/deckd/internal/render"
	"github.com/muurk/deckd/internal/state"
)

const (
	// eventBuffer absorbs producer bursts without reordering anything;
	// the coordinator is the sole consumer.
	eventBuffer = 64

	// shutdownGrace bounds how long shutdown waits for producers and
	// in-flight actions.
	shutdownGrace = 5 * time.Second
)

// panel is the slice of deck.Session the render path needs.
type panel interface {
	SetImage(key int, img image.Image) error
	Connected() bool
}

// Daemon is the event coordinator. It is the sole consumer of the event
// channel and the sole mutator of the navigation stack and state cache;
// producers (device session, config watcher, state source) only emit.
type Daemon struct {
	configPath string
	cfg        atomic.Pointer[config.Config]
	events     chan event.Event

	nav      *nav.Stack
	cache    *state.Cache
	exec     *action.Executor
	renderer *render.Renderer
	session  *deck.Session
	panel    panel
}

// New wires a daemon around an initial snapshot and a panel transport.
func New(cfg *config.Config, configPath string, transport deck.Transport) (*Daemon, error) {
	renderer, err := render.New()
	if err != nil {
		return nil, err
	}

	d := &Daemon{
		configPath: configPath,
		events:     make(chan event.Event, eventBuffer),
		nav:        nav.New(cfg.Deckd.HomePage),
		cache:      state.NewCache(cfg.State.Grace()),
		exec:       action.NewExecutor(),
		renderer:   renderer,
	}
	d.cfg.Store(cfg)
	d.session = deck.NewSession(transport, d.emit,
		func() int { return d.cfg.Load().Deckd.Brightness },
		func() time.Duration { return d.cfg.Load().Deckd.ReconnectInterval() },
	)
	d.panel = d.session
	return d, nil
}

// emit delivers an event into the coordinator's channel, preserving
// per-producer emission order.
func (d *Daemon) emit(ev event.Event) {
	d.events <- ev
}

// Run starts all producers and consumes events until the context is
// cancelled or a Shutdown event arrives, then drains with a bounded grace
// period.
func (d *Daemon) Run(ctx context.Context) error {
	cfg := d.cfg.Load()
	logging.Info("deckd daemon running",
		zap.String("home_page", cfg.Deckd.HomePage),
		zap.Int("pages", len(cfg.Pages)),
	)

	fallbackURL := ""
	if cfg.State.URL == "" && cfg.State.Discover && len(cfg.Entities()) > 0 {
		url, err := state.Discover(ctx, state.DefaultDiscoverTimeout)
		if err != nil {
			logging.Warn("Home Assistant discovery failed, state tracking disabled until reload", zap.Error(err))
		} else {
			fallbackURL = url
		}
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.session.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		err := config.Watch(ctx, d.configPath, func(c *config.Config) {
			d.emit(event.ConfigReloaded{Config: c})
		})
		if err != nil {
			logging.Warn("Config watcher stopped", zap.Error(err))
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		snapshot := func() *config.Config { return d.cfg.Load() }
		if cfg.State.Source == "websocket" {
			src := state.NewSource(snapshot, d.emit)
			src.FallbackURL = fallbackURL
			src.Run(ctx)
		} else {
			p := state.NewPoller(snapshot, d.emit)
			p.FallbackURL = fallbackURL
			p.Run(ctx)
		}
	}()

	d.loop(ctx)

	logging.Info("Daemon shutting down")
	if !d.exec.Wait(shutdownGrace) {
		logging.Warn("Abandoned in-flight actions after grace period")
	}
	waitTimeout(&wg, shutdownGrace)
	logging.Info("Daemon stopped")
	return nil
}

func (d *Daemon) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.events:
			if !d.handle(ev) {
				return
			}
		}
	}
}

// handle processes one event. Events are handled strictly in arrival
// order; nothing here blocks on network or device latency beyond key-image
// writes. Returns false when the loop should terminate.
func (d *Daemon) handle(ev event.Event) bool {
	now := time.Now()

	switch ev := ev.(type) {
	case event.KeyDown:
		d.handleKeyDown(ev.Key, now)

	case event.KeyUp:
		// Reserved for future debounce/long-press handling. Deliberately
		// renders nothing.

	case event.ConfigReloaded:
		d.cfg.Store(ev.Config)
		d.cache.SetGrace(ev.Config.State.Grace())
		if d.nav.Prune(ev.Config) {
			logging.Info("Current page removed by reload",
				zap.String("page", d.nav.Current()),
			)
		}
		d.renderPage()

	case event.EntityState:
		if d.cache.Observe(ev.EntityID, ev.On, now) {
			d.renderEntity(ev.EntityID, now)
		}

	case event.DeviceConnected:
		// Panel contents are unknown after a (re)connect.
		d.renderPage()

	case event.DeviceDisconnected:
		logging.Info("Waiting for panel to reappear")

	case event.Shutdown:
		return false
	}
	return true
}

func (d *Daemon) handleKeyDown(key int, now time.Time) {
	snap := d.cfg.Load()
	btn := snap.Button(d.nav.Current(), key)
	if btn == nil || btn.OnPress == nil {
		return
	}
	act := btn.OnPress

	// Navigation mutates coordinator-owned state and runs inline; anything
	// else goes to the executor.
	if action.IsSync(act.Kind) {
		d.navigate(snap, key, act)
		return
	}

	if !d.exec.Dispatch(key, act) {
		logging.Debug("Action already in flight, press ignored", zap.Int("key", key))
		return
	}
	if btn.TogglesEntity() {
		// Show the flipped value before the network call completes.
		d.cache.Press(btn.StateEntity, now)
		d.renderEntity(btn.StateEntity, now)
	}
}

func (d *Daemon) navigate(snap *config.Config, key int, act *config.Action) {
	switch act.Kind {
	case config.ActionNavigate:
		if err := d.nav.Push(snap, act.Page); err != nil {
			logging.Warn("Navigation rejected",
				zap.Int("key", key),
				zap.Error(err),
			)
			return
		}
		logging.Info("Navigate", zap.String("page", d.nav.Current()))
		d.renderPage()

	case config.ActionBack:
		if d.nav.Pop() {
			logging.Info("Navigate back", zap.String("page", d.nav.Current()))
			d.renderPage()
		}

	case config.ActionHome:
		if d.nav.Home() {
			logging.Info("Navigate home")
			d.renderPage()
		}
	}
}

// renderPage re-renders all keys of the current page, including unbound
// keys (background only). A failure on one key never stops the others.
func (d *Daemon) renderPage() {
	snap := d.cfg.Load()
	pageID := d.nav.Current()
	now := time.Now()
	for key := 0; key < config.NumKeys; key++ {
		d.renderKey(snap, pageID, key, now)
	}
}

// renderEntity re-renders every button on the current page bound to the
// entity.
func (d *Daemon) renderEntity(entityID string, now time.Time) {
	snap := d.cfg.Load()
	pageID := d.nav.Current()
	page, ok := snap.Pages[pageID]
	if !ok {
		return
	}
	for i := range page.Buttons {
		if page.Buttons[i].StateEntity == entityID {
			d.renderKey(snap, pageID, page.Buttons[i].Key, now)
		}
	}
}

func (d *Daemon) renderKey(snap *config.Config, pageID string, key int, now time.Time) {
	img, err := d.renderer.Render(d.resolveSpec(snap, pageID, key, now))
	if err != nil {
		logging.Warn("Render failed",
			zap.String("page", pageID),
			zap.Int("key", key),
			zap.Error(err),
		)
		return
	}
	if err := d.panel.SetImage(key, img); err != nil {
		// Not connected is the normal case while unplugged; the page is
		// re-rendered wholesale on reconnect.
		if !errors.Is(err, deck.ErrNotConnected) {
			logging.Warn("Device write failed",
				zap.Int("key", key),
				zap.Error(err),
			)
		}
	}
}

// resolveSpec folds button config, style defaults and the entity's visible
// state into the renderer input. Unbound keys get a background-only face.
func (d *Daemon) resolveSpec(snap *config.Config, pageID string, key int, now time.Time) render.Spec {
	defaults := snap.Deckd.Defaults
	spec := render.Spec{
		Background: defaults.Background,
		TextColor:  defaults.TextColor,
		Font:       defaults.Font,
		FontSize:   defaults.FontSize,
	}

	btn := snap.Button(pageID, key)
	if btn == nil {
		return spec
	}

	spec.Label = btn.Label
	spec.Icon = btn.Icon
	if btn.Background != "" {
		spec.Background = btn.Background
	}
	if btn.TextColor != "" {
		spec.TextColor = btn.TextColor
	}
	if btn.Font != "" {
		spec.Font = btn.Font
	}
	if btn.FontSize > 0 {
		spec.FontSize = btn.FontSize
	}

	if btn.StateEntity != "" && d.cache.Visible(btn.StateEntity, now) {
		if btn.OnBackground != "" {
			spec.Background = btn.OnBackground
		}
		if btn.OnTextColor != "" {
			spec.TextColor = btn.OnTextColor
		}
	}
	return spec
}

func waitTimeout(wg *sync.WaitGroup, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		logging.Warn("Tasks did not stop within grace period")
	}
}
