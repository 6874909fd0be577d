package daemon

import (
	"image"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/muurk/deckd/internal/config"
	"github.com/muurk/deckd/internal/deck"
	"github.com/muurk/deckd/internal/event"
)

type fakePanel struct {
	mu   sync.Mutex
	keys []int
}

func (p *fakePanel) SetImage(key int, _ image.Image) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return nil
}

func (p *fakePanel) Connected() bool { return true }

func (p *fakePanel) renders() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int, len(p.keys))
	copy(out, p.keys)
	return out
}

func (p *fakePanel) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = nil
}

func (p *fakePanel) contains(key int) bool {
	for _, k := range p.renders() {
		if k == key {
			return true
		}
	}
	return false
}

// noTransport satisfies deck.Transport for daemons whose session loop is
// never started in tests.
type noTransport struct{}

func (noTransport) Open() (deck.Device, error) { return nil, deck.ErrNoDevice }

func testConfig(toggleURL string) *config.Config {
	return &config.Config{
		Deckd: config.Deckd{
			Brightness:          80,
			ReconnectIntervalMS: 2000,
			HomePage:            "home",
			Defaults: config.Defaults{
				Background: "#1a1a2e",
				TextColor:  "#e0e0e0",
				Font:       "regular",
				FontSize:   14,
			},
		},
		State: config.State{Source: "poll", PollIntervalMS: 5000, GraceMS: 3000},
		Pages: map[string]config.Page{
			"home": {
				Name: "Home",
				Buttons: []config.Button{
					{
						Key:     0,
						Label:   "Settings",
						OnPress: &config.Action{Kind: config.ActionNavigate, Page: "settings"},
					},
					{
						Key:          1,
						Label:        "Printer",
						StateEntity:  "switch.printer",
						OnBackground: "#27ae60",
						OnPress:      &config.Action{Kind: config.ActionHTTP, Method: "POST", URL: toggleURL},
					},
				},
			},
			"settings": {
				Name: "Settings",
				Buttons: []config.Button{
					{
						Key:     0,
						Label:   "Back",
						OnPress: &config.Action{Kind: config.ActionBack},
					},
					{
						Key:     14,
						Label:   "Home",
						OnPress: &config.Action{Kind: config.ActionHome},
					},
				},
			},
		},
	}
}

func newTestDaemon(t *testing.T, cfg *config.Config) (*Daemon, *fakePanel) {
	t.Helper()
	d, err := New(cfg, "/etc/deckd/config.toml", noTransport{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	p := &fakePanel{}
	d.panel = p
	return d, p
}

func TestNavigateBackRoundTrip(t *testing.T) {
	d, p := newTestDaemon(t, testConfig("http://unused.invalid"))

	// Key 0 on home navigates to settings: full-page re-render.
	d.handle(event.KeyDown{Key: 0})
	if got := d.nav.Current(); got != "settings" {
		t.Fatalf("current page = %q, want settings", got)
	}
	if got := len(p.renders()); got != config.NumKeys {
		t.Errorf("renders after navigate = %d, want %d", got, config.NumKeys)
	}

	// Key 0 on settings goes back to home.
	p.reset()
	d.handle(event.KeyDown{Key: 0})
	if got := d.nav.Current(); got != "home" {
		t.Fatalf("current page = %q, want home", got)
	}
	if got := len(p.renders()); got != config.NumKeys {
		t.Errorf("renders after back = %d, want %d", got, config.NumKeys)
	}
}

func TestHomeActionCollapsesStack(t *testing.T) {
	d, p := newTestDaemon(t, testConfig("http://unused.invalid"))

	d.handle(event.KeyDown{Key: 0}) // -> settings
	p.reset()

	d.handle(event.KeyDown{Key: 14}) // home action
	if got := d.nav.Current(); got != "home" {
		t.Fatalf("current page = %q, want home", got)
	}
	if got := len(p.renders()); got != config.NumKeys {
		t.Errorf("renders after home = %d, want %d", got, config.NumKeys)
	}
}

func TestKeyUpRendersNothing(t *testing.T) {
	d, p := newTestDaemon(t, testConfig("http://unused.invalid"))
	d.handle(event.KeyUp{Key: 0})
	d.handle(event.KeyUp{Key: 1})
	if got := len(p.renders()); got != 0 {
		t.Errorf("renders after KeyUp = %d, want 0", got)
	}
}

func TestPressOnUnboundKeyIgnored(t *testing.T) {
	d, p := newTestDaemon(t, testConfig("http://unused.invalid"))
	d.handle(event.KeyDown{Key: 14})
	if got := len(p.renders()); got != 0 {
		t.Errorf("renders after unbound press = %d, want 0", got)
	}
}

func TestReloadRemovingCurrentPageCollapsesToHome(t *testing.T) {
	d, p := newTestDaemon(t, testConfig("http://unused.invalid"))
	d.handle(event.KeyDown{Key: 0}) // -> settings
	p.reset()

	next := testConfig("http://unused.invalid")
	delete(next.Pages, "settings")
	d.handle(event.ConfigReloaded{Config: next})

	if got := d.nav.Current(); got != "home" {
		t.Fatalf("current page after reload = %q, want home", got)
	}
	// Exactly one full re-render of the new current page.
	if got := len(p.renders()); got != config.NumKeys {
		t.Errorf("renders after reload = %d, want %d", got, config.NumKeys)
	}
}

func TestOptimisticPressRendersFlippedValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	d, p := newTestDaemon(t, testConfig(srv.URL))

	d.handle(event.KeyDown{Key: 1})
	if !p.contains(1) {
		t.Error("optimistic press did not re-render the pressed key")
	}
	if !d.cache.Visible("switch.printer", time.Now()) {
		t.Error("visible value after press = false, want optimistic true")
	}
	d.exec.Wait(2 * time.Second)
}

func TestSecondPressWhileInFlightNotDispatched(t *testing.T) {
	var mu sync.Mutex
	requests := 0
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		mu.Unlock()
		<-release
	}))
	defer srv.Close()

	d, _ := newTestDaemon(t, testConfig(srv.URL))

	d.handle(event.KeyDown{Key: 1})
	d.handle(event.KeyDown{Key: 1}) // in flight: ignored, not queued
	close(release)
	d.exec.Wait(2 * time.Second)

	mu.Lock()
	defer mu.Unlock()
	if requests != 1 {
		t.Errorf("requests = %d, want 1", requests)
	}
}

func TestEntityObservationRendersBoundButtons(t *testing.T) {
	d, p := newTestDaemon(t, testConfig("http://unused.invalid"))

	d.handle(event.EntityState{EntityID: "switch.printer", On: true})
	if got := p.renders(); len(got) != 1 || got[0] != 1 {
		t.Errorf("renders after observation = %v, want [1]", got)
	}

	// Re-observing the same value changes nothing visible.
	p.reset()
	d.handle(event.EntityState{EntityID: "switch.printer", On: true})
	if got := len(p.renders()); got != 0 {
		t.Errorf("renders after repeat observation = %d, want 0", got)
	}

	// Observations for entities not on the current page render nothing.
	p.reset()
	d.handle(event.EntityState{EntityID: "light.hallway", On: true})
	if got := len(p.renders()); got != 0 {
		t.Errorf("renders for unbound entity = %d, want 0", got)
	}
}

func TestDeviceConnectedRendersFullPage(t *testing.T) {
	d, p := newTestDaemon(t, testConfig("http://unused.invalid"))
	d.handle(event.DeviceConnected{Serial: "TEST001"})
	if got := len(p.renders()); got != config.NumKeys {
		t.Errorf("renders after connect = %d, want %d", got, config.NumKeys)
	}
}

func TestStaleNavigationTargetRejected(t *testing.T) {
	cfg := testConfig("http://unused.invalid")
	// Simulate a stale reference: the button survived but its target page
	// is gone from the snapshot.
	delete(cfg.Pages, "settings")
	cfg.Pages["home"] = config.Page{
		Name:    "Home",
		Buttons: cfg.Pages["home"].Buttons[:1],
	}
	d, p := newTestDaemon(t, cfg)

	d.handle(event.KeyDown{Key: 0})
	if got := d.nav.Current(); got != "home" {
		t.Errorf("current page = %q, want home (push rejected)", got)
	}
	if got := len(p.renders()); got != 0 {
		t.Errorf("renders after rejected navigation = %d, want 0", got)
	}
}

func TestShutdownEventStopsLoop(t *testing.T) {
	d, _ := newTestDaemon(t, testConfig("http://unused.invalid"))
	if d.handle(event.Shutdown{}) {
		t.Error("handle(Shutdown) = true, want false")
	}
}
