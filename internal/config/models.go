package config

import (
	"sort"
	"time"
)

const (
	// NumKeys is the number of keys on the panel (fixed 5x3 grid).
	NumKeys = 15

	// DefaultBrightness is the panel brightness applied when unset (0-100).
	DefaultBrightness = 80

	// DefaultReconnectIntervalMS is the delay between reconnect attempts
	// while the panel is unplugged.
	DefaultReconnectIntervalMS = 2000

	// DefaultHomePage is the page shown on startup when unset.
	DefaultHomePage = "home"

	// DefaultPollIntervalMS is the remote state poll interval.
	DefaultPollIntervalMS = 5000

	// DefaultGraceMS is how long an optimistic state value is trusted over
	// a conflicting confirmed observation.
	DefaultGraceMS = 3000
)

// Button style defaults, applied when neither the button nor
// [deckd.defaults] overrides them.
const (
	DefaultBackground = "#1a1a2e"
	DefaultTextColor  = "#e0e0e0"
	DefaultFont       = "regular"
	DefaultFontSize   = 14.0
)

// Action kinds. The set is closed; dispatch switches over it exhaustively.
const (
	ActionHTTP     = "http"
	ActionShell    = "shell"
	ActionNavigate = "navigate"
	ActionBack     = "back"
	ActionHome     = "home"
)

// Config is a fully validated configuration snapshot. A snapshot is
// immutable after Load returns it; reloads replace the whole value, so any
// component may keep reading an old pointer safely until it picks up a new
// one.
type Config struct {
	Deckd Deckd           `toml:"deckd"`
	State State           `toml:"state"`
	Pages map[string]Page `toml:"pages"`

	// Dir is the directory containing the config file. Icon paths are
	// resolved against it at load time.
	Dir string `toml:"-"`
}

// Deckd holds global daemon settings.
type Deckd struct {
	// Brightness is the panel brightness 0-100, applied once per connect.
	Brightness int `toml:"brightness"`

	// ReconnectIntervalMS is the delay between reconnect attempts.
	ReconnectIntervalMS int `toml:"reconnect_interval_ms"`

	// HomePage is the page shown on startup and at the bottom of the
	// navigation stack.
	HomePage string `toml:"home_page"`

	// Defaults is the style applied to buttons that don't override it.
	Defaults Defaults `toml:"defaults"`
}

// Defaults is the base button style.
type Defaults struct {
	Background string  `toml:"background"` // Hex color, e.g. "#1a1a2e"
	TextColor  string  `toml:"text_color"` // Hex color
	Font       string  `toml:"font"`       // "regular" or "bold"
	FontSize   float64 `toml:"font_size"`  // Label size in pixels
}

// State configures the remote state source (Home Assistant).
type State struct {
	// URL is the Home Assistant base URL, e.g. "http://ha.local:8123".
	// When empty and Discover is true, the daemon browses mDNS for it.
	URL string `toml:"url"`

	// Token is the long-lived access token. Usually "${HA_TOKEN}" in the
	// file, expanded from the environment at load time.
	Token string `toml:"token"`

	// Source selects how states are observed: "poll" (REST, default) or
	// "websocket" (event subscription).
	Source string `toml:"source"`

	// Discover enables mDNS discovery of the base URL when URL is empty.
	Discover bool `toml:"discover"`

	PollIntervalMS int `toml:"poll_interval_ms"`
	GraceMS        int `toml:"grace_ms"`
}

// Page is one page of buttons.
type Page struct {
	// Name is the display name, for logs only.
	Name string `toml:"name"`

	// Buttons on this page. Keys not listed render background-only.
	Buttons []Button `toml:"buttons"`
}

// Button is a single key definition.
type Button struct {
	// Key is the key index 0-14, left-to-right, top-to-bottom.
	Key int `toml:"key"`

	// Label is the text rendered on the key face.
	Label string `toml:"label"`

	// Icon is a path to a PNG/JPEG icon, relative to the config directory
	// or absolute. Resolved to an absolute path at load time.
	Icon string `toml:"icon"`

	Background string  `toml:"background"` // Background override (hex)
	TextColor  string  `toml:"text_color"` // Text color override (hex)
	Font       string  `toml:"font"`       // Font override
	FontSize   float64 `toml:"font_size"`  // Font size override

	// OnBackground / OnTextColor style the key while its state entity is
	// on. They fall back to Background / TextColor when empty.
	OnBackground string `toml:"on_background"`
	OnTextColor  string `toml:"on_text_color"`

	// StateEntity is the id of a remote boolean entity reflected on this
	// key (e.g. "switch.printer").
	StateEntity string `toml:"state_entity"`

	// OnPress is the action executed when the key is pressed.
	OnPress *Action `toml:"on_press"`
}

// Action is a closed tagged union of the things a key press can do.
type Action struct {
	// Kind is one of the Action* constants.
	Kind string `toml:"action"`

	// http
	Method  string            `toml:"method"`
	URL     string            `toml:"url"`
	Headers map[string]string `toml:"headers"`
	Body    string            `toml:"body"`

	// shell
	Command string `toml:"command"`

	// navigate
	Page string `toml:"page"`
}

// ReconnectInterval returns the reconnect delay as a duration.
func (d Deckd) ReconnectInterval() time.Duration {
	return time.Duration(d.ReconnectIntervalMS) * time.Millisecond
}

// PollInterval returns the state poll interval as a duration.
func (s State) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMS) * time.Millisecond
}

// Grace returns the optimistic grace window as a duration.
func (s State) Grace() time.Duration {
	return time.Duration(s.GraceMS) * time.Millisecond
}

// HasPage reports whether a page id exists in this snapshot.
func (c *Config) HasPage(id string) bool {
	_, ok := c.Pages[id]
	return ok
}

// Button returns the button at key on the given page, or nil if the page or
// the key is not configured.
func (c *Config) Button(pageID string, key int) *Button {
	page, ok := c.Pages[pageID]
	if !ok {
		return nil
	}
	for i := range page.Buttons {
		if page.Buttons[i].Key == key {
			return &page.Buttons[i]
		}
	}
	return nil
}

// Entities returns the sorted set of state entities referenced anywhere in
// the snapshot.
func (c *Config) Entities() []string {
	seen := make(map[string]struct{})
	for _, page := range c.Pages {
		for _, b := range page.Buttons {
			if b.StateEntity != "" {
				seen[b.StateEntity] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// TogglesEntity reports whether pressing this button is expected to toggle
// its state entity (an HTTP action bound to a stateful button), which is
// what arms the optimistic override.
func (b *Button) TogglesEntity() bool {
	return b.StateEntity != "" && b.OnPress != nil && b.OnPress.Kind == ActionHTTP
}
