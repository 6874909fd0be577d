package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/BurntSushi/toml"
)

// envVarPattern matches ${VAR} and $VAR references in the raw config file.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// Load reads, expands, parses and validates the configuration file at path.
//
// Environment variable references (${VAR} or $VAR) in the raw file are
// expanded exactly once, here; references to unset variables are kept
// verbatim so a missing token is visible in logs rather than silently blank.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := toml.Unmarshal([]byte(ExpandEnv(string(raw))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	cfg.Dir = filepath.Dir(abs)

	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	resolveIconPaths(cfg)

	return cfg, nil
}

// ExpandEnv expands ${VAR} and $VAR references using the process
// environment. References to unset variables are left as-is.
func ExpandEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		name := groups[1]
		if name == "" {
			name = groups[2]
		}
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Deckd.Brightness == 0 {
		cfg.Deckd.Brightness = DefaultBrightness
	}
	if cfg.Deckd.ReconnectIntervalMS == 0 {
		cfg.Deckd.ReconnectIntervalMS = DefaultReconnectIntervalMS
	}
	if cfg.Deckd.HomePage == "" {
		cfg.Deckd.HomePage = DefaultHomePage
	}
	if cfg.Deckd.Defaults.Background == "" {
		cfg.Deckd.Defaults.Background = DefaultBackground
	}
	if cfg.Deckd.Defaults.TextColor == "" {
		cfg.Deckd.Defaults.TextColor = DefaultTextColor
	}
	if cfg.Deckd.Defaults.Font == "" {
		cfg.Deckd.Defaults.Font = DefaultFont
	}
	if cfg.Deckd.Defaults.FontSize == 0 {
		cfg.Deckd.Defaults.FontSize = DefaultFontSize
	}
	if cfg.State.Source == "" {
		cfg.State.Source = "poll"
	}
	if cfg.State.PollIntervalMS == 0 {
		cfg.State.PollIntervalMS = DefaultPollIntervalMS
	}
	if cfg.State.GraceMS == 0 {
		cfg.State.GraceMS = DefaultGraceMS
	}
	if cfg.Pages == nil {
		cfg.Pages = make(map[string]Page)
	}
	for id, page := range cfg.Pages {
		for i := range page.Buttons {
			b := &page.Buttons[i]
			if b.OnPress != nil && b.OnPress.Kind == ActionHTTP && b.OnPress.Method == "" {
				b.OnPress.Method = "GET"
			}
		}
		cfg.Pages[id] = page
	}
}

func validate(cfg *Config) error {
	if cfg.Deckd.Brightness < 0 || cfg.Deckd.Brightness > 100 {
		return fmt.Errorf("brightness must be 0-100, got %d", cfg.Deckd.Brightness)
	}
	if !cfg.HasPage(cfg.Deckd.HomePage) {
		return fmt.Errorf("home page %q is not defined", cfg.Deckd.HomePage)
	}
	if s := cfg.State.Source; s != "poll" && s != "websocket" {
		return fmt.Errorf("state source must be \"poll\" or \"websocket\", got %q", s)
	}

	for pageID, page := range cfg.Pages {
		seen := make(map[int]bool)
		for i := range page.Buttons {
			b := &page.Buttons[i]
			if b.Key < 0 || b.Key >= NumKeys {
				return fmt.Errorf("page %q: button key %d out of range (0-%d)", pageID, b.Key, NumKeys-1)
			}
			if seen[b.Key] {
				return fmt.Errorf("page %q: duplicate button key %d", pageID, b.Key)
			}
			seen[b.Key] = true
			if b.OnPress != nil {
				if err := validateAction(cfg, b.OnPress); err != nil {
					return fmt.Errorf("page %q key %d: %w", pageID, b.Key, err)
				}
			}
		}
	}
	return nil
}

func validateAction(cfg *Config, a *Action) error {
	switch a.Kind {
	case ActionHTTP:
		if a.URL == "" {
			return fmt.Errorf("http action requires url")
		}
	case ActionShell:
		if a.Command == "" {
			return fmt.Errorf("shell action requires command")
		}
	case ActionNavigate:
		if a.Page == "" {
			return fmt.Errorf("navigate action requires page")
		}
		if !cfg.HasPage(a.Page) {
			return fmt.Errorf("navigate action targets unknown page %q", a.Page)
		}
	case ActionBack, ActionHome:
		// No parameters.
	default:
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}
	return nil
}

// resolveIconPaths turns relative icon paths into absolute paths anchored at
// the config directory, so the renderer never depends on the process CWD.
func resolveIconPaths(cfg *Config) {
	for id, page := range cfg.Pages {
		for i := range page.Buttons {
			b := &page.Buttons[i]
			if b.Icon != "" && !filepath.IsAbs(b.Icon) {
				b.Icon = filepath.Join(cfg.Dir, b.Icon)
			}
		}
		cfg.Pages[id] = page
	}
}
