// Package config loads, validates and hot-reloads the deckd configuration
// file.
//
// The on-disk format is TOML. A load produces an immutable *Config snapshot:
// the daemon replaces the active snapshot wholesale on reload and never
// mutates one in place, so concurrent readers (render path, action path)
// can keep a pointer to an old snapshot safely.
//
// # File layout
//
//	[deckd]
//	brightness = 80
//	home_page = "home"
//
//	[deckd.defaults]
//	background = "#1a1a2e"
//	text_color = "#e0e0e0"
//
//	[state]
//	url = "http://homeassistant.local:8123"
//	token = "${HA_TOKEN}"
//
//	[pages.home]
//	name = "Home"
//
//	[[pages.home.buttons]]
//	key = 0
//	label = "Printer"
//	state_entity = "switch.printer"
//	on_press = { action = "http", method = "POST", url = "${HA_URL}/api/services/switch/toggle", body = '{"entity_id": "switch.printer"}' }
//
// Environment references (${VAR} or $VAR) are expanded once at load time.
//
// # Hot reload
//
// Watch observes the file (via its parent directory, surviving atomic
// replacement) and delivers each valid new snapshot through a callback. An
// invalid file is rejected with a warning and the previous snapshot stays
// active; a reload never leaves the daemon without a valid config.
package config
