// Package daemon contains the event coordinator: the single consumer that
// serializes all producer events (key presses, config reloads, state
// observations, device lifecycle) and reacts to them.
//
// The coordinator is the only writer of the navigation stack and the state
// cache, so neither needs a lock. The active config snapshot is the one
// value read concurrently from multiple goroutines; it lives behind an
// atomic pointer and is replaced wholesale on reload, never mutated.
//
// A failure on any single key, action or poll is logged and absorbed; only
// cancellation or an explicit Shutdown event terminates the loop.
package daemon
