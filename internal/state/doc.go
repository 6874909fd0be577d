// Package state tracks remote entity state and reconciles it with the
// optimistic feedback shown on key press.
//
// The Cache holds one entry per entity: the last confirmed observation plus
// an optional time-boxed optimistic override. A press flips the display
// immediately; the remote system becomes ground truth again once the grace
// window (default 3s) expires without confirmation.
//
// Observations come from one of two sources feeding identical events:
//
//   - Poller: GET /api/states/<entity> on a fixed interval (default 5s)
//   - Source: a state_changed subscription over the Home Assistant
//     WebSocket API, primed with one REST sweep per (re)connect
//
// Discover can locate the Home Assistant endpoint over mDNS when the config
// does not name one.
package state
