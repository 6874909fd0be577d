// Package event defines the closed set of messages exchanged between the
// daemon's producers (device session, config watcher, state sources) and the
// single coordinator consuming them.
//
// All producers emit into one ordered channel owned by internal/daemon; the
// channel is the only shared coordination point, so the order of observable
// state transitions is total. Events from one producer arrive in emission
// order; no ordering is guaranteed across producers.
package event
