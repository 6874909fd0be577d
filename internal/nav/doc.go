// Package nav implements the page navigation stack: push on navigate, pop
// on back, truncate on home. It is a pure state machine; rendering after a
// transition is the coordinator's job.
package nav
