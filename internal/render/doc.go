// Package render composes 72x72 key faces: background fill, fitted icon,
// centered label. Rendering is deterministic for identical specs and does no
// device I/O; panel orientation and wire encoding are the transport's
// concern.
package render
