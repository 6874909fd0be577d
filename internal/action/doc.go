// Package action executes the side effect bound to a key press. HTTP and
// shell actions run fire-and-forget in the background with bounded
// timeouts and at most one in-flight action per key; navigation kinds are
// classified synchronous and handled by the coordinator directly.
package action
