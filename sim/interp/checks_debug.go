//go:build debug

package interp

// checks enables precondition validation on every primitive call.
const checks = true
