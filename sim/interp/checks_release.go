//go:build !debug

package interp

const checks = false
