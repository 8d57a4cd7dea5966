//go:build debug

package gojs

// confinementAlways enables engine confinement checks regardless of options.
const confinementAlways = true
