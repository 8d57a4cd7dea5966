//go:build !debug

package gojs

const confinementAlways = false
