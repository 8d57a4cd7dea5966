//go:build race

package gojs

import "time"

// defaultTimeout is larger for race-enabled builds, which slow scheduling.
var defaultTimeout = 60 * time.Second
