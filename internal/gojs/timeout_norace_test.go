//go:build !race

package gojs

import "time"

var defaultTimeout = 20 * time.Second
