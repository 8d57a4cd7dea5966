package gojs

import (
	"path"
	"path/filepath"
)

// modulePath maps a script path to the absolute key the module registry
// resolves and memoises it under. Relative paths are rooted at "/".
func modulePath(p string) string {
	return path.Clean("/" + filepath.ToSlash(p))
}
