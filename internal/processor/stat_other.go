//go:build !linux

package processor

import (
	"os"
	"time"
)

const timeLayout = time.RFC3339

// statTimes approximates creation and access times with the modification
// time on platforms where the stat struct layout is not portable.
func statTimes(info os.FileInfo) (created, accessed string) {
	mod := info.ModTime().UTC().Format(timeLayout)
	return mod, mod
}
