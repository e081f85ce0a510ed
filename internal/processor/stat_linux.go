//go:build linux

package processor

import (
	"os"
	"syscall"
	"time"
)

const timeLayout = time.RFC3339

// statTimes reads inode change and access times from the underlying stat
// struct. Linux exposes no true creation time, so the inode change time
// stands in for it.
func statTimes(info os.FileInfo) (created, accessed string) {
	mod := info.ModTime().UTC().Format(timeLayout)
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return mod, mod
	}
	created = time.Unix(st.Ctim.Sec, st.Ctim.Nsec).UTC().Format(timeLayout)
	accessed = time.Unix(st.Atim.Sec, st.Atim.Nsec).UTC().Format(timeLayout)
	return created, accessed
}
