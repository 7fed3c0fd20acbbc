//go:build unix

package report

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockFile fails immediately if another process already owns the report.
func lockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}

func unlockFile(f *os.File) {
	unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
