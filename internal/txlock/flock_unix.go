//go:build unix

package txlock

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// ErrBusy indicates a non-blocking flock could not be acquired because
// another process holds a conflicting lock.
var ErrBusy = errors.New("txlock: file range busy")

// FlockPageFile acquires a non-blocking advisory lock over the whole data
// file backing a table, standing in for the per-page-range OS lock spec
// §4.4 calls for ("an OS file lock region for the page range"); this
// engine locks the file as a whole rather than byte-range locking
// individual pages, which is sufficient because the in-process
// txlock.Registry already serializes writers per table.
func FlockPageFile(f *os.File, exclusive bool) error {
	how := unix.LOCK_SH | unix.LOCK_NB
	if exclusive {
		how = unix.LOCK_EX | unix.LOCK_NB
	}
	if err := unix.Flock(int(f.Fd()), how); err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) {
			return ErrBusy
		}
		return err
	}
	return nil
}

// FlockUnlock releases a lock acquired by FlockPageFile.
func FlockUnlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
