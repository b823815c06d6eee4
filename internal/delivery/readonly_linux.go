//go:build linux

package delivery

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// reopenReadOnly opens a fresh read-only description of f's file through the
// handle's procfs self-reference. This works even after the file has been
// unlinked, and yields a handle positioned at offset zero.
func reopenReadOnly(f *os.File) (*os.File, error) {
	fdPath := fmt.Sprintf("/proc/self/fd/%d", f.Fd())
	fd, err := unix.Open(fdPath, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("reopen %s read-only: %w", fdPath, err)
	}
	return os.NewFile(uintptr(fd), f.Name()), nil
}
