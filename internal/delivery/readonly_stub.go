//go:build !linux

package delivery

import (
	"errors"
	"os"
)

// reopenReadOnly requires procfs fd self-references, which only Linux
// provides. Large-artifact telemetry submission is unavailable elsewhere.
func reopenReadOnly(_ *os.File) (*os.File, error) {
	return nil, errors.New("read-only handle reopen requires linux")
}
