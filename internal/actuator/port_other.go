//go:build !linux

package actuator

import (
	"io"
	"os"
)

// OpenSerial opens name for writing. Line settings are left to the OS.
func OpenSerial(name string, _ int) (io.WriteCloser, error) {
	return os.OpenFile(name, os.O_WRONLY, 0)
}
