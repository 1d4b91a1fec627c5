package listener

import (
	"errors"
	"fmt"
	"net"
	"os"
)

// removeStaleSocket deletes a leftover unix socket file from a previous
// run so net.Listen("unix", ...) doesn't fail with "address already in
// use". A path that isn't a socket is left alone.
func removeStaleSocket(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("cannot stat unix socket path: %w", err)
	}

	if info.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("%s exists and is not a unix socket", path)
	}

	if _, err := net.Dial("unix", path); err == nil {
		return fmt.Errorf("%s is already in use by a running listener", path)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("cannot remove stale unix socket: %w", err)
	}

	return nil
}
