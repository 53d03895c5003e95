package launcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openwinecomponents/umu-launcher/internal/config"
)

// SetupPrefix prepares a WINE prefix directory: the directory itself, a
// pfx symlink pointing back at it, and the tracked_files marker the Steam
// runtime expects.
func SetupPrefix(path string) error {
	if err := os.MkdirAll(path, config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create prefix: %w", err)
	}

	link := filepath.Join(path, "pfx")
	if err := os.Symlink(path, link); err != nil && !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("link prefix: %w", err)
	}

	tracked := filepath.Join(path, "tracked_files")

	f, err := os.OpenFile(tracked, os.O_CREATE|os.O_WRONLY, config.DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("touch tracked_files: %w", err)
	}

	return f.Close()
}
