package proton

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/openwinecomponents/umu-launcher/internal/logger"
)

// ExtractionMode is decided once at startup from configuration and never
// changes mid-run.
type ExtractionMode int

const (
	// ModeFiltered rejects unsafe archive entries: absolute paths, parent
	// traversal, link targets escaping the destination, special files.
	ModeFiltered ExtractionMode = iota
	// ModeInsecure extracts everything as-is. Explicit opt-in only.
	ModeInsecure
)

var errUnsafeEntry = errors.New("unsafe archive entry")

// Extractor unpacks a verified gzip-compressed tarball into the runtime
// store. Whole-archive only; there is no partial or differential mode.
type Extractor struct {
	// Mode selects the extraction policy.
	Mode ExtractionMode
}

// Extract unpacks archivePath into destDir. Callers must have verified the
// archive's digest first. Read failures surface as ErrExtraction; unsafe
// entries in filtered mode do too.
func (e *Extractor) Extract(ctx context.Context, archivePath, destDir string) error {
	if e.Mode == ModeInsecure {
		logger.Warn(ctx, "Extraction filter is disabled")
		logger.Warn(ctx, "Archive will be extracted insecurely")
	}

	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrExtraction, archivePath, err)
	}

	defer func() {
		_ = file.Close()
	}()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrExtraction, archivePath, err)
	}

	defer func() {
		_ = gz.Close()
	}()

	logger.Infof(ctx, "Extracting %s -> %s...", archivePath, destDir)

	tr := tar.NewReader(gz)

	for {
		if err = ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrInterrupted, err)
		}

		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}

		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrExtraction, archivePath, err)
		}

		if err = e.writeEntry(destDir, hdr, tr); err != nil {
			return err
		}
	}

	return nil
}

// writeEntry materializes a single tar entry under destDir.
func (e *Extractor) writeEntry(destDir string, hdr *tar.Header, r io.Reader) error {
	if e.Mode == ModeFiltered {
		if err := checkEntry(destDir, hdr); err != nil {
			return err
		}
	}

	path := filepath.Join(destDir, hdr.Name)

	switch hdr.Typeflag {
	case tar.TypeDir:
		if err := os.MkdirAll(path, hdr.FileInfo().Mode().Perm()); err != nil {
			return fmt.Errorf("%w: %w", ErrExtraction, err)
		}
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("%w: %w", ErrExtraction, err)
		}

		f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, hdr.FileInfo().Mode().Perm())
		if err != nil {
			return fmt.Errorf("%w: %w", ErrExtraction, err)
		}

		if _, err = io.Copy(f, r); err != nil {
			_ = f.Close()
			return fmt.Errorf("%w: %s: %w", ErrExtraction, hdr.Name, err)
		}

		if err = f.Close(); err != nil {
			return fmt.Errorf("%w: %w", ErrExtraction, err)
		}
	case tar.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("%w: %w", ErrExtraction, err)
		}

		// Recreate rather than update so a rerun over leftovers succeeds.
		_ = os.Remove(path)

		if err := os.Symlink(hdr.Linkname, path); err != nil {
			return fmt.Errorf("%w: %w", ErrExtraction, err)
		}
	case tar.TypeLink:
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("%w: %w", ErrExtraction, err)
		}

		_ = os.Remove(path)

		if err := os.Link(filepath.Join(destDir, hdr.Linkname), path); err != nil {
			return fmt.Errorf("%w: %w", ErrExtraction, err)
		}
	default:
		if e.Mode == ModeFiltered {
			return fmt.Errorf("%w: %w: special file %s", ErrExtraction, errUnsafeEntry, hdr.Name)
		}
		// Insecure mode ignores entry types it cannot materialize.
	}

	return nil
}

// checkEntry enforces the safety filter on one entry.
func checkEntry(destDir string, hdr *tar.Header) error {
	if filepath.IsAbs(hdr.Name) || escapes(destDir, hdr.Name) {
		return fmt.Errorf("%w: %w: %s", ErrExtraction, errUnsafeEntry, hdr.Name)
	}

	switch hdr.Typeflag {
	case tar.TypeSymlink, tar.TypeLink:
		target := hdr.Linkname
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(hdr.Name), hdr.Linkname)
		}

		if filepath.IsAbs(hdr.Linkname) || escapes(destDir, target) {
			return fmt.Errorf("%w: %w: link %s -> %s", ErrExtraction, errUnsafeEntry, hdr.Name, hdr.Linkname)
		}
	case tar.TypeDir, tar.TypeReg:
		// Plain entries need no further checks.
	default:
		return fmt.Errorf("%w: %w: special file %s", ErrExtraction, errUnsafeEntry, hdr.Name)
	}

	return nil
}

// escapes reports whether joining name to destDir leaves destDir.
func escapes(destDir, name string) bool {
	joined := filepath.Join(destDir, name)
	return joined != filepath.Clean(destDir) &&
		!strings.HasPrefix(joined, filepath.Clean(destDir)+string(os.PathSeparator))
}
