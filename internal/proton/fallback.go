package proton

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/openwinecomponents/umu-launcher/internal/logger"
)

// FallbackLatest scans the runtime store for any installed build of the
// vendor and selects the most recent one. Invoked when the release source
// could not establish a build, e.g. without network access.
//
// Build names embed version tokens whose lexicographic order approximates
// recency, so the maximal name wins. This is a documented simplification,
// not a semantic version parse.
func FallbackLatest(ctx context.Context, storeRoot string, vendor Vendor) (Selection, error) {
	entries, err := os.ReadDir(storeRoot)
	if err != nil {
		return Selection{}, fmt.Errorf("scan runtime store: %w", err)
	}

	var latest string

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), vendor.Name) {
			continue
		}

		if entry.Name() > latest {
			latest = entry.Name()
		}
	}

	if latest == "" {
		return Selection{}, fmt.Errorf("%w: no %s build in %s", ErrNoBuildAvailable, vendor.Name, storeRoot)
	}

	logger.Infof(ctx, "%s found in: %s", latest, storeRoot)
	logger.Infof(ctx, "Using %s", latest)

	return Selection{Path: filepath.Join(storeRoot, latest)}, nil
}
