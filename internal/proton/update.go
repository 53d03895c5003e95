package proton

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/openwinecomponents/umu-launcher/internal/logger"
	"github.com/openwinecomponents/umu-launcher/internal/pool"
)

// Options steers one runtime acquisition attempt.
type Options struct {
	// StoreRoot is the runtime store directory, created if absent.
	StoreRoot string
	// VendorSelector picks the release family; empty means the default.
	VendorSelector string
	// Zenity enables helper-mode downloads.
	Zenity bool
	// ExtractionMode selects the archive extraction policy.
	ExtractionMode ExtractionMode
	// APIBase overrides the release index host. Empty means production.
	APIBase string
}

// Selection is the caller-visible result: the path to the chosen runtime
// build. An empty path means no build could be established.
type Selection struct {
	Path string
}

// errNoUpdate downgrades recoverable fetch failures so the caller proceeds
// to the local fallback instead of aborting.
var errNoUpdate = errors.New("no update")

// Acquire is the sole entry point of the pipeline. It queries the release
// source, installs or reuses the latest build of the selected vendor, and
// returns the resulting selection. Network loss is never surfaced raw: it
// short-circuits to the local fallback. Only truly unrecoverable
// conditions (store root not creatable, unsafe archive) return an error
// other than ErrNoBuildAvailable.
func Acquire(ctx context.Context, opts *Options, workers *pool.Pool) (Selection, error) {
	vendor := SelectVendor(opts.VendorSelector)

	if err := os.MkdirAll(opts.StoreRoot, 0o755); err != nil {
		return Selection{}, fmt.Errorf("create runtime store: %w", err)
	}

	staging, err := os.MkdirTemp("", "umu-staging-")
	if err != nil {
		return Selection{}, fmt.Errorf("create staging directory: %w", err)
	}

	defer func() {
		_ = os.RemoveAll(staging)
	}()

	updater := &Updater{
		storeRoot: opts.StoreRoot,
		staging:   staging,
		vendor:    vendor,
		fetcher:   NewFetcher(opts.Zenity),
		extractor: &Extractor{Mode: opts.ExtractionMode},
		workers:   workers,
	}

	digest, archive, err := NewReleaseClient(opts.APIBase).LatestAssets(ctx, vendor)
	if err == nil {
		var sel Selection

		sel, err = updater.Latest(ctx, digest, archive)
		if err == nil {
			return sel, nil
		}

		if !errors.Is(err, errNoUpdate) {
			return Selection{}, err
		}
	} else if !errors.Is(err, ErrReleaseQuery) {
		return Selection{}, err
	} else {
		logger.DebugKV(ctx, "Release source unavailable", "error", err)
	}

	// When offline or the attempt was downgraded, any existing build of
	// the vendor beats having none.
	return FallbackLatest(ctx, opts.StoreRoot, vendor)
}

// Updater drives the state machine of a single update attempt.
type Updater struct {
	storeRoot string
	staging   string
	vendor    Vendor
	fetcher   *Fetcher
	extractor *Extractor
	workers   *pool.Pool
}

// Latest installs the selected release unless the store already holds it.
// Digest mismatch, interruption and HTTP failure are downgraded to
// errNoUpdate after cleanup; every other failure is fatal for the attempt.
func (u *Updater) Latest(ctx context.Context, digest, archive ReleaseAsset) (Selection, error) {
	buildName := strings.TrimSuffix(archive.Name, archiveSuffix)
	buildDir := filepath.Join(u.storeRoot, buildName)

	// Cache hit: the build is already installed, so no network work at all.
	if info, err := os.Stat(buildDir); err == nil && info.IsDir() {
		logger.Infof(ctx, "%s is up to date", u.vendor.Name)

		if err = publishAlias(u.storeRoot, buildName); err != nil {
			return Selection{}, err
		}

		return Selection{Path: buildDir}, nil
	}

	staged, err := u.fetcher.Fetch(ctx, digest, archive, u.staging)
	if err != nil {
		return Selection{}, u.downgrade(ctx, err, archive.Name, buildDir)
	}

	if err = u.finalize(ctx, staged, buildName); err != nil {
		if interrupted(err) {
			u.cleanup(ctx, staged, buildDir)
			return Selection{}, errNoUpdate
		}

		return Selection{}, err
	}

	// The alias flips only after extraction reported completion, so a
	// reader resolving it never sees a half-extracted build.
	if err = publishAlias(u.storeRoot, buildName); err != nil {
		return Selection{}, err
	}

	logger.Debugf(ctx, "Removing: %s", staged)

	_ = os.Remove(staged)

	logger.Infof(ctx, "Using %s (%s)", u.vendor.Name, buildName)

	return Selection{Path: buildDir}, nil
}

// finalize extracts the verified archive into the store. For prunable
// vendors, retirement of superseded builds runs concurrently with the
// extraction; the two touch disjoint subtrees.
func (u *Updater) finalize(ctx context.Context, staged, buildName string) error {
	extract := func(ctx context.Context) error {
		return u.extractor.Extract(ctx, staged, u.storeRoot)
	}

	if !u.vendor.Prunable() {
		return extract(ctx)
	}

	stale, err := u.staleBuilds(buildName)
	if err != nil {
		return err
	}

	retire := func(ctx context.Context) error {
		return u.retire(ctx, stale)
	}

	return u.workers.JoinAll(ctx, extract, retire)
}

// staleBuilds lists store directories matching a retirement prefix,
// excluding the build being installed.
func (u *Updater) staleBuilds(buildName string) ([]string, error) {
	entries, err := os.ReadDir(u.storeRoot)
	if err != nil {
		return nil, fmt.Errorf("scan runtime store: %w", err)
	}

	var stale []string

	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == buildName {
			continue
		}

		if hasAnyPrefix(entry.Name(), u.vendor.RetirePrefixes) {
			stale = append(stale, entry.Name())
		}
	}

	return stale, nil
}

// retire removes every stale build that still exists. A candidate that
// disappeared concurrently is not an error.
func (u *Updater) retire(ctx context.Context, stale []string) error {
	for _, name := range stale {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrInterrupted, err)
		}

		dir := filepath.Join(u.storeRoot, name)
		if _, err := os.Stat(dir); err != nil {
			continue
		}

		logger.Debugf(ctx, "Removing: %s", dir)

		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("retire %s: %w", name, err)
		}
	}

	return nil
}

// downgrade maps recoverable fetch failures to errNoUpdate, running the
// matching cleanup. Everything else propagates as a hard failure.
func (u *Updater) downgrade(ctx context.Context, err error, archiveName, buildDir string) error {
	staged := filepath.Join(u.staging, archiveName)

	switch {
	case interrupted(err):
		u.cleanup(ctx, staged, buildDir)
		return errNoUpdate
	case errors.Is(err, ErrDigestMismatch):
		// The bytes are suspect, never leave them lying around.
		logger.ErrorKV(ctx, "Digest mismatched", "archive", archiveName, "error", err)

		_ = os.Remove(staged)

		return errNoUpdate
	case errors.Is(err, ErrDownload):
		// Extraction had not started, the store needs no cleanup.
		logger.ErrorKV(ctx, "Download failed", "archive", archiveName, "error", err)
		return errNoUpdate
	default:
		return err
	}
}

// cleanup removes files possibly left in an incomplete state after an
// interruption: the staging archive and a partially extracted build.
func (u *Updater) cleanup(ctx context.Context, staged, buildDir string) {
	logger.Info(ctx, "Interrupted, cleaning...")

	if _, err := os.Stat(staged); err == nil {
		logger.Infof(ctx, "Purging %s...", staged)

		_ = os.Remove(staged)
	}

	if info, err := os.Stat(buildDir); err == nil && info.IsDir() {
		logger.Infof(ctx, "Purging %s...", buildDir)

		_ = os.RemoveAll(buildDir)
	}
}

// publishAlias points the stable alias at the named build. The link is
// recreated, never updated in place, so readers cannot observe a
// half-written alias.
func publishAlias(storeRoot, buildName string) error {
	alias := filepath.Join(storeRoot, AliasName)

	if err := os.Remove(alias); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("unlink alias: %w", err)
	}

	if err := os.Symlink(buildName, alias); err != nil {
		return fmt.Errorf("publish alias: %w", err)
	}

	return nil
}
