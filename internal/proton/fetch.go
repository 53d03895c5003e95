package proton

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/openwinecomponents/umu-launcher/internal/logger"
)

// Fetcher downloads a release archive into a staging directory and verifies
// its integrity before anyone else is allowed to touch it.
type Fetcher struct {
	client *http.Client
	// zenity enables helper-mode downloads with a progress popup.
	zenity bool
}

// NewFetcher returns a Fetcher. When zenity is true, the external download
// helper is tried first and the built-in downloader is the fallback.
func NewFetcher(zenity bool) *Fetcher {
	return &Fetcher{
		client: httpClient,
		zenity: zenity,
	}
}

// Fetch downloads the digest file, then the archive, into stagingDir.
// On success the returned path points at a staging archive whose SHA-512
// digest matches the published one. Both URLs must use https; the digest is
// always verified before the archive is accepted, regardless of download
// mode.
func (f *Fetcher) Fetch(ctx context.Context, digestAsset, archiveAsset ReleaseAsset, stagingDir string) (string, error) {
	for _, url := range []string{digestAsset.DownloadURL, archiveAsset.DownloadURL} {
		if !strings.HasPrefix(url, "https:") {
			return "", fmt.Errorf("%w: %s", ErrScheme, url)
		}
	}

	expected, err := f.fetchDigest(ctx, digestAsset, archiveAsset.Name)
	if err != nil {
		return "", err
	}

	staged := filepath.Join(stagingDir, archiveAsset.Name)

	if f.zenity {
		if err = f.fetchWithHelper(ctx, archiveAsset, staged, expected); err == nil {
			return staged, nil
		}

		if interrupted(err) {
			return "", err
		}

		logger.WarnKV(ctx, "Download helper failed, retrying with built-in downloader", "error", err)

		// A partial file poisons the append-mode retry below.
		_ = os.Remove(staged)
	}

	if err = f.fetchBuiltin(ctx, archiveAsset, staged, expected); err != nil {
		return "", err
	}

	return staged, nil
}

// fetchDigest downloads the digest file and extracts the hex digest from
// the line referencing archiveName.
func (f *Fetcher) fetchDigest(ctx context.Context, digestAsset ReleaseAsset, archiveName string) (string, error) {
	logger.Infof(ctx, "Downloading %s...", digestAsset.Name)

	resp, err := f.get(ctx, digestAsset.DownloadURL)
	if err != nil {
		return "", err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasSuffix(line, archiveName) {
			continue
		}

		digest, _, ok := strings.Cut(line, " ")
		if ok && digest != "" {
			return digest, nil
		}
	}

	if err = scanner.Err(); err != nil {
		return "", fmt.Errorf("read digest file: %w", err)
	}

	// Without a reference digest the archive bytes can never be trusted.
	return "", fmt.Errorf("%w: %s has no entry for %s", ErrDigestMismatch, digestAsset.Name, archiveName)
}

// fetchWithHelper delegates the archive download to curl piped into a
// zenity progress popup, then verifies the staged file by streaming it
// through the Verifier.
func (f *Fetcher) fetchWithHelper(ctx context.Context, asset ReleaseAsset, staged, expected string) error {
	msg := fmt.Sprintf("Downloading %s...", strings.TrimSuffix(asset.Name, archiveSuffix))

	opts := []string{
		"-LJO",
		"--silent",
		asset.DownloadURL,
		"--output-dir",
		filepath.Dir(staged),
	}

	if err := runZenity(ctx, "curl", opts, msg); err != nil {
		return err
	}

	file, err := os.Open(staged)
	if err != nil {
		return fmt.Errorf("open helper download: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	if err = VerifyStream(file, expected); err != nil {
		return err
	}

	logger.Infof(ctx, "%s: SHA512 is OK", asset.Name)

	return nil
}

// fetchBuiltin streams the archive over HTTP in fixed-size chunks, writing
// each chunk to the staging file in append mode while feeding it to the
// Verifier and the progress bar.
func (f *Fetcher) fetchBuiltin(ctx context.Context, asset ReleaseAsset, staged, expected string) error {
	logger.Infof(ctx, "Downloading %s...", asset.Name)

	resp, err := f.get(ctx, asset.DownloadURL)
	if err != nil {
		return err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	file, err := os.OpenFile(staged, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create staging archive: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	verifier := NewVerifier(expected)
	bar := progressbar.DefaultBytes(resp.ContentLength, asset.Name)

	defer func() {
		_ = bar.Close()
	}()

	buf := make([]byte, chunkSize)
	w := io.MultiWriter(file, verifier, bar)

	if _, err = io.CopyBuffer(w, struct{ io.Reader }{resp.Body}, buf); err != nil {
		return fmt.Errorf("stream archive: %w", err)
	}

	if err = verifier.Verify(); err != nil {
		return err
	}

	logger.Infof(ctx, "%s: SHA512 is OK", asset.Name)

	return nil
}

// get issues a GET and enforces a 200 status.
func (f *Fetcher) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownload, err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned %s", ErrDownload, url, resp.Status)
	}

	return resp, nil
}
