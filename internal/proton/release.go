package proton

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/openwinecomponents/umu-launcher/internal/logger"
)

// DefaultAPIBase is the production release index host.
const DefaultAPIBase = "https://api.github.com"

// ReleaseAsset is one downloadable artifact attached to a release.
type ReleaseAsset struct {
	// Name is the artifact filename.
	Name string `json:"name"`
	// DownloadURL is where the artifact bytes live.
	DownloadURL string `json:"browser_download_url"`
}

// release is the slice of the release index response the client consumes.
// The format is owned by the remote release source.
type release struct {
	Assets []ReleaseAsset `json:"assets"`
}

// ReleaseClient queries a release index for the current release of a vendor
// and selects the archive plus its digest file.
type ReleaseClient struct {
	apiBase string
	client  *http.Client
}

// NewReleaseClient returns a client against apiBase,
// or against DefaultAPIBase when apiBase is empty.
func NewReleaseClient(apiBase string) *ReleaseClient {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}

	return &ReleaseClient{
		apiBase: strings.TrimRight(apiBase, "/"),
		client:  httpClient,
	}
}

// LatestAssets issues one query for the vendor's releases and returns the
// digest-file asset and the archive asset of the most recent release, in
// that order. It fails with ErrReleaseQuery when the index is unreachable
// or when the release does not carry both qualifying assets.
func (c *ReleaseClient) LatestAssets(ctx context.Context, vendor Vendor) (digest, archive ReleaseAsset, err error) {
	url := c.apiBase + vendor.ReleasesPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return digest, archive, fmt.Errorf("build release request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	logger.DebugKV(ctx, "Querying release index", "url", url)

	resp, err := c.client.Do(req)
	if err != nil {
		return digest, archive, fmt.Errorf("%w: %w", ErrReleaseQuery, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return digest, archive, fmt.Errorf("%w: %s returned %s", ErrReleaseQuery, url, resp.Status)
	}

	var releases []release
	if err = json.NewDecoder(resp.Body).Decode(&releases); err != nil {
		return digest, archive, fmt.Errorf("%w: decode release index: %w", ErrReleaseQuery, err)
	}

	digest, archive, found := pickAssets(releases, vendor)
	if !found {
		return digest, archive, fmt.Errorf("%w: incomplete release information for %s", ErrReleaseQuery, vendor.Name)
	}

	return digest, archive, nil
}

// pickAssets inspects the most recent release carrying assets and selects
// the (digest, archive) pair. Both must be present together.
func pickAssets(releases []release, vendor Vendor) (digest, archive ReleaseAsset, found bool) {
	for _, rel := range releases {
		if len(rel.Assets) == 0 {
			continue
		}

		var haveDigest, haveArchive bool

		for _, asset := range rel.Assets {
			if asset.Name == "" || asset.DownloadURL == "" {
				continue
			}

			switch {
			case strings.HasSuffix(asset.Name, digestSuffix):
				digest, haveDigest = asset, true
			case strings.HasSuffix(asset.Name, archiveSuffix) && hasAnyPrefix(asset.Name, vendor.AssetPrefixes):
				archive, haveArchive = asset, true
			}

			if haveDigest && haveArchive {
				return digest, archive, true
			}
		}

		// Only the most recent release is considered.
		break
	}

	return digest, archive, false
}

func hasAnyPrefix(name string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}

	return false
}
