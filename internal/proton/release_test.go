package proton

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// serveReleases spins up a release index returning the given payload.
func serveReleases(t *testing.T, status int, releases any) *ReleaseClient {
	t.Helper()

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		require.Equal(t, "2022-11-28", r.Header.Get("X-GitHub-Api-Version"))

		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(releases)
	}))
	t.Cleanup(srv.Close)

	return &ReleaseClient{apiBase: srv.URL, client: srv.Client()}
}

func asset(name, url string) map[string]string {
	return map[string]string{"name": name, "browser_download_url": url}
}

// TestLatestAssets_ReturnsDigestThenArchive verifies the qualifying pair
// comes back in (digest, archive) order regardless of index order.
func TestLatestAssets_ReturnsDigestThenArchive(t *testing.T) {
	t.Parallel()

	client := serveReleases(t, http.StatusOK, []map[string]any{{
		"assets": []map[string]string{
			asset("UMU-Proton-9.0.tar.gz", "https://example.com/proton.tar.gz"),
			asset("UMU-Proton-9.0.sha512sum", "https://example.com/proton.sha512sum"),
		},
	}})

	digest, archive, err := client.LatestAssets(context.Background(), SelectVendor(""))
	require.NoError(t, err)
	require.Equal(t, "UMU-Proton-9.0.sha512sum", digest.Name)
	require.Equal(t, "UMU-Proton-9.0.tar.gz", archive.Name)
}

// TestLatestAssets_IncompleteRelease expects ErrReleaseQuery when only one
// qualifying asset exists.
func TestLatestAssets_IncompleteRelease(t *testing.T) {
	t.Parallel()

	client := serveReleases(t, http.StatusOK, []map[string]any{{
		"assets": []map[string]string{
			asset("UMU-Proton-9.0.tar.gz", "https://example.com/proton.tar.gz"),
		},
	}})

	_, _, err := client.LatestAssets(context.Background(), SelectVendor(""))
	require.ErrorIs(t, err, ErrReleaseQuery)
}

// TestLatestAssets_IgnoresForeignArchives ensures archives outside the
// vendor's recognized prefixes never qualify.
func TestLatestAssets_IgnoresForeignArchives(t *testing.T) {
	t.Parallel()

	client := serveReleases(t, http.StatusOK, []map[string]any{{
		"assets": []map[string]string{
			asset("SomeOther-Tool-1.0.tar.gz", "https://example.com/other.tar.gz"),
			asset("UMU-Proton-9.0.sha512sum", "https://example.com/proton.sha512sum"),
		},
	}})

	_, _, err := client.LatestAssets(context.Background(), SelectVendor(""))
	require.ErrorIs(t, err, ErrReleaseQuery)
}

// TestLatestAssets_OnlyMostRecentReleaseCounts verifies a qualifying pair
// in an older release does not rescue an incomplete current one.
func TestLatestAssets_OnlyMostRecentReleaseCounts(t *testing.T) {
	t.Parallel()

	client := serveReleases(t, http.StatusOK, []map[string]any{
		{
			"assets": []map[string]string{
				asset("UMU-Proton-9.0.tar.gz", "https://example.com/proton.tar.gz"),
			},
		},
		{
			"assets": []map[string]string{
				asset("UMU-Proton-8.0.sha512sum", "https://example.com/old.sha512sum"),
				asset("UMU-Proton-8.0.tar.gz", "https://example.com/old.tar.gz"),
			},
		},
	})

	_, _, err := client.LatestAssets(context.Background(), SelectVendor(""))
	require.ErrorIs(t, err, ErrReleaseQuery)
}

// TestLatestAssets_SkipsAssetlessReleases ensures releases without assets
// are passed over, matching the release source's draft entries.
func TestLatestAssets_SkipsAssetlessReleases(t *testing.T) {
	t.Parallel()

	client := serveReleases(t, http.StatusOK, []map[string]any{
		{"assets": []map[string]string{}},
		{
			"assets": []map[string]string{
				asset("GE-Proton9-4.sha512sum", "https://example.com/ge.sha512sum"),
				asset("GE-Proton9-4.tar.gz", "https://example.com/ge.tar.gz"),
			},
		},
	})

	digest, archive, err := client.LatestAssets(context.Background(), SelectVendor(VendorGE))
	require.NoError(t, err)
	require.Equal(t, "GE-Proton9-4.sha512sum", digest.Name)
	require.Equal(t, "GE-Proton9-4.tar.gz", archive.Name)
}

// TestLatestAssets_HTTPFailure maps non-200 statuses to ErrReleaseQuery.
func TestLatestAssets_HTTPFailure(t *testing.T) {
	t.Parallel()

	client := serveReleases(t, http.StatusForbidden, []map[string]any{})

	_, _, err := client.LatestAssets(context.Background(), SelectVendor(""))
	require.ErrorIs(t, err, ErrReleaseQuery)
}

// TestLatestAssets_Unreachable maps transport failures to ErrReleaseQuery
// so the caller can fall back to the local store.
func TestLatestAssets_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewTLSServer(http.NotFoundHandler())
	client := &ReleaseClient{apiBase: srv.URL, client: srv.Client()}
	srv.Close()

	_, _, err := client.LatestAssets(context.Background(), SelectVendor(""))
	require.ErrorIs(t, err, ErrReleaseQuery)
}
