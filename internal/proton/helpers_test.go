package proton

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// tarEntry describes one entry for buildTarGz.
type tarEntry struct {
	name     string
	typeflag byte
	linkname string
	body     string
	mode     int64
}

// buildTarGz produces a gzip-compressed tarball from the given entries.
func buildTarGz(t *testing.T, entries []tarEntry) []byte {
	t.Helper()

	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, entry := range entries {
		mode := entry.mode
		if mode == 0 {
			mode = 0o755
		}

		hdr := &tar.Header{
			Name:     entry.name,
			Typeflag: entry.typeflag,
			Linkname: entry.linkname,
			Mode:     mode,
			Size:     int64(len(entry.body)),
		}
		require.NoError(t, tw.WriteHeader(hdr))

		if entry.typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(entry.body))
			require.NoError(t, err)
		}
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	return buf.Bytes()
}

// buildArchive produces a minimal runtime build tarball: a top directory
// named buildName holding a proton entry point and a version file.
func buildArchive(t *testing.T, buildName string) []byte {
	t.Helper()

	return buildTarGz(t, []tarEntry{
		{name: buildName + "/", typeflag: tar.TypeDir},
		{name: buildName + "/proton", typeflag: tar.TypeReg, body: "#!/bin/sh\n"},
		{name: buildName + "/version", typeflag: tar.TypeReg, body: buildName + "\n", mode: 0o644},
		{name: buildName + "/files/", typeflag: tar.TypeDir},
		{name: buildName + "/files/bin/", typeflag: tar.TypeDir},
		{name: buildName + "/files/bin/wine", typeflag: tar.TypeReg, body: "ELF\n"},
		{name: buildName + "/files/bin/wine64", typeflag: tar.TypeSymlink, linkname: "wine"},
	})
}

func sha512Hex(payload []byte) string {
	sum := sha512.Sum512(payload)
	return hex.EncodeToString(sum[:])
}

// releaseServer is an in-process release source plus asset host.
type releaseServer struct {
	srv *httptest.Server

	archiveName string
	archive     []byte
	sumBody     string

	// releaseHits and archiveHits count endpoint usage for idempotence checks.
	releaseHits atomic.Int32
	archiveHits atomic.Int32
}

// newReleaseServer serves a single release whose archive is payload and
// whose digest file references it with sumDigest.
func newReleaseServer(t *testing.T, archiveName string, payload []byte, sumDigest string) *releaseServer {
	t.Helper()

	rs := &releaseServer{
		archiveName: archiveName,
		archive:     payload,
		sumBody:     sumDigest + "  " + archiveName + "\n",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/", func(w http.ResponseWriter, r *http.Request) {
		rs.releaseHits.Add(1)

		releases := []map[string]any{{
			"assets": []map[string]string{
				{"name": archiveName + ".sha512sum", "browser_download_url": rs.srv.URL + "/sum"},
				{"name": archiveName, "browser_download_url": rs.srv.URL + "/archive"},
			},
		}}
		require.NoError(t, json.NewEncoder(w).Encode(releases))
	})
	mux.HandleFunc("/sum", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(rs.sumBody))
	})
	mux.HandleFunc("/archive", func(w http.ResponseWriter, r *http.Request) {
		rs.archiveHits.Add(1)
		_, _ = w.Write(rs.archive)
	})

	rs.srv = httptest.NewTLSServer(mux)
	t.Cleanup(rs.srv.Close)

	// The pipeline talks through the shared client; trust the test TLS cert.
	swapHTTPClient(t, rs.srv.Client())

	return rs
}

// swapHTTPClient replaces the package HTTP client for the duration of a test.
// Tests using it must not run in parallel.
func swapHTTPClient(t *testing.T, c *http.Client) {
	t.Helper()

	prev := httpClient
	httpClient = c
	t.Cleanup(func() { httpClient = prev })
}
