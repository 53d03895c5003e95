package proton

import (
	"net"
	"net/http"
	"time"
)

// httpClient is the shared client for release queries and downloads.
// No per-request timeout is enforced; a genuinely hung connection is a
// known limitation and cancellation arrives via the request context.
//
//nolint:gochecknoglobals // One tuned transport for the whole pipeline.
var httpClient = &http.Client{
	Transport: &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		// Archives are already gzip-compressed.
		DisableCompression: true,
	},
}
