// Package proton implements the runtime acquisition and update pipeline:
// querying the release source for the latest compatible Proton build,
// deciding whether a locally installed build already satisfies the request,
// and otherwise downloading, integrity-verifying, extracting and atomically
// publishing a new build while superseded builds are retired concurrently.
//
// Acquire is the sole entry point. It tolerates network loss (falling back
// to the newest installed build), digest mismatch and interruption without
// corrupting the on-disk runtime store.
package proton
