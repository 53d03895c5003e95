// Package pool provides a small bounded worker pool with join-all
// semantics: spawn N units of work, wait for every one of them, and
// propagate the first failure.
package pool
