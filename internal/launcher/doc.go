// Package launcher glues configuration, prefix setup and runtime
// acquisition into the final Proton invocation. The resolved runtime path
// is threaded through explicit values rather than the process environment.
package launcher
