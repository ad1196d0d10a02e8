// Package registry maps agent and asset type names, as declared in graph
// files, to the Go handlers that implement them.
//
// Each pluggable module under modules/ registers its agent runners (a typed
// input struct, a typed deps struct and a handler function) and its asset
// lifecycles (create and destroy functions plus the live Go type that gets
// injected into dependent agents). The registry is validated once at startup
// so that a mismatch between a declared input and the handler's struct tags
// fails before any agent runs.
package registry
