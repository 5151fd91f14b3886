// Package download implements the download pipeline. An Orchestrator runs a
// single request through a fetch engine, resolving the format query, retrying
// once with a fallback format and normalizing the result into an Outcome.
// Service queues requests and runs each on its own Orchestrator, bounded by a
// max-parallel limit, and propagates task updates to the caller.
package download
