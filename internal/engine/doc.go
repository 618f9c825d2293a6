// Package engine runs one resolved strategy per batch item and reports a
// per-item Outcome without ever failing the batch for a single item.
//
// A single-item batch runs inline. Larger batches are spread over a bounded
// pool; each item shells out to its own isolated tool process with its own
// deadline. Outcomes are returned in completion order and carry the item's
// Index so callers can correlate them with their inputs.
package engine
