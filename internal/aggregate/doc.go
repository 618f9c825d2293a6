// Package aggregate turns engine outcomes into the response a caller
// receives: either the single transformed artifact or a zip archive of every
// successful output, plus the aggregate counters exposed as response headers.
package aggregate
