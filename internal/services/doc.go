// Package services defines shared utilities consumed by the transformation
// pipeline and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp request ids, acting user ids, categories, and
//     batch item indexes for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent caller-facing classes (client vs server).
//
// Use these helpers when wiring new pipeline components so operational
// behaviour (error handling, observability) stays uniform across packages.
package services
