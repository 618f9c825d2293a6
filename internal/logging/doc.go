// Package logging configures converto's slog-based loggers.
//
// It provides a console handler for people at a terminal, a JSON handler for
// log shippers, and helpers that stamp request, user, category, and batch
// item fields from context. Warnings and
// errors go through WarnWithContext/ErrorWithContext so every entry carries an
// event_type and an error_hint.
package logging
