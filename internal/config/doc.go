// Package config loads, normalizes, and validates Converto configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), overlays a .env file when one is present, reads TOML files, and
// honours environment fallbacks such as CONVERTO_API_TOKEN. The Config type
// centralizes every knob the daemon and CLI need: scratch/data/log
// directories, external tool binaries, worker pool sizing, per-category
// timeouts and batch ceilings, and the optional S3 and AMQP integrations.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
