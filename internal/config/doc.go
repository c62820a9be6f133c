// Package config loads, normalizes, and validates reelfactory configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for the
// LLM, Gemini, and publisher credentials. The Config type centralizes every
// knob the daemon and CLI need, from pipeline limits to storage backends, so
// they can be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
