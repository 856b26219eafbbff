// Package config loads, normalizes, and validates doodlecast configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads .env files, and honours environment
// overrides such as DOODLECAST_IMAGE_API_KEY. The Config type centralizes every
// knob the pipelines and CLI need so cache locations and backend credentials
// are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
