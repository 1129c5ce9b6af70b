// Package config loads, normalizes, and validates fieldingest configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file, and honours
// environment fallbacks such as FIELDINGEST_API_TOKEN. The Config type
// centralizes every knob the CLI and the ingest workflow need, from the backend
// endpoint to the compression bucket thresholds.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, a valid bucket partition, and clear validation errors.
package config
