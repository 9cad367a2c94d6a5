// Package config loads, normalizes, and validates flashd configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files resolved from an explicit path, then
// ~/.config/lttle/flashd.toml, then /etc/lttle/flashd.toml. A missing
// file is not an error: the daemon runs on defaults so a stock guest
// needs no configuration at all.
//
// Always obtain settings through this package so downstream code
// receives sanitized paths, canonical log formats, and clear validation
// errors.
package config
