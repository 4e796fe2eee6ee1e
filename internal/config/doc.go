// Package config loads, validates, and defaults quire's TOML configuration.
package config
