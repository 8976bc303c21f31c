// Package config loads application configuration from CRITIQUE_* environment
// variables with sensible defaults and validates it at startup.
package config
