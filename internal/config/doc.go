// Package config loads the service settings from an optional config.yaml
// and ATELIER_* environment variables, applies defaults, and validates the
// result before anything else starts.
package config
