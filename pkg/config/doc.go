// Package config loads engine configuration from WARDEN_* environment
// variables with validated defaults.
package config
