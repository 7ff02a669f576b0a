// Package config handles configuration loading and management for suitecast.
//
// It provides functionality for:
//   - Loading configuration from .suitecast.yaml or suitecast.yaml files
//   - Default configuration values
//   - The immutable message template and color table used by reporters
package config
