// Package config handles application configuration loading and validation.
//
// Configuration is loaded from a YAML settings file and validated using struct
// tags. The file is located through the MTAPI_SETTINGS environment variable or
// the default paths. Secrets may come from the environment or a .env file; the
// MTA_KEY variable overrides feed.apiKey.
package config
