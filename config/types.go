package config

import "time"

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port        int    `yaml:"port" validate:"gt=0,lte=65535"`
	Debug       bool   `yaml:"debug"`
	CrossOrigin string `yaml:"crossOrigin"`
}

// FeedConfig contains realtime feed and engine configuration
type FeedConfig struct {
	APIKey            string   `yaml:"apiKey"`
	URLs              []string `yaml:"urls" validate:"required,min=1,dive,required"`
	StationsFile      string   `yaml:"stationsFile" validate:"required"`
	MaxTrains         int      `yaml:"maxTrains" validate:"gt=0"`
	MaxMinutes        int      `yaml:"maxMinutes" validate:"gt=0"`
	CacheSeconds      int      `yaml:"cacheSeconds" validate:"gt=0"`
	Threaded          bool     `yaml:"threaded"`
	TimeoutMS         int      `yaml:"timeoutMS" validate:"gte=0"`
	Retries           int      `yaml:"retries" validate:"gte=0,lte=10"`
	ResponseCacheSize int      `yaml:"responseCacheSize" validate:"gte=0"`
}

// LoggingConfig contains log output configuration
type LoggingConfig struct {
	Level   string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server  ServerConfig  `yaml:"server" validate:"required"`
	Feed    FeedConfig    `yaml:"feed" validate:"required"`
	Logging LoggingConfig `yaml:"logging"`
}

// Defaults returns the configuration used for any field the file leaves out
func Defaults() AppConfig {
	return AppConfig{
		Server: ServerConfig{Port: 5000},
		Feed: FeedConfig{
			MaxTrains:         10,
			MaxMinutes:        30,
			CacheSeconds:      60,
			Threaded:          true,
			TimeoutMS:         10000,
			Retries:           2,
			ResponseCacheSize: 256,
		},
		Logging: LoggingConfig{Level: "info", Console: true},
	}
}

// RefreshInterval is the feed expiration interval as a duration
func (f FeedConfig) RefreshInterval() time.Duration {
	return time.Duration(f.CacheSeconds) * time.Second
}

// FetchTimeout is the per-cycle fetch timeout as a duration
func (f FeedConfig) FetchTimeout() time.Duration {
	return time.Duration(f.TimeoutMS) * time.Millisecond
}

// RequestTimeout is the timeout of a single feed request: the fetch timeout
// shared across the first attempt and every retry.
func (f FeedConfig) RequestTimeout() time.Duration {
	attempts := f.Retries + 1
	if attempts < 1 {
		attempts = 1
	}
	return f.FetchTimeout() / time.Duration(attempts)
}
