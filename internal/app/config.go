package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	CastPath string // .hcl run description file or directory

	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config before it reaches the app.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.CastPath == "" {
		return nil, errors.New("CastPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
