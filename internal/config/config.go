// Package config provides the configuration structure for the
// audiobook-service.
package config

import (
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                        string `toml:"url"`
	AudiobookRequestedSubject  string `toml:"audiobook_requested_subject"`
	AudioChunkCreatedSubject   string `toml:"audio_chunk_created_subject"`
	AudiobookObjectStoreBucket string `toml:"audiobook_object_store_bucket"`
}

// TTSConfig holds the configuration for the speech backend.
type TTSConfig struct {
	ServiceURL     string  `toml:"service_url"`
	Language       string  `toml:"language"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// SoundsConfig holds the sound library directories.
type SoundsConfig struct {
	SFXDir        string `toml:"sfx_dir"`
	BackgroundDir string `toml:"background_dir"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	NATS   NATSConfig   `toml:"nats"`
	TTS    TTSConfig    `toml:"tts"`
	Sounds SoundsConfig `toml:"sounds"`
	Paths  PathsConfig  `toml:"paths"`
}

// Load loads the configuration for the audiobook-service.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return &cfg, nil
}
