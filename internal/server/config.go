// Package server provides configuration helpers that define runtime
// defaults and validation for the pairchat service.
package server

import (
	"os"
	"strconv"
	"strings"
)

// Config holds the server configuration settings.
type Config struct {
	Port           string
	AllowedOrigins []string
	DataDir        string
	PublicDir      string
	MaxUploadSize  int64
	MaxMessageSize int64
}

func defaultConfig() Config {
	return Config{
		Port: ":8085",
		AllowedOrigins: []string{
			"http://localhost:8085",
		},
		DataDir:        "data",
		PublicDir:      "public",
		MaxUploadSize:  10 << 20,
		MaxMessageSize: 512,
	}
}

func (c Config) sanitized() Config {
	defaults := defaultConfig()

	if c.Port == "" {
		c.Port = defaults.Port
	}
	if c.DataDir == "" {
		c.DataDir = defaults.DataDir
	}
	if c.PublicDir == "" {
		c.PublicDir = defaults.PublicDir
	}
	if c.MaxUploadSize <= 0 {
		c.MaxUploadSize = defaults.MaxUploadSize
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaults.MaxMessageSize
	}

	return c
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if dir := os.Getenv("DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}

	if dir := os.Getenv("PUBLIC_DIR"); dir != "" {
		cfg.PublicDir = dir
	}

	if maxSize := os.Getenv("MAX_UPLOAD_SIZE"); maxSize != "" {
		cfg.MaxUploadSize = parseByteSize(maxSize, cfg.MaxUploadSize)
	}

	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseByteSize(maxSize, cfg.MaxMessageSize)
	}

	return &cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseByteSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}
