package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds client settings. Values come from the environment (a .env
// file is loaded by the root command) and may be overlaid by a YAML file.
type Config struct {
	APIURL             string        `yaml:"apiURL"`
	Token              string        `yaml:"token"`
	HTTPTimeout        time.Duration `yaml:"httpTimeout"`
	UploadTimeout      time.Duration `yaml:"uploadTimeout"`
	MaxFileMB          int64         `yaml:"maxFileMB"`
	CaseInsensitiveExt bool          `yaml:"caseInsensitiveExt"`
	SchemaFile         string        `yaml:"schemaFile"`
	DownloadDir        string        `yaml:"downloadDir"`
	UploadDir          string        `yaml:"uploadDir"`
	Poll               PollConfig    `yaml:"poll"`
}

// PollConfig is the status polling backoff
type PollConfig struct {
	Initial     time.Duration `yaml:"initial"`
	Max         time.Duration `yaml:"max"`
	Factor      float64       `yaml:"factor"`
	GrowthAfter int           `yaml:"growthAfter"`
}

// Load reads the environment, then overlays path when it is not empty
func Load(path string) (*Config, error) {
	cfg := &Config{
		APIURL:             getEnv("CSVIMPORT_API_URL", "http://localhost:8080"),
		Token:              getEnv("CSVIMPORT_TOKEN", ""),
		HTTPTimeout:        getEnvAsDuration("CSVIMPORT_HTTP_TIMEOUT", 30*time.Second),
		UploadTimeout:      getEnvAsDuration("CSVIMPORT_UPLOAD_TIMEOUT", 0),
		MaxFileMB:          int64(getEnvAsInt("CSVIMPORT_MAX_FILE_MB", 100)),
		CaseInsensitiveExt: getEnvAsBool("CSVIMPORT_CASE_INSENSITIVE_EXT", false),
		SchemaFile:         getEnv("CSVIMPORT_SCHEMA_FILE", ""),
		DownloadDir:        getEnv("CSVIMPORT_DOWNLOAD_DIR", "."),
		UploadDir:          getEnv("CSVIMPORT_UPLOAD_DIR", "uploads"),
		Poll: PollConfig{
			Initial:     getEnvAsDuration("CSVIMPORT_POLL_INITIAL", time.Second),
			Max:         getEnvAsDuration("CSVIMPORT_POLL_MAX", 30*time.Second),
			Factor:      getEnvAsFloat("CSVIMPORT_POLL_FACTOR", 1.5),
			GrowthAfter: getEnvAsInt("CSVIMPORT_POLL_GROWTH_AFTER", 5),
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("CSVIMPORT_API_URL is not set")
	}
	if c.UploadTimeout < 0 {
		return fmt.Errorf("upload timeout must not be negative, got %s", c.UploadTimeout)
	}
	if c.MaxFileMB <= 0 {
		return fmt.Errorf("max file size must be positive, got %d MB", c.MaxFileMB)
	}
	if c.Poll.Initial <= 0 || c.Poll.Max < c.Poll.Initial {
		return fmt.Errorf("invalid poll interval: initial %s, max %s", c.Poll.Initial, c.Poll.Max)
	}
	if c.Poll.Factor < 1 {
		return fmt.Errorf("poll factor must be >= 1, got %g", c.Poll.Factor)
	}
	return nil
}

// MaxFileSize returns the intake size gate in bytes
func (c *Config) MaxFileSize() int64 {
	return c.MaxFileMB * 1024 * 1024
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
