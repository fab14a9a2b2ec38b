package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/mar-update-server/internal/domain/update"
	"github.com/oshokin/mar-update-server/internal/logger"
)

// Config holds the settings of the update server.
type Config struct {
	// ListenAddress is where update.xml and update.mar are served.
	ListenAddress string `yaml:"listen_address"`
	// DownloadURL is the location advertised in the patch URL attribute.
	DownloadURL string `yaml:"download_url"`
	// MetricsAddress enables a separate Prometheus listener when set.
	MetricsAddress string `yaml:"metrics_address"`
	// LogLevel is the minimum level of emitted log entries.
	LogLevel string `yaml:"log_level"`
	// LogFile, when set, receives a JSON copy of every log entry.
	LogFile string `yaml:"log_file"`
	// DefaultVersion is used when the archive carries no application.ini version.
	DefaultVersion string `yaml:"default_version"`
	// DefaultBuildID is used when the archive carries no application.ini build id.
	DefaultBuildID string `yaml:"default_build_id"`
	// ShutdownTimeout bounds graceful shutdown of the listeners.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

const (
	// DefaultListenAddress matches the host and port of DefaultDownloadURL.
	DefaultListenAddress = "127.0.0.1:8000"

	// DefaultLogLevel is used when log_level is empty.
	DefaultLogLevel = "info"

	// DefaultShutdownTimeout is used when shutdown_timeout is not positive.
	DefaultShutdownTimeout = 15 * time.Second

	// DefaultFilePermissions is the permission of files written by Save.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownLogLevel is returned for log levels zap does not know.
	errUnknownLogLevel = errors.New("unknown log level")
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		ListenAddress:   DefaultListenAddress,
		DownloadURL:     update.DefaultDownloadURL,
		LogLevel:        DefaultLogLevel,
		DefaultVersion:  update.DefaultVersion,
		DefaultBuildID:  update.DefaultBuildID,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// Load reads the YAML file at path on top of Default and validates the result.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills empty fields with defaults and checks the formatted ones.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}

	if cfg.MetricsAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", cfg.MetricsAddress); err != nil {
			return fmt.Errorf("invalid metrics address: %w", err)
		}
	}

	if cfg.DownloadURL == "" {
		cfg.DownloadURL = update.DefaultDownloadURL
	}

	if _, err := url.ParseRequestURI(cfg.DownloadURL); err != nil {
		return fmt.Errorf("invalid download URL: %w", err)
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, cfg.LogLevel)
	}

	if cfg.DefaultVersion == "" {
		cfg.DefaultVersion = update.DefaultVersion
	}

	if cfg.DefaultBuildID == "" {
		cfg.DefaultBuildID = update.DefaultBuildID
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	return nil
}
