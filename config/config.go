package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brettbedarf/zkfs/internal/util"
	"gopkg.in/yaml.v3"
)

// Verbosity levels accepted by the CLI and override files; 1 is the quietest.
const (
	ErrorVerbose = iota + 1
	WarnVerbose
	InfoVerbose
	DebugVerbose
	TraceVerbose
)

// Default configuration constants. See [Config] for field descriptions.
const (
	DefaultFsName = "zkfs"
	DefaultName   = "zkfs"

	DefaultLogLvl = util.InfoLevel

	// DefaultSessionTimeout is the store session timeout in seconds
	DefaultSessionTimeout = 10.0

	// DefaultConnectTimeout bounds the wait for a new session in seconds
	DefaultConnectTimeout = 10.0

	// DefaultAttrTimeout is the kernel attribute cache timeout in seconds.
	// zkfs never caches store reads itself, so keep this short.
	DefaultAttrTimeout = 1.0

	// DefaultEntryTimeout is the kernel directory entry cache timeout in seconds
	DefaultEntryTimeout = 1.0

	// DefaultDirectIO bypasses the page cache so every read reaches the store
	DefaultDirectIO = true

	// DefaultMaxPlaceholders bounds the created-file placeholder table
	DefaultMaxPlaceholders = 1024

	// DefaultPlaceholderTTL is how long, in seconds, a placeholder outlives
	// its creation when the store node never shows up
	DefaultPlaceholderTTL = 60.0

	// DefaultListConcurrency is the number of concurrent child stats per
	// listing. 1 stats children one after another.
	DefaultListConcurrency = 1

	// DefaultMaxPayloadSize matches ZooKeeper's default jute.maxbuffer (1 MiB)
	DefaultMaxPayloadSize = 1 << 20
)

// Config contains runtime configuration values for the ZooKeeper filesystem.
type Config struct {
	MountOptions
	LogLvl util.LogLevel // Internal log level (Default info)

	SessionTimeout  float64 // Store session timeout in seconds (Default 10)
	ConnectTimeout  float64 // Max wait for a session to be established in seconds (Default 10)
	MaxPlaceholders int     // Max created-file placeholders held in memory (Default 1024)
	PlaceholderTTL  float64 // Seconds before an unobserved placeholder expires (Default 60)
	ListConcurrency int     // Concurrent child stats while listing a directory (Default 1)
	MaxPayloadSize  int64   // Largest payload a write or truncate may produce in bytes (Default 1 MiB)
	MetricsAddr     string  // Listen address for Prometheus metrics; empty disables (Default "")

	// NOTE: Low-level FUSE config (strongly recommend defaults unless you really know what you're doing):

	AttrTimeout  float64 // Attribute cache timeout in seconds (Default 1.0)
	EntryTimeout float64 // Directory entry cache timeout in seconds (Default 1.0)
	DirectIO     bool    // Whether to bypass page cache for payload files (Default true)
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
type ConfigOverride struct {
	FsName     *string `yaml:"fs_name,omitempty" json:"fs_name,omitempty"`
	Name       *string `yaml:"name,omitempty" json:"name,omitempty"`
	Debug      *bool   `yaml:"debug,omitempty" json:"debug,omitempty"`
	AllowOther *bool   `yaml:"allow_other,omitempty" json:"allow_other,omitempty"`
	// LogLvl is a verbosity between 1 (error) and 5 (trace); values outside are clamped
	LogLvl          *int     `yaml:"verbose,omitempty" json:"verbose,omitempty"`
	SessionTimeout  *float64 `yaml:"session_timeout,omitempty" json:"session_timeout,omitempty"`
	ConnectTimeout  *float64 `yaml:"connect_timeout,omitempty" json:"connect_timeout,omitempty"`
	MaxPlaceholders *int     `yaml:"max_placeholders,omitempty" json:"max_placeholders,omitempty"`
	PlaceholderTTL  *float64 `yaml:"placeholder_ttl,omitempty" json:"placeholder_ttl,omitempty"`
	ListConcurrency *int     `yaml:"list_concurrency,omitempty" json:"list_concurrency,omitempty"`
	MaxPayloadSize  *int64   `yaml:"max_payload_size,omitempty" json:"max_payload_size,omitempty"`
	MetricsAddr     *string  `yaml:"metrics_addr,omitempty" json:"metrics_addr,omitempty"`
	AttrTimeout     *float64 `yaml:"attr_timeout,omitempty" json:"attr_timeout,omitempty"`
	EntryTimeout    *float64 `yaml:"entry_timeout,omitempty" json:"entry_timeout,omitempty"`
	DirectIO        *bool    `yaml:"direct_io,omitempty" json:"direct_io,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		MountOptions: MountOptions{
			FsName: DefaultFsName,
			Name:   DefaultName,
		},
		LogLvl:          DefaultLogLvl,
		SessionTimeout:  DefaultSessionTimeout,
		ConnectTimeout:  DefaultConnectTimeout,
		MaxPlaceholders: DefaultMaxPlaceholders,
		PlaceholderTTL:  DefaultPlaceholderTTL,
		ListConcurrency: DefaultListConcurrency,
		MaxPayloadSize:  DefaultMaxPayloadSize,
		AttrTimeout:     DefaultAttrTimeout,
		EntryTimeout:    DefaultEntryTimeout,
		DirectIO:        DefaultDirectIO,
	}
}

// NewConfig returns the defaults with override applied; override may be nil
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// VerboseToLogLevel maps a CLI verbosity (1 error .. 5 trace) to the internal
// log level, clamping out of range values.
func VerboseToLogLevel(verbose int) util.LogLevel {
	verbose = max(ErrorVerbose, min(TraceVerbose, verbose))
	lvls := [5]util.LogLevel{util.ErrorLevel, util.WarnLevel, util.InfoLevel, util.DebugLevel, util.TraceLevel}
	return lvls[verbose-1]
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if override.FsName != nil {
		c.FsName = *override.FsName
	}
	if override.Name != nil {
		c.Name = *override.Name
	}
	if override.Debug != nil {
		c.Debug = *override.Debug
	}
	if override.AllowOther != nil {
		c.AllowOther = *override.AllowOther
	}
	if override.LogLvl != nil {
		c.LogLvl = VerboseToLogLevel(*override.LogLvl)
	}
	if override.SessionTimeout != nil {
		c.SessionTimeout = *override.SessionTimeout
	}
	if override.ConnectTimeout != nil {
		c.ConnectTimeout = *override.ConnectTimeout
	}
	if override.MaxPlaceholders != nil {
		c.MaxPlaceholders = *override.MaxPlaceholders
	}
	if override.PlaceholderTTL != nil {
		c.PlaceholderTTL = *override.PlaceholderTTL
	}
	if override.ListConcurrency != nil {
		c.ListConcurrency = *override.ListConcurrency
	}
	if override.MaxPayloadSize != nil {
		c.MaxPayloadSize = *override.MaxPayloadSize
	}
	if override.MetricsAddr != nil {
		c.MetricsAddr = *override.MetricsAddr
	}
	if override.AttrTimeout != nil {
		c.AttrTimeout = *override.AttrTimeout
	}
	if override.EntryTimeout != nil {
		c.EntryTimeout = *override.EntryTimeout
	}
	if override.DirectIO != nil {
		c.DirectIO = *override.DirectIO
	}
}

// Seconds converts one of the float second fields to a time.Duration
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
// This is a convenience function that combines NewDefaultConfig, LoadConfigOverrideFile, and Merge.
func NewConfigFromFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	cfg.Merge(override)
	return cfg, nil
}
