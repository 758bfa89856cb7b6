package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DirName is the name of both the global base directory (~/.trawl) and the
// per-repo config directory (.trawl).
const DirName = ".trawl"

// Sink names.
const (
	SinkSQLite = "sqlite"
	SinkNATS   = "nats"
)

// Config holds application configuration.
type Config struct {
	// LogLevel is one of debug, info, warn, error. Default info.
	LogLevel string `json:"log_level,omitempty"`

	// LogFormat is "json" (default) or "console".
	LogFormat string `json:"log_format,omitempty"`

	// AllowedPaths is an allowlist of directories for export.
	// Paths outside ~/.trawl/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for export.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of tool groups to disable entirely.
	// Known types: "control", "store".
	DisabledTypes []string `json:"disabled_types,omitempty"`

	// Sink selects where captures go: "sqlite" (default) or "nats".
	Sink string `json:"sink,omitempty"`

	// NATSURL is the server URL for the nats sink.
	NATSURL string `json:"nats_url,omitempty"`

	// NATSSubject is the subject prefix for the nats sink.
	NATSSubject string `json:"nats_subject,omitempty"`

	// SettleDelayMs is the wait before the first capture pass on a page.
	SettleDelayMs int `json:"settle_delay_ms,omitempty"`

	// NavigationSettleMs is the wait before capturing after a URL change.
	NavigationSettleMs int `json:"navigation_settle_ms,omitempty"`

	// AdvanceHashOnFailure keeps the content hash advanced when a dispatch
	// fails, so the same content is not retried. Default true.
	AdvanceHashOnFailure *bool `json:"advance_hash_on_failure,omitempty"`

	// ChromeURL attaches watches without a file to a running Chrome DevTools
	// endpoint (e.g. ws://127.0.0.1:9222). Empty launches a new browser.
	ChromeURL string `json:"chrome_url,omitempty"`

	// Headless launches Chrome without a window. Ignored with ChromeURL.
	Headless bool `json:"headless,omitempty"`

	// Sources holds per-adapter overrides keyed by source name.
	Sources map[string]SourceConfig `json:"sources,omitempty"`

	// Watches lists pages watched while the MCP server runs.
	Watches []Watch `json:"watches,omitempty"`
}

// SourceConfig overrides one adapter's defaults. Zero values keep the default.
type SourceConfig struct {
	PollIntervalMs   int  `json:"poll_interval_ms,omitempty"`
	MinMessageLength int  `json:"min_message_length,omitempty"`
	Disabled         bool `json:"disabled,omitempty"`
}

// Watch is one page to monitor. URL is required; File, when set, is an HTML
// snapshot re-read every tick instead of a live browser tab.
type Watch struct {
	URL    string `json:"url"`
	File   string `json:"file,omitempty"`
	Source string `json:"source,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	advance := true
	return &Config{
		LogLevel:             "info",
		LogFormat:            "json",
		Sink:                 SinkSQLite,
		SettleDelayMs:        1500,
		NavigationSettleMs:   1000,
		AdvanceHashOnFailure: &advance,
	}
}

// SettleDelay returns SettleDelayMs as a duration.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMs) * time.Millisecond
}

// NavigationSettle returns NavigationSettleMs as a duration.
func (c *Config) NavigationSettle() time.Duration {
	return time.Duration(c.NavigationSettleMs) * time.Millisecond
}

// AdvanceHash reports the effective AdvanceHashOnFailure value.
func (c *Config) AdvanceHash() bool {
	return c.AdvanceHashOnFailure == nil || *c.AdvanceHashOnFailure
}

// Source returns the override for name; the zero value when none is set.
func (c *Config) Source(name string) SourceConfig {
	return c.Sources[name]
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid log_format %q", c.LogFormat)
	}
	switch c.Sink {
	case "", SinkSQLite:
	case SinkNATS:
		if c.NATSURL == "" {
			return errors.New("nats_url is required when sink is nats")
		}
	default:
		return fmt.Errorf("invalid sink %q", c.Sink)
	}
	for i, w := range c.Watches {
		if strings.TrimSpace(w.URL) == "" {
			return fmt.Errorf("watches[%d]: url is required", i)
		}
	}
	return nil
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.trawl.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.trawl) and repo (.trawl) directories.
// Repo config is found by walking upward from startDir to find the nearest .trawl/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .trawl/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, DirName, "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}
	return cfg, nil
}

func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated;
// source overrides merge field by field.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		LogLevel:           pick(overlay.LogLevel, base.LogLevel),
		LogFormat:          pick(overlay.LogFormat, base.LogFormat),
		Sink:               pick(overlay.Sink, base.Sink),
		NATSURL:            pick(overlay.NATSURL, base.NATSURL),
		NATSSubject:        pick(overlay.NATSSubject, base.NATSSubject),
		ChromeURL:          pick(overlay.ChromeURL, base.ChromeURL),
		DBMaxOpenConns:     pick(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:     pick(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		SettleDelayMs:      pick(overlay.SettleDelayMs, base.SettleDelayMs),
		NavigationSettleMs: pick(overlay.NavigationSettleMs, base.NavigationSettleMs),
	}

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths
	result.Headless = base.Headless || overlay.Headless

	// Tri-state: overlay wins when set
	result.AdvanceHashOnFailure = base.AdvanceHashOnFailure
	if overlay.AdvanceHashOnFailure != nil {
		result.AdvanceHashOnFailure = overlay.AdvanceHashOnFailure
	}

	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)
	result.Watches = mergeWatches(base.Watches, overlay.Watches)

	if len(base.Sources)+len(overlay.Sources) > 0 {
		result.Sources = make(map[string]SourceConfig, len(base.Sources)+len(overlay.Sources))
		for name, sc := range base.Sources {
			result.Sources[name] = sc
		}
		for name, sc := range overlay.Sources {
			prev := result.Sources[name]
			result.Sources[name] = SourceConfig{
				PollIntervalMs:   pick(sc.PollIntervalMs, prev.PollIntervalMs),
				MinMessageLength: pick(sc.MinMessageLength, prev.MinMessageLength),
				Disabled:         prev.Disabled || sc.Disabled,
			}
		}
	}

	return result
}

// pick returns overlay unless it is the zero value.
func pick[T comparable](overlay, base T) T {
	var zero T
	if overlay != zero {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

func mergeWatches(a, b []Watch) []Watch {
	seen := make(map[Watch]bool)
	var result []Watch
	for _, w := range append(append([]Watch{}, a...), b...) {
		if !seen[w] {
			seen[w] = true
			result = append(result, w)
		}
	}
	return result
}
