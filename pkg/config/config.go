/*
Package config manages the TOML (or YAML) config of placeserve.

A config file that fails to decode is not fatal: values are salvaged section by section
and everything else falls back to DefaultConfig.
*/
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/bastiangx/placeserve/internal/utils"
	"github.com/bastiangx/placeserve/pkg/catalog"
	"github.com/charmbracelet/log"
)

// Config holds the entire config structure
type Config struct {
	Server  ServerConfig  `toml:"server" yaml:"server"`
	Catalog CatalogConfig `toml:"catalog" yaml:"catalog"`
	Cache   CacheConfig   `toml:"cache" yaml:"cache"`
	Metrics MetricsConfig `toml:"metrics" yaml:"metrics"`
	CLI     CliConfig     `toml:"cli" yaml:"cli"`
}

// ServerConfig has IPC server options.
type ServerConfig struct {
	MaxLimit   int  `toml:"max_limit" yaml:"max_limit"`
	Live       bool `toml:"live" yaml:"live"`
	LiveBuffer int  `toml:"live_buffer" yaml:"live_buffer"`
}

// CatalogConfig names the data files and how they are kept fresh.
type CatalogConfig struct {
	Files           []string `toml:"files" yaml:"files"`
	Sort            string   `toml:"sort" yaml:"sort"`
	Watch           bool     `toml:"watch" yaml:"watch"`
	WatchDebounceMs int      `toml:"watch_debounce_ms" yaml:"watch_debounce_ms"`
	ReloadSchedule  string   `toml:"reload_schedule" yaml:"reload_schedule"`
}

// CacheConfig sizes the search result cache. Size 0 disables it.
type CacheConfig struct {
	Size int `toml:"size" yaml:"size"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `toml:"addr" yaml:"addr"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit int `toml:"default_limit" yaml:"default_limit"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			MaxLimit:   100,
			Live:       false,
			LiveBuffer: 16,
		},
		Catalog: CatalogConfig{
			Files:           []string{"data/cities.json"},
			Sort:            catalog.SortStable.String(),
			Watch:           false,
			WatchDebounceMs: 500,
			ReloadSchedule:  "",
		},
		Cache: CacheConfig{
			Size: 256,
		},
		Metrics: MetricsConfig{
			Addr: "",
		},
		CLI: CliConfig{
			DefaultLimit: 10,
		},
	}
}

// WatchDebounce is Catalog.WatchDebounceMs as a duration.
func (c *Config) WatchDebounce() time.Duration {
	return time.Duration(c.Catalog.WatchDebounceMs) * time.Millisecond
}

// SortStrategy parses Catalog.Sort. Anything but "partition" is a stable sort.
func (c *Config) SortStrategy() catalog.SortStrategy {
	return catalog.ParseSortStrategy(c.Catalog.Sort)
}

// validate replaces out of range values with defaults.
func (c *Config) validate() {
	def := DefaultConfig()
	if c.Server.MaxLimit < 0 {
		log.Warnf("server.max_limit %d is negative, using %d", c.Server.MaxLimit, def.Server.MaxLimit)
		c.Server.MaxLimit = def.Server.MaxLimit
	}
	if c.Server.LiveBuffer < 1 {
		log.Warnf("server.live_buffer %d is too small, using %d", c.Server.LiveBuffer, def.Server.LiveBuffer)
		c.Server.LiveBuffer = def.Server.LiveBuffer
	}
	if s := c.Catalog.Sort; s != "" && s != catalog.SortStable.String() && s != catalog.SortPartition.String() {
		log.Warnf("catalog.sort %q is unknown, using %s", s, catalog.SortStable)
		c.Catalog.Sort = catalog.SortStable.String()
	}
	if c.Catalog.WatchDebounceMs < 0 {
		c.Catalog.WatchDebounceMs = def.Catalog.WatchDebounceMs
	}
	if c.Cache.Size < 0 {
		c.Cache.Size = 0
	}
	if c.CLI.DefaultLimit < 1 {
		c.CLI.DefaultLimit = def.CLI.DefaultLimit
	}
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/placeserve
// 2. ~/Library/Application Support/placeserve (macOS)
// 3. Current executable dir
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return utils.GetExecutableDir()
	}
	primaryPath := filepath.Join(homeDir, ".config", "placeserve")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "placeserve")
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/placeserve/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}

	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}
	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)
	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file, or YAML when the path ends in .yaml/.yml.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()
	if err := utils.LoadConfigFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	config.validate()
	return config, nil
}

// tryPartialParse salvages the well-typed values of a file that did not decode.
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "catalog"); ok {
		extractCatalogConfig(section, &config.Catalog)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cache"); ok {
		if val, ok := utils.ExtractInt(section, "size"); ok {
			config.Cache.Size = val
		}
	}
	if section, ok := utils.ExtractSection(tempConfig, "metrics"); ok {
		if val, ok := utils.ExtractString(section, "addr"); ok {
			config.Metrics.Addr = val
		}
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		if val, ok := utils.ExtractInt(section, "default_limit"); ok {
			config.CLI.DefaultLimit = val
		}
	}
	config.validate()
	return config, nil
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractInt(data, "max_limit"); ok {
		server.MaxLimit = val
	}
	if val, ok := utils.ExtractBool(data, "live"); ok {
		server.Live = val
	}
	if val, ok := utils.ExtractInt(data, "live_buffer"); ok {
		server.LiveBuffer = val
	}
}

func extractCatalogConfig(data map[string]any, cat *CatalogConfig) {
	if val, ok := utils.ExtractStrings(data, "files"); ok {
		cat.Files = val
	}
	if val, ok := utils.ExtractString(data, "sort"); ok {
		cat.Sort = val
	}
	if val, ok := utils.ExtractBool(data, "watch"); ok {
		cat.Watch = val
	}
	if val, ok := utils.ExtractInt(data, "watch_debounce_ms"); ok {
		cat.WatchDebounceMs = val
	}
	if val, ok := utils.ExtractString(data, "reload_schedule"); ok {
		cat.ReloadSchedule = val
	}
}

// RebuildConfigFile force creates a new config.toml at default
func RebuildConfigFile() error {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(filepath.Dir(defaultPath)); err != nil {
		return err
	}
	return SaveConfig(DefaultConfig(), defaultPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file, or YAML for .yaml/.yml paths.
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveConfigFile(config, configPath)
}

// Update changes the server values and saves to file
func (c *Config) Update(configPath string, maxLimit *int, live *bool) error {
	if maxLimit != nil {
		c.Server.MaxLimit = *maxLimit
	}
	if live != nil {
		c.Server.Live = *live
	}
	return SaveConfig(c, configPath)
}
