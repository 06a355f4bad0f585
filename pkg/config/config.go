/*
Package config manages the TOML config for permsearch.

A config file is looked up at the path given on the command line first, then
at [UserConfigDir]/permsearch/config.toml, which is created with defaults when
missing. Files that fail to parse are recovered section by section; anything
that cannot be recovered falls back to the builtin defaults. Paths ending in
.yaml or .yml are read as YAML with the same keys.
*/
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/bastiangx/permsearch/internal/utils"
	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

const appName = "permsearch"

// Config holds the entire config structure
type Config struct {
	Search SearchConfig `toml:"search" yaml:"search"`
	CLI    CliConfig    `toml:"cli" yaml:"cli"`
	Server ServerConfig `toml:"server" yaml:"server"`
}

// SearchConfig selects the lookalike tables and how many candidates to show.
type SearchConfig struct {
	Keyboard bool `toml:"keyboard" yaml:"keyboard"`
	Variants bool `toml:"variants" yaml:"variants"`
	Limit    int  `toml:"limit" yaml:"limit"`
}

// CliConfig holds interactive prompt options.
type CliConfig struct {
	Prompt string `toml:"prompt" yaml:"prompt"`
	Color  bool   `toml:"color" yaml:"color"`
}

// ServerConfig has server related options.
type ServerConfig struct {
	MaxSessions int  `toml:"max_sessions" yaml:"max_sessions"`
	MaxLimit    int  `toml:"max_limit" yaml:"max_limit"`
	MaxInput    int  `toml:"max_input" yaml:"max_input"`
	Watch       bool `toml:"watch" yaml:"watch"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			Keyboard: true,
			Variants: true,
			Limit:    10,
		},
		CLI: CliConfig{
			Prompt: "> ",
			Color:  true,
		},
		Server: ServerConfig{
			MaxSessions: 64,
			MaxLimit:    64,
			MaxInput:    256,
			Watch:       true,
		},
	}
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/permsearch
// 2. os.UserConfigDir()/permsearch
// 3. Current executable dir
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return utils.GetExecutableDir()
	}
	primaryPath := filepath.Join(homeDir, ".config", appName)
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	if userDir, err := os.UserConfigDir(); err == nil {
		fallback := filepath.Join(userDir, appName)
		if result := utils.CheckDirStatus(fallback); result.Writable {
			return fallback, nil
		}
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
// 1. Custom path from the -config flag
// 2. Default path: [UserConfigDir]/permsearch/config.toml
// 3. Builtin defaults
//
// The returned path is empty when the builtin defaults are used.
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

	return LoadConfig(configPath)
}

// LoadConfig loads a TOML or YAML file on top of the defaults.
func LoadConfig(configPath string) (*Config, error) {
	if isYAML(configPath) {
		return loadYAML(configPath)
	}

	config := DefaultConfig()
	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	return validated(config, configPath), nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func loadYAML(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", configPath, err)
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
	}
	return validated(config, configPath), nil
}

// tryPartialParse recovers the sections of a TOML file that still decode
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "search"); ok {
		extractSearchConfig(section, &config.Search)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(section, &config.CLI)
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	return validated(config, configPath), nil
}

// extractSearchConfig extracts search configuration from a map
func extractSearchConfig(data map[string]any, search *SearchConfig) {
	if val, ok := utils.ExtractBool(data, "keyboard"); ok {
		search.Keyboard = val
	}
	if val, ok := utils.ExtractBool(data, "variants"); ok {
		search.Variants = val
	}
	if val, ok := utils.ExtractInt64(data, "limit"); ok {
		search.Limit = val
	}
}

// extractCliConfig extracts CLI config from a map
func extractCliConfig(data map[string]any, cli *CliConfig) {
	if val, ok := utils.ExtractString(data, "prompt"); ok {
		cli.Prompt = val
	}
	if val, ok := utils.ExtractBool(data, "color"); ok {
		cli.Color = val
	}
}

// extractServerConfig extracts server configuration from a map
func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractInt64(data, "max_sessions"); ok {
		server.MaxSessions = val
	}
	if val, ok := utils.ExtractInt64(data, "max_limit"); ok {
		server.MaxLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "max_input"); ok {
		server.MaxInput = val
	}
	if val, ok := utils.ExtractBool(data, "watch"); ok {
		server.Watch = val
	}
}

// MaxRank is the highest candidate rank a response frame can carry.
const MaxRank = math.MaxUint16

// Validate resets out-of-range values to their defaults and reports them.
// A server.max_limit above MaxRank is clamped to it instead.
// The config stays usable whatever it returns.
func (c *Config) Validate() error {
	defaults := DefaultConfig()
	var problems []string
	check := func(name string, val *int, def int) {
		if *val < 1 {
			problems = append(problems, fmt.Sprintf("%s must be positive, got %d", name, *val))
			*val = def
		}
	}
	check("search.limit", &c.Search.Limit, defaults.Search.Limit)
	check("server.max_sessions", &c.Server.MaxSessions, defaults.Server.MaxSessions)
	check("server.max_limit", &c.Server.MaxLimit, defaults.Server.MaxLimit)
	check("server.max_input", &c.Server.MaxInput, defaults.Server.MaxInput)
	if c.Server.MaxLimit > MaxRank {
		problems = append(problems, fmt.Sprintf("server.max_limit must be at most %d, got %d", MaxRank, c.Server.MaxLimit))
		c.Server.MaxLimit = MaxRank
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
}

func validated(config *Config, configPath string) *Config {
	if err := config.Validate(); err != nil {
		log.Warnf("%s: %v. Using defaults for those values.", configPath, err)
	}
	return config
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		return "builtin defaults"
	}
	return utils.GetAbsolutePath(configPath)
}
