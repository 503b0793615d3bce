/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

// Package config provides access to the application configuration file.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PivotLLM/Paralegal/global"
)

// Config provides access to application configuration
type Config struct {
	configPath  string      // resolved path to config file
	data        *configData // parsed configuration
	firstRun    bool        // true if config was just created
	sessionsDir string      // resolved sessions directory
	reportsDir  string      // resolved reports directory
}

// configData holds the parsed configuration (internal)
type configData struct {
	Version     int         `json:"version"`
	BaseDir     string      `json:"base_dir"`
	SessionsDir string      `json:"sessions_dir,omitempty"`
	ReportsDir  string      `json:"reports_dir,omitempty"`
	Server      Server      `json:"server,omitempty"`
	LLM         LLM         `json:"llm"`
	Search      Search      `json:"search"`
	PromptStore PromptStore `json:"prompt_store,omitempty"`
	Logging     Logging     `json:"logging"`
}

// Server represents the HTTP listener configuration
type Server struct {
	Listen string `json:"listen,omitempty"` // host:port (default: 127.0.0.1:8080)
}

// LLM represents the completion backend configuration.
// The API key may be left empty here and supplied via OPENAI_API_KEY instead.
type LLM struct {
	BaseURL string `json:"base_url,omitempty"` // default: https://api.openai.com
	Model   string `json:"model,omitempty"`    // default: gpt-4o-mini
	APIKey  string `json:"api_key,omitempty"`
}

// Search represents the web-search backend configuration.
// The API key may be left empty here and supplied via TAVILY_API_KEY instead.
type Search struct {
	BaseURL string `json:"base_url,omitempty"` // default: https://api.tavily.com
	APIKey  string `json:"api_key,omitempty"`
}

// PromptStore represents the managed prompt store configuration.
// When disabled, the built-in prompt copies are used directly.
type PromptStore struct {
	Enabled   bool   `json:"enabled,omitempty"`
	BaseURL   string `json:"base_url,omitempty"`
	PublicKey string `json:"public_key,omitempty"`
	SecretKey string `json:"secret_key,omitempty"`
	Label     string `json:"label,omitempty"` // prompt label to fetch (default: production)
}

// Logging represents logging configuration
type Logging struct {
	File  string `json:"file"`
	Level string `json:"level"`
}

// Option is a functional option for configuring Config
type Option func(*Config)

// New creates a new Config instance with optional configuration
func New(opts ...Option) *Config {
	c := &Config{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithConfigPath sets an explicit config file path
func WithConfigPath(path string) Option {
	return func(c *Config) {
		c.configPath = path
	}
}

// defaultConfig is written on first run so the operator has something to edit.
const defaultConfig = `{
  "version": 1,
  "base_dir": "~/.paralegal",
  "sessions_dir": "sessions",
  "reports_dir": "reports",
  "server": {
    "listen": "127.0.0.1:8080"
  },
  "llm": {
    "base_url": "https://api.openai.com",
    "model": "gpt-4o-mini",
    "api_key": ""
  },
  "search": {
    "base_url": "https://api.tavily.com",
    "api_key": ""
  },
  "prompt_store": {
    "enabled": false,
    "base_url": "",
    "public_key": "",
    "secret_key": "",
    "label": "production"
  },
  "logging": {
    "file": "~/.paralegal/paralegal.log",
    "level": "INFO"
  }
}
`

// Load loads and validates configuration from file.
// If the base directory or config file doesn't exist, it creates them with defaults.
func (c *Config) Load() error {
	// Resolve config file path
	configPath, err := c.resolveConfigPath()
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}
	c.configPath = configPath

	// First-run: create base directory and default config
	baseDir := global.ExpandHome(global.DefaultBaseDir)
	if !dirExists(baseDir) {
		if err := os.MkdirAll(baseDir, 0755); err != nil {
			return fmt.Errorf("failed to create base directory %s: %w", baseDir, err)
		}
	}
	if !global.FileExists(configPath) {
		c.firstRun = true
		if err := c.setupDefaultConfig(configPath); err != nil {
			return fmt.Errorf("failed to create default config at %s: %w", configPath, err)
		}
	}

	// Read and parse config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Detect unknown fields using strict parsing; fall back to lenient parsing
	// with a warning so a typo doesn't silently change behavior.
	var cfg configData
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		if strings.Contains(err.Error(), "unknown field") {
			_, _ = fmt.Fprintf(os.Stderr, "Warning: config file %s: %v\n", configPath, err)
			if err := json.Unmarshal(data, &cfg); err != nil {
				return fmt.Errorf("failed to parse config file %s: %w", configPath, err)
			}
		} else {
			return fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	c.data = &cfg

	if err := c.resolveBaseDir(); err != nil {
		return err
	}

	if err := c.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Resolve storage paths relative to base_dir and create them
	if err := c.normalizePaths(); err != nil {
		return fmt.Errorf("failed to normalize paths: %w", err)
	}

	return nil
}

// setupDefaultConfig creates a default config file
func (c *Config) setupDefaultConfig(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}
	if err := os.WriteFile(configPath, []byte(defaultConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", configPath, err)
	}
	return nil
}

// resolveConfigPath determines the config file path using precedence rules
func (c *Config) resolveConfigPath() (string, error) {
	// 1. Explicit path (from WithConfigPath option)
	if c.configPath != "" {
		return c.resolveToAbsolute(c.configPath)
	}

	// 2. Environment variable
	if envPath := os.Getenv(global.ConfigEnvVar); envPath != "" {
		return c.resolveToAbsolute(envPath)
	}

	// 3. Default: base_dir/config.json
	baseDir := global.ExpandHome(global.DefaultBaseDir)
	return filepath.Join(baseDir, global.DefaultConfigFileName), nil
}

// resolveBaseDir resolves and validates the base_dir from config
func (c *Config) resolveBaseDir() error {
	if c.data.BaseDir == "" {
		c.data.BaseDir = global.ExpandHome(global.DefaultBaseDir)
		return nil
	}

	resolved := global.ExpandHome(c.data.BaseDir)
	if !filepath.IsAbs(resolved) {
		_, _ = fmt.Fprintf(os.Stderr, "Warning: base_dir '%s' is not absolute, using default '%s'\n",
			c.data.BaseDir, global.DefaultBaseDir)
		resolved = global.ExpandHome(global.DefaultBaseDir)
	}

	c.data.BaseDir = resolved
	return nil
}

// resolveToAbsolute converts a path to absolute, expanding ~/ if needed
func (c *Config) resolveToAbsolute(path string) (string, error) {
	expanded := global.ExpandHome(path)
	if filepath.IsAbs(expanded) {
		return expanded, nil
	}
	return filepath.Abs(expanded)
}

// resolvePath resolves a path relative to base_dir
func (c *Config) resolvePath(path string) string {
	if path == "" {
		return ""
	}
	expanded := global.ExpandHome(path)
	if filepath.IsAbs(expanded) {
		return expanded
	}
	return filepath.Join(c.data.BaseDir, expanded)
}

// validate performs sanity checks on the parsed configuration
func (c *Config) validate() error {
	if c.data.Version != 1 {
		return fmt.Errorf("unsupported config version: %d", c.data.Version)
	}

	if c.data.Logging.Level != "" {
		switch strings.ToUpper(c.data.Logging.Level) {
		case global.LogLevelDebug, global.LogLevelInfo, global.LogLevelWarn,
			global.LogLevelError, global.LogLevelFatal:
		default:
			return fmt.Errorf("invalid log level: %s", c.data.Logging.Level)
		}
	}

	if c.data.PromptStore.Enabled && c.data.PromptStore.BaseURL == "" &&
		os.Getenv(global.EnvPromptStoreBaseURL) == "" {
		return fmt.Errorf("prompt_store.enabled is set but no base_url configured")
	}

	return nil
}

// normalizePaths resolves the storage directories and creates them
func (c *Config) normalizePaths() error {
	sessions := c.data.SessionsDir
	if sessions == "" {
		sessions = global.DefaultSessionsDir
	}
	reports := c.data.ReportsDir
	if reports == "" {
		reports = global.DefaultReportsDir
	}

	c.sessionsDir = c.resolvePath(sessions)
	c.reportsDir = c.resolvePath(reports)

	for _, dir := range []string{c.sessionsDir, c.reportsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// dirExists checks if a directory exists
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// ConfigPath returns the resolved path to the loaded config file
func (c *Config) ConfigPath() string {
	return c.configPath
}

// IsFirstRun returns true if the config file was created by this load
func (c *Config) IsFirstRun() bool {
	return c.firstRun
}

// SessionsDir returns the resolved sessions storage directory
func (c *Config) SessionsDir() string {
	return c.sessionsDir
}

// ReportsDir returns the resolved reports storage directory
func (c *Config) ReportsDir() string {
	return c.reportsDir
}

// Listen returns the HTTP listen address
func (c *Config) Listen() string {
	if c.data.Server.Listen == "" {
		return "127.0.0.1:8080"
	}
	return c.data.Server.Listen
}

// LogFile returns the configured log file path
func (c *Config) LogFile() string {
	return c.data.Logging.File
}

// LogLevel returns the configured log level (default INFO)
func (c *Config) LogLevel() string {
	if c.data.Logging.Level == "" {
		return global.LogLevelInfo
	}
	return strings.ToUpper(c.data.Logging.Level)
}

// LLMBaseURL returns the completion backend base URL
func (c *Config) LLMBaseURL() string {
	if c.data.LLM.BaseURL == "" {
		return "https://api.openai.com"
	}
	return c.data.LLM.BaseURL
}

// LLMModel returns the completion model name. The OPENAI_MODEL environment
// variable overrides the config file.
func (c *Config) LLMModel() string {
	if env := os.Getenv(global.EnvOpenAIModel); env != "" {
		return env
	}
	if c.data.LLM.Model == "" {
		return "gpt-4o-mini"
	}
	return c.data.LLM.Model
}

// LLMAPIKey returns the process-default completion API key.
// Config file value takes precedence; environment is the fallback.
func (c *Config) LLMAPIKey() string {
	if c.data.LLM.APIKey != "" {
		return c.data.LLM.APIKey
	}
	return os.Getenv(global.EnvOpenAIKey)
}

// SearchBaseURL returns the search backend base URL
func (c *Config) SearchBaseURL() string {
	if c.data.Search.BaseURL == "" {
		return "https://api.tavily.com"
	}
	return c.data.Search.BaseURL
}

// SearchAPIKey returns the process-default search API key.
// Config file value takes precedence; environment is the fallback.
func (c *Config) SearchAPIKey() string {
	if c.data.Search.APIKey != "" {
		return c.data.Search.APIKey
	}
	return os.Getenv(global.EnvTavilyKey)
}

// PromptStoreEnabled returns whether the managed prompt store is in use
func (c *Config) PromptStoreEnabled() bool {
	return c.data.PromptStore.Enabled
}

// PromptStoreBaseURL returns the prompt store base URL
func (c *Config) PromptStoreBaseURL() string {
	if c.data.PromptStore.BaseURL != "" {
		return c.data.PromptStore.BaseURL
	}
	return os.Getenv(global.EnvPromptStoreBaseURL)
}

// PromptStoreCredentials returns the prompt store basic-auth key pair
func (c *Config) PromptStoreCredentials() (string, string) {
	public := c.data.PromptStore.PublicKey
	if public == "" {
		public = os.Getenv(global.EnvPromptStorePublic)
	}
	secret := c.data.PromptStore.SecretKey
	if secret == "" {
		secret = os.Getenv(global.EnvPromptStoreSecret)
	}
	return public, secret
}

// PromptStoreLabel returns the prompt label to fetch (default "production")
func (c *Config) PromptStoreLabel() string {
	if c.data.PromptStore.Label == "" {
		return "production"
	}
	return c.data.PromptStore.Label
}
