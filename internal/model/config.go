package model

import "time"

// Config is the complete runtime configuration.
// Fields carry both mapstructure (viper) and yaml (config show/init) tags.
type Config struct {
	Agent        AgentConfig      `mapstructure:"agent" yaml:"agent"`
	Cache        CacheConfig      `mapstructure:"cache" yaml:"cache"`
	RateLimiting RateLimitConfig  `mapstructure:"rate_limiting" yaml:"rate_limiting"`
	Validation   ValidationConfig `mapstructure:"validation" yaml:"validation"`
	Output       OutputConfig     `mapstructure:"output" yaml:"output"`
	Logging      LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// AgentConfig selects and tunes the text-generation agent
type AgentConfig struct {
	Provider      string  `mapstructure:"provider" yaml:"provider"` // openai, anthropic, ollama, stub
	Model         string  `mapstructure:"model" yaml:"model"`
	APIKey        string  `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL       string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Timeout       int     `mapstructure:"timeout" yaml:"timeout"` // seconds, per request
	MaxIterations int     `mapstructure:"max_iterations" yaml:"max_iterations"`
	MaxTokens     int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature   float32 `mapstructure:"temperature" yaml:"temperature"`
	HTTPProxy     string  `mapstructure:"http_proxy" yaml:"http_proxy,omitempty"`
	HTTPSProxy    string  `mapstructure:"https_proxy" yaml:"https_proxy,omitempty"`
}

// CacheConfig controls the agent completion cache
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	Dir       string        `mapstructure:"dir" yaml:"dir"`
	MemoryTTL time.Duration `mapstructure:"memory_ttl" yaml:"memory_ttl"`
	DiskTTL   time.Duration `mapstructure:"disk_ttl" yaml:"disk_ttl"`
}

// RateLimitConfig throttles agent calls
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size" yaml:"burst_size"`
}

// ValidationConfig tunes the validation engine
type ValidationConfig struct {
	Readability     bool    `mapstructure:"readability" yaml:"readability"`
	ReadingGradeMax float64 `mapstructure:"reading_grade_max" yaml:"reading_grade_max"`
}

// OutputConfig controls where reports are written
type OutputConfig struct {
	Dir        string `mapstructure:"dir" yaml:"dir"`
	ReportName string `mapstructure:"report_name" yaml:"report_name"`
	DraftName  string `mapstructure:"draft_name" yaml:"draft_name"`
	IncludeRaw bool   `mapstructure:"include_raw" yaml:"include_raw"` // Keep raw agent text in the JSON report
	Verbose    bool   `mapstructure:"verbose" yaml:"verbose"`
}

// LoggingConfig configures the zap logger
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	JSON       bool   `mapstructure:"json" yaml:"json"`
	File       string `mapstructure:"file" yaml:"file,omitempty"` // Empty = stderr only
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Provider:      "openai",
			Model:         "gpt-4o-mini",
			Timeout:       120,
			MaxIterations: 20,
			MaxTokens:     2000,
			Temperature:   0.1,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".icfextract-cache",
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 1,
			BurstSize:         2,
		},
		Validation: ValidationConfig{
			Readability:     true,
			ReadingGradeMax: 8.0,
		},
		Output: OutputConfig{
			Dir:        "output",
			ReportName: "extraction_report.json",
			DraftName:  "draft_icf.md",
			IncludeRaw: true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
	}
}
