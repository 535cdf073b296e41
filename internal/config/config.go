// Package config loads poke's YAML configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the poke binary.
type Config struct {
	Version int `yaml:"version"`

	Server     ServerConfig     `yaml:"server"`
	LLM        LLMConfig        `yaml:"llm"`
	Dedupe     DedupeConfig     `yaml:"dedupe"`
	ConvLog    ConvLogConfig    `yaml:"conversation_log"`
	Roster     RosterConfig     `yaml:"roster"`
	Lessons    LessonsConfig    `yaml:"lessons"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Agents     map[string]AgentOverride `yaml:"agents"`
}

// ServerConfig controls the orchestrator process itself.
type ServerConfig struct {
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// TracingConfig configures the optional OTLP trace exporter. Leaving
// Endpoint empty keeps tracing in no-op mode.
type TracingConfig struct {
	Endpoint       string  `yaml:"endpoint,omitempty"`
	SamplingRate   float64 `yaml:"sampling_rate,omitempty"`
	EnableInsecure bool    `yaml:"enable_insecure,omitempty"`
}

// LLMConfig selects the LLM provider and default model.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // "openai" | "anthropic" | "openrouter"
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// DedupeConfig tunes the duplicate detector.
type DedupeConfig struct {
	CacheSize         int           `yaml:"cache_size"`
	Window            time.Duration `yaml:"window"`
	MinContentLength  int           `yaml:"min_content_length"`
}

// ConvLogConfig locates the conversation log directory.
type ConvLogConfig struct {
	Dir string `yaml:"dir"`
}

// RosterConfig locates the agent roster file.
type RosterConfig struct {
	Path string `yaml:"path"`
}

// LessonsConfig locates the lessons-learned store file.
type LessonsConfig struct {
	Path string `yaml:"path"`
}

// SchedulerConfig tunes the trigger scheduler.
type SchedulerConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	Store        string        `yaml:"store"` // "memory" | "sqlite"
	SQLitePath   string        `yaml:"sqlite_path,omitempty"`
}

// AgentOverride customizes a single named execution agent.
type AgentOverride struct {
	Model       string  `yaml:"model,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
}

// Load reads and parses a YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := ValidateVersion(cfg.Version); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with every field set to its default value.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Server: ServerConfig{
			MetricsAddr: ":9090",
			LogLevel:    "info",
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			MaxTokens:   4096,
			Temperature: 0.7,
		},
		Dedupe: DedupeConfig{
			CacheSize:        100,
			Window:           60 * time.Second,
			MinContentLength: 3,
		},
		ConvLog: ConvLogConfig{
			Dir: "data/conversations",
		},
		Roster: RosterConfig{
			Path: "data/execution_agents/roster.json",
		},
		Lessons: LessonsConfig{
			Path: "data/lessons.json",
		},
		Scheduler: SchedulerConfig{
			PollInterval: time.Second,
			Store:        "memory",
		},
	}
}
