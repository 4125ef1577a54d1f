package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

type ModelsConfig struct {
	BaseURL    string `json:"base_url"`
	Generator  string `json:"generator"`
	Elaborator string `json:"elaborator"`
	Classifier string `json:"classifier"`
	TimeoutSec int    `json:"timeout_sec"`
}

type AgentConfig struct {
	MemoryPath           string  `json:"memory_path"`
	WavePath             string  `json:"wave_path"`
	ResolutionDB         string  `json:"resolution_db"`
	Mode                 string  `json:"mode"` // "parallel" or "weaving"
	WeavingRounds        int     `json:"weaving_rounds"`
	CoherenceThreshold   float32 `json:"coherence_threshold"`
	CompressionThreshold int     `json:"compression_threshold"`
	PulseSeconds         int     `json:"pulse_seconds"`
	SearchInterval       int     `json:"search_interval"`
	SearchBaseURL        string  `json:"search_base_url"`
}

type Config struct {
	Server struct {
		Host      string `json:"host"`
		Port      int    `json:"port"`
		JWTSecret string `json:"jwtSecret"`
		Password  string `json:"password"`
	} `json:"server"`
	Redis struct {
		Addr     string `json:"addr"`
		Password string `json:"password"`
		DB       int    `json:"db"`
	} `json:"redis"`
	Models ModelsConfig `json:"models"`
	Agent  AgentConfig  `json:"agent"`
}

var (
	once   sync.Once
	cfg    *Config
	cfgErr error
)

// LoadConfig reads config.json from disk (singleton)
func LoadConfig(path string) (*Config, error) {
	once.Do(func() {
		raw, err := os.ReadFile(path)
		if err != nil {
			cfgErr = fmt.Errorf("failed to read config file: %w", err)
			return
		}
		var c Config
		if err := json.Unmarshal(raw, &c); err != nil {
			cfgErr = fmt.Errorf("invalid config format: %w", err)
			return
		}
		c.applyDefaults()
		if err := c.validate(); err != nil {
			cfgErr = err
			return
		}
		cfg = &c
	})
	return cfg, cfgErr
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Models.BaseURL == "" {
		c.Models.BaseURL = "http://localhost:11434"
	}
	if c.Models.TimeoutSec == 0 {
		c.Models.TimeoutSec = 60
	}
	if c.Agent.MemoryPath == "" {
		c.Agent.MemoryPath = "memories.json"
	}
	if c.Agent.WavePath == "" {
		c.Agent.WavePath = "standing_wave.json"
	}
	if c.Agent.Mode == "" {
		c.Agent.Mode = "parallel"
	}
	if c.Agent.WeavingRounds == 0 {
		c.Agent.WeavingRounds = 3
	}
	if c.Agent.CoherenceThreshold == 0 {
		c.Agent.CoherenceThreshold = 0.7
	}
	if c.Agent.CompressionThreshold == 0 {
		c.Agent.CompressionThreshold = 1000
	}
	if c.Agent.PulseSeconds == 0 {
		c.Agent.PulseSeconds = 60
	}
	if c.Agent.SearchInterval == 0 {
		c.Agent.SearchInterval = 25
	}
}

func (c *Config) validate() error {
	if c.Models.Generator == "" || c.Models.Elaborator == "" || c.Models.Classifier == "" {
		return fmt.Errorf("all three model names must be set in config")
	}
	if c.Agent.Mode != "parallel" && c.Agent.Mode != "weaving" {
		return fmt.Errorf("agent mode must be parallel or weaving, got %q", c.Agent.Mode)
	}
	if c.Agent.WeavingRounds < 1 || c.Agent.WeavingRounds > 10 {
		return fmt.Errorf("weaving_rounds must be 1..10, got %d", c.Agent.WeavingRounds)
	}
	if c.Agent.CoherenceThreshold <= 0 || c.Agent.CoherenceThreshold > 1 {
		return fmt.Errorf("coherence_threshold must be in (0, 1], got %v", c.Agent.CoherenceThreshold)
	}
	if c.Agent.CompressionThreshold < 100 {
		return fmt.Errorf("compression_threshold must be at least 100, got %d", c.Agent.CompressionThreshold)
	}
	if c.Agent.PulseSeconds < 5 {
		return fmt.Errorf("pulse_seconds must be at least 5, got %d", c.Agent.PulseSeconds)
	}
	if c.Redis.Addr != "" && c.Server.JWTSecret == "" {
		return fmt.Errorf("jwtSecret must be set when redis auth is enabled")
	}
	return nil
}

// AuthEnabled reports whether the protected API requires login. Without a
// redis address there is nowhere to keep sessions, so auth stays off.
func (c *Config) AuthEnabled() bool {
	return c.Redis.Addr != ""
}

// GetConfig returns the loaded config (must call LoadConfig first)
func GetConfig() *Config {
	return cfg
}

// ResetConfigForTest resets the singleton state (for testing only)
func ResetConfigForTest() {
	once = sync.Once{}
	cfg = nil
	cfgErr = nil
}
