package config

import (
	"time"
)

// Config is loaded once at startup and treated as read-only afterwards.
type Config struct {
	DefaultModel string       `yaml:"default_model"`
	Gemini       GeminiConfig `yaml:"gemini"`
	OpenAI       OpenAIConfig `yaml:"openai"`
	Image        ImageConfig  `yaml:"image"`
	MCP          MCPConfig    `yaml:"mcp"`
	HTTP         HTTPConfig   `yaml:"http"`
	Log          LogConfig    `yaml:"log"`
}

type GeminiConfig struct {
	APIKey          string  `yaml:"api_key"`
	BaseURL         string  `yaml:"url"`
	Temperature     float32 `yaml:"temperature"`
	MaxOutputTokens int32   `yaml:"max_output_tokens"`
}

type OpenAIConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"url"`
	MaxTokens int    `yaml:"max_tokens"`
}

// ImageConfig controls the normalization pipeline.
type ImageConfig struct {
	// Profile selects max edge and quality presets: "standard" or "thumbnail".
	Profile string `yaml:"profile"`
	MaxEdge int    `yaml:"max_edge"`
	Quality int    `yaml:"quality"`
	// Fallback is "fail" or "passthrough" and applies to normalize failures only.
	Fallback         string        `yaml:"fallback"`
	MaxPixels        int64         `yaml:"max_pixels"`
	MaxDownloadBytes int64         `yaml:"max_download_bytes"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout"`
	UserAgent        string        `yaml:"user_agent"`
}

type MCPConfig struct {
	Name      string `yaml:"name"`
	Version   string `yaml:"version"`
	Transport string `yaml:"transport"`
	Addr      string `yaml:"addr"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

// Profile presets.
const (
	ProfileStandard  = "standard"
	ProfileThumbnail = "thumbnail"

	FallbackFail        = "fail"
	FallbackPassthrough = "passthrough"

	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

type profilePreset struct {
	maxEdge int
	quality int
}

var profiles = map[string]profilePreset{
	ProfileStandard:  {maxEdge: 1536, quality: 85},
	ProfileThumbnail: {maxEdge: 600, quality: 50},
}
