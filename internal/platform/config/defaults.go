package config

import "strings"

// DefaultConfig returns the configuration used when neither file nor
// environment provide a value.
func DefaultConfig() *Config {
	return &Config{
		DefaultModel: "gemini-1.5-flash",
		Gemini: GeminiConfig{
			Temperature:     0.4,
			MaxOutputTokens: 2048,
		},
		OpenAI: OpenAIConfig{
			BaseURL:   "https://api.openai.com/v1",
			MaxTokens: 1000,
		},
		Image: ImageConfig{
			Profile:   ProfileStandard,
			Fallback:  FallbackFail,
			MaxPixels: 100_000_000,
			UserAgent: "image-recognition/1.0",
		},
		MCP: MCPConfig{
			Name:      "image-recognition",
			Version:   "1.0.0",
			Transport: TransportStdio,
			Addr:      ":8090",
		},
		Log: LogConfig{
			Level: "INFO",
			File:  "server.log",
		},
	}
}

// normalize trims and lower-cases the enumerated settings.
func (c *Config) normalize() {
	c.Image.Profile = strings.ToLower(strings.TrimSpace(c.Image.Profile))
	c.Image.Fallback = strings.ToLower(strings.TrimSpace(c.Image.Fallback))
	c.MCP.Transport = strings.ToLower(strings.TrimSpace(c.MCP.Transport))
}

// applyProfile fills MaxEdge and Quality from the selected profile when they
// were not set explicitly.
func (c *Config) applyProfile() {
	preset, ok := profiles[c.Image.Profile]
	if !ok {
		return
	}
	if c.Image.MaxEdge == 0 {
		c.Image.MaxEdge = preset.maxEdge
	}
	if c.Image.Quality == 0 {
		c.Image.Quality = preset.quality
	}
}
