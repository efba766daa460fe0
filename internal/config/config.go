package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/picpress/picpress/internal/layout"
)

//go:embed pages.yaml
var pagesYAML []byte

type Config struct {
	Page   PageConfig
	Render RenderConfig
	Output OutputConfig
}

type PageConfig struct {
	Preset  string // default preset name ("a4")
	Presets map[string]PagePreset
}

// PagePreset is a named page size in CSS pixels at 96 DPI.
type PagePreset struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

type RenderConfig struct {
	TimeoutSeconds int // PICPRESS_RENDER_TIMEOUT, default 60
	Concurrency    int // PICPRESS_ENCODE_CONCURRENCY, default 4
}

type OutputConfig struct {
	Dir string // PICPRESS_OUTPUT_DIR, default "."
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envString reads an environment variable with a fallback default.
func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func Load() *Config {
	var presets struct {
		Pages map[string]PagePreset `yaml:"pages"`
	}
	if err := yaml.Unmarshal(pagesYAML, &presets); err != nil {
		// Embedded file, so this should never happen in practice.
		panic("failed to unmarshal embedded pages.yaml: " + err.Error())
	}

	return &Config{
		Page: PageConfig{
			Preset:  envString("PICPRESS_PAGE", "a4"),
			Presets: presets.Pages,
		},
		Render: RenderConfig{
			TimeoutSeconds: envInt("PICPRESS_RENDER_TIMEOUT", 60),
			Concurrency:    envInt("PICPRESS_ENCODE_CONCURRENCY", 4),
		},
		Output: OutputConfig{
			Dir: envString("PICPRESS_OUTPUT_DIR", "."),
		},
	}
}

// PageSpec resolves a preset name to a page specification. An empty name
// uses the configured default; unknown names fall back to A4.
func (c *Config) PageSpec(name string) layout.PageSpec {
	if name == "" {
		name = c.Page.Preset
	}
	if p, ok := c.Page.Presets[strings.ToLower(name)]; ok {
		return layout.PageSpec{Width: p.Width, Height: p.Height}
	}
	return layout.A4()
}
