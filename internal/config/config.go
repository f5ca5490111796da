package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type ServerConfig struct {
	Addr      string `toml:"addr"`
	StaticDir string `toml:"static_dir"`
}

type GatewayConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// DemoConfig holds the defaults preselected in the UI and the CLI.
type DemoConfig struct {
	City       string `toml:"city"`
	Model      string `toml:"model"`
	Platform   string `toml:"platform"`
	PromptType string `toml:"prompt_type"`
	OverlayOut string `toml:"overlay_out"`
}

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Gateway GatewayConfig `toml:"gateway"`
	Demo    DemoConfig    `toml:"demo"`
	Debug   bool          `toml:"debug"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8000"},
		Gateway: GatewayConfig{
			BaseURL:        "http://localhost:8000",
			TimeoutSeconds: 120,
		},
		Demo: DemoConfig{
			City:       "Shanghai",
			Model:      "qwen2.5-7b",
			Platform:   "SiliconFlow",
			PromptType: "agent_move_v6",
			OverlayOut: "overlay.html",
		},
	}
}

// Load reads a TOML config file on top of the defaults, then applies env
// overrides. A missing file is fine: defaults plus env apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML '%s': %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Addr = ":" + v
	}
	if v := os.Getenv("STATIC_DIR"); v != "" {
		c.Server.StaticDir = v
	}
	if v := os.Getenv("GATEWAY_URL"); v != "" {
		c.Gateway.BaseURL = v
	}
	if v := os.Getenv("DEMO_CITY"); v != "" {
		c.Demo.City = v
	}
	if v := os.Getenv("DEMO_MODEL"); v != "" {
		c.Demo.Model = v
	}
	if v := os.Getenv("DEMO_PLATFORM"); v != "" {
		c.Demo.Platform = v
	}
	if v := os.Getenv("DEMO_PROMPT_TYPE"); v != "" {
		c.Demo.PromptType = v
	}
	if v := os.Getenv("DEBUG"); v == "1" || v == "true" {
		c.Debug = true
	}
}
