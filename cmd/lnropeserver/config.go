package main

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/coreseekdev/lnrope/pkg/sumrope"
)

// ServerConfig is the top-level shape of the YAML configuration file
// lnropeserver reads at startup.
type ServerConfig struct {
	// ListenAddr is the address the WebSocket server binds to, e.g. ":8080".
	ListenAddr string `yaml:"listen_addr"`

	// Rope carries sumrope build-time tunables. lnropeserver logs them at
	// startup; the WebSocket edit sessions it serves hold plain string
	// content and build no rope with them.
	Rope RopeConfig `yaml:"rope"`

	// AllowedOrigins restricts WebSocket handshake Origin headers. Empty
	// allows every origin, matching the teacher's testing default.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RopeConfig mirrors sumrope.Config in YAML form.
type RopeConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	BalanceRatio int `yaml:"balance_ratio"`
}

func defaultConfig() ServerConfig {
	return ServerConfig{
		ListenAddr: ":8080",
		Rope: RopeConfig{
			ChunkSize:    sumrope.DefaultChunkSize,
			BalanceRatio: sumrope.DefaultBalanceRatio,
		},
	}
}

// loadConfig reads and parses a YAML config file at path, falling back to
// defaultConfig for any field left unset.
func loadConfig(path string) (ServerConfig, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultConfig().ListenAddr
	}
	if cfg.Rope.ChunkSize <= 0 {
		cfg.Rope.ChunkSize = sumrope.DefaultChunkSize
	}
	if cfg.Rope.BalanceRatio <= 0 {
		cfg.Rope.BalanceRatio = sumrope.DefaultBalanceRatio
	}

	return cfg, nil
}

func (c RopeConfig) toSumropeConfig() sumrope.Config {
	return sumrope.Config{
		ChunkSize:    c.ChunkSize,
		BalanceRatio: c.BalanceRatio,
	}
}
