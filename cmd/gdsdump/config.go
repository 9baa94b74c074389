package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/tsawler/gdsii/export"
)

// fileConfig is the on-disk form of the dump settings. Comments and
// trailing commas are allowed.
type fileConfig struct {
	Format     string   `json:"format"`
	Structures []string `json:"structures"`
	Summary    bool     `json:"summary"`
	NoVertices bool     `json:"no_vertices"`
	Pretty     bool     `json:"pretty"`
	Eager      bool     `json:"eager"`
	MaxSize    int64    `json:"max_size"`
	Output     string   `json:"output"`
}

func parseConfig(data []byte) (*fileConfig, error) {
	stripped := jsonc.ToJSON(data)

	var cfg fileConfig
	if err := json.Unmarshal(stripped, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Format != "" {
		if _, err := export.ParseFormat(cfg.Format); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	if cfg.MaxSize < 0 {
		return nil, fmt.Errorf("parsing config: negative max_size %d", cfg.MaxSize)
	}
	return &cfg, nil
}

func readConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg, err := parseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// exportConfig turns the settings into an export.Config
func (c *fileConfig) exportConfig() (export.Config, error) {
	config := export.DefaultConfig()
	if c.Summary {
		config = export.SummaryConfig()
	}
	if c.Format != "" {
		f, err := export.ParseFormat(c.Format)
		if err != nil {
			return config, err
		}
		config.Format = f
	}
	if c.NoVertices {
		config.IncludeVertices = false
	}
	config.Structures = c.Structures
	config.PrettyPrint = c.Pretty
	return config, nil
}
