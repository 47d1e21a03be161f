package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// config holds defaults that flags override.
type config struct {
	Format   string `yaml:"format" toml:"format"`
	MaxBlock string `yaml:"max_block" toml:"max_block"`
	Limit    int    `yaml:"limit" toml:"limit"`
	Workers  int    `yaml:"workers" toml:"workers"`
	Pretty   bool   `yaml:"pretty" toml:"pretty"`
}

func defaultConfig() config {
	return config{
		Format:   formatJSON,
		MaxBlock: "64 MiB",
	}
}

// loadConfig merges the file at path over cfg. The file is YAML unless
// its extension is .toml.
func loadConfig(path string, cfg config) (config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if filepath.Ext(path) == ".toml" {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c config) maxBlockBytes() (int64, error) {
	if c.MaxBlock == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(c.MaxBlock)
	if err != nil {
		return 0, fmt.Errorf("max_block: %w", err)
	}
	return int64(n), nil
}

func (c config) validate() error {
	switch c.Format {
	case formatJSON, formatYAML, formatCBOR:
	default:
		return fmt.Errorf("unknown format %q (want json, yaml or cbor)", c.Format)
	}
	if c.Limit < 0 || c.Workers < 0 {
		return fmt.Errorf("limit and workers must not be negative")
	}
	return nil
}
