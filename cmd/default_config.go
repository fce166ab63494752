package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/linesim/sim/experiment"
	"github.com/inference-sim/linesim/sim/line"
)

// Config represents the full defaults.yaml structure.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Config struct {
	Version    string            `yaml:"version"`
	Line       line.Config       `yaml:"line"`
	Experiment experiment.Config `yaml:"experiment"`
}

// builtinDefaults is what a run uses when no defaults file is present.
func builtinDefaults() Config {
	return Config{
		Version:    "1",
		Line:       line.DefaultConfig(),
		Experiment: experiment.DefaultConfig(),
	}
}

// loadDefaultsConfig parses a defaults file on top of the built-in defaults,
// so a file only needs the keys it changes. Unknown keys are errors.
func loadDefaultsConfig(path string) (Config, error) {
	cfg := builtinDefaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read defaults file %s: %w", path, err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse defaults file %s: %w", path, err)
	}
	return cfg, nil
}

// resolveDefaults loads path, falling back to the built-in defaults only when
// the file is absent and was not asked for explicitly.
func resolveDefaults(path string, explicit bool) (Config, error) {
	cfg, err := loadDefaultsConfig(path)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		logrus.Infof("No defaults file at %s; using built-in defaults", path)
		return builtinDefaults(), nil
	}
	return cfg, err
}
