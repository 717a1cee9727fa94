// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultConfigName is looked up in the working directory when --config
// is not given.
const defaultConfigName = ".phpfixer.yaml"

// Config is the YAML configuration file schema. Every field has a flag
// counterpart; flags win over file values.
type Config struct {
	Analyzer struct {
		// Binary is the PHPStan executable. Empty means auto-detect
		// (vendor/bin/phpstan, then PATH).
		Binary string `yaml:"binary"`

		// Timeout bounds one analyzer invocation, e.g. "300s".
		Timeout time.Duration `yaml:"timeout"`

		// Level is the rule level passed to the analyzer.
		Level int `yaml:"level"`
	} `yaml:"analyzer"`

	Fix struct {
		Smart     bool `yaml:"smart"`
		MaxPasses int  `yaml:"max_passes"`
		Backup    bool `yaml:"backup"`
	} `yaml:"fix"`

	// PHPVersion overrides the version detected from composer.json.
	PHPVersion string `yaml:"php_version"`

	Cache struct {
		// Capacity caps the type and flow caches. Zero keeps the
		// built-in default.
		Capacity int `yaml:"capacity"`
	} `yaml:"cache"`

	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
		File  string `yaml:"file"`
	} `yaml:"log"`
}

// loadConfig reads the config file at path. A missing file is only an
// error when the path was requested explicitly.
func loadConfig(path string, explicit bool) (Config, error) {
	var cfg Config
	cfg.Analyzer.Level = 6

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
