// Copyright 2024 Jack Bister
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	InputPath     *string `json:"inputPath" yaml:"inputPath"`
	OutputPath    *string `json:"outputPath" yaml:"outputPath"`
	UseCRLF       *bool   `json:"useCRLF" yaml:"useCRLF"`
	PreviewLength *int    `json:"previewLength" yaml:"previewLength"`
	MetricsFile   *string `json:"metricsFile" yaml:"metricsFile"`
}

// FromFile reads a configuration file and applies it on top of base. Files ending in .yaml or .yml are read as YAML,
// all other files as JSON. Settings that are not present in the file keep their value from base.
func FromFile(filename string, base Config) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("error opening config file=%s: %w", filename, err)
	}
	defer f.Close()
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".yaml" || ext == ".yml" {
		return FromYAML(f, base)
	}
	return FromJSON(f, base)
}

func FromJSON(r io.Reader, base Config) (*Config, error) {
	var fc fileConfig
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&fc); err != nil {
		return nil, fmt.Errorf("error decoding json config: %w", err)
	}
	return fc.apply(base)
}

func FromYAML(r io.Reader, base Config) (*Config, error) {
	var fc fileConfig
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&fc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("error decoding yaml config: %w", err)
	}
	return fc.apply(base)
}

func (fc *fileConfig) apply(base Config) (*Config, error) {
	cfg := base
	if fc.InputPath != nil {
		cfg.InputPath = *fc.InputPath
	}
	if fc.OutputPath != nil {
		cfg.OutputPath = *fc.OutputPath
	}
	if fc.UseCRLF != nil {
		cfg.UseCRLF = *fc.UseCRLF
	}
	if fc.PreviewLength != nil {
		cfg.PreviewLength = *fc.PreviewLength
	}
	if fc.MetricsFile != nil {
		cfg.MetricsFile = *fc.MetricsFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.InputPath == "" {
		return fmt.Errorf("inputPath must not be empty")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("outputPath must not be empty")
	}
	if c.PreviewLength <= 0 {
		return fmt.Errorf("previewLength must be positive but was %v", c.PreviewLength)
	}
	switch c.LogType {
	case LogTypeAuto, LogTypeProduction, LogTypeDevelopment:
	default:
		return fmt.Errorf("unknown logType '%s', expected one of '%s', '%s' or '%s'", c.LogType, LogTypeAuto, LogTypeProduction, LogTypeDevelopment)
	}
	return nil
}
