package app

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is the optional YAML configuration file. Every field is
// optional; command-line flags override anything set here. The check
// interval is a duration string such as "30s".
type FileConfig struct {
	PipelinePath  string `yaml:"pipeline_path"`
	Pipeline      string `yaml:"pipeline"`
	StorePath     string `yaml:"store_path"`
	Workers       int    `yaml:"workers"`
	Strategy      string `yaml:"strategy"`
	LogFormat     string `yaml:"log_format"`
	LogLevel      string `yaml:"log_level"`
	CheckInterval string `yaml:"check_interval"`
}

// LoadFileConfig reads and decodes a YAML configuration file.
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("decoding config file %s: %w", path, err)
	}
	return &fc, nil
}
