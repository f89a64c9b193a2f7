package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
)

// ModelConfig describes the codec and architecture used when creating a
// fresh model with the init command.
type ModelConfig struct {
	Alphabet  string `json:"alphabet"`
	Filler    string `json:"filler"`
	MaxLen    int    `json:"maxlen"`
	NumHidden int    `json:"num_hidden"`
}

// SamplingConfig holds the default parameters for a sampling run. Most
// of them can be overridden with command-line flags.
type SamplingConfig struct {
	BatchSize    int     `json:"batch_size"`
	Iterations   int     `json:"iterations"`
	Checkpoints  []int   `json:"checkpoints"`
	StartTemp    float64 `json:"start_temp"`
	FinalTemp    float64 `json:"final_temp"`
	AnnealPolicy string  `json:"anneal_policy"`
	InitMethod   string  `json:"init_method"`
	MinLength    int     `json:"min_length"`
	MaxLength    int     `json:"max_length"`
	SampleEnergy bool    `json:"sample_energy"`
}

// Config is the top-level configuration struct for the sampler CLI.
type Config struct {
	ModelPath           string          `json:"model_path"`
	ExampleDatabasePath string          `json:"example_database_path"`
	LogLevel            string          `json:"log_level"`
	Model               *ModelConfig    `json:"model_config"`
	Sampling            *SamplingConfig `json:"sampling_config"`
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		ModelPath:           "./data/model.json",
		ExampleDatabasePath: "./data/examples.db?_journal_mode=WAL&_busy_timeout=5000",
		LogLevel:            "info",
		Model: &ModelConfig{
			Alphabet:  "abcdefghijklmnopqrstuvwxyz -'$",
			Filler:    "$",
			MaxLen:    20,
			NumHidden: 180,
		},
		Sampling: &SamplingConfig{
			BatchSize:    30,
			Iterations:   1000,
			Checkpoints:  []int{0, 10, 100, 500, 999},
			StartTemp:    1.0,
			FinalTemp:    1.0,
			AnnealPolicy: "exp",
			InitMethod:   "biases",
			MinLength:    0,
			MaxLength:    0,
			SampleEnergy: false,
		},
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		// If the file doesn't exist, create it with the default config.
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// Log a warning instead of failing, as the CLI can still run with defaults.
				fmt.Printf("warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		// For other errors (e.g., permission denied), return the error.
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}
