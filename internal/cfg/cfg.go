// Package cfg loads runtime settings from a YAML file with environment
// variable overrides. A .env file in the working directory is honored
// before the environment is read.
package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Settings are the resolved runtime settings.
type Settings struct {
	DataPath     string // directory holding the artifact database
	DatasetPath  string // local training CSV
	DatasetURL   string // remote training CSV, used when DatasetPath is empty
	ModelName    string // run name in the artifact store
	Trees        int
	Seed         int64
	TestFraction float64

	// Serving defaults. The core takes thresholds per call; these only feed
	// the CLI and HTTP boundary.
	LowThreshold  float64
	HighThreshold float64
	ListenPort    int
	FetchTimeout  time.Duration
}

// ConfigFile mirrors the YAML layout.
type ConfigFile struct {
	Data struct {
		Path        string `yaml:"path"`
		DatasetPath string `yaml:"datasetPath"`
		DatasetURL  string `yaml:"datasetURL"`
	} `yaml:"data"`

	Model struct {
		Name         string  `yaml:"name"`
		Trees        int     `yaml:"trees"`
		Seed         int64   `yaml:"seed"`
		TestFraction float64 `yaml:"testFraction"`
	} `yaml:"model"`

	Serve struct {
		LowThreshold  float64 `yaml:"lowThreshold"`
		HighThreshold float64 `yaml:"highThreshold"`
		Port          int     `yaml:"port"`
		FetchTimeout  string  `yaml:"fetchTimeout"`
	} `yaml:"serve"`
}

// Load reads settings from CONFIG_FILE if set, then applies environment
// overrides and defaults.
func Load() (Settings, error) {
	// Missing .env is fine; it is a convenience for local runs.
	_ = godotenv.Load()

	var file ConfigFile
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("cfg: read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return Settings{}, fmt.Errorf("cfg: parse config file: %w", err)
		}
	}

	fetchTimeout := 30 * time.Second
	if file.Serve.FetchTimeout != "" {
		if d, err := time.ParseDuration(file.Serve.FetchTimeout); err == nil {
			fetchTimeout = d
		}
	}

	s := Settings{
		DataPath:      envStr("HEARTGUARD_DATA_PATH", file.Data.Path),
		DatasetPath:   envStr("HEARTGUARD_DATASET", file.Data.DatasetPath),
		DatasetURL:    envStr("HEARTGUARD_DATASET_URL", file.Data.DatasetURL),
		ModelName:     envStr("HEARTGUARD_MODEL", file.Model.Name),
		Trees:         envInt("HEARTGUARD_TREES", file.Model.Trees),
		Seed:          int64(envInt("HEARTGUARD_SEED", int(file.Model.Seed))),
		TestFraction:  envFloat("HEARTGUARD_TEST_FRACTION", file.Model.TestFraction),
		LowThreshold:  envFloat("HEARTGUARD_LOW_THRESHOLD", file.Serve.LowThreshold),
		HighThreshold: envFloat("HEARTGUARD_HIGH_THRESHOLD", file.Serve.HighThreshold),
		ListenPort:    envInt("HEARTGUARD_PORT", file.Serve.Port),
		FetchTimeout:  fetchTimeout,
	}
	s.applyDefaults()

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s *Settings) applyDefaults() {
	if s.DataPath == "" {
		s.DataPath = "data"
	}
	if s.ModelName == "" {
		s.ModelName = "default"
	}
	if s.Trees == 0 {
		s.Trees = 200
	}
	if s.Seed == 0 {
		s.Seed = 42
	}
	if s.TestFraction == 0 {
		s.TestFraction = 0.2
	}
	// Zero means unset, as with every other setting: each threshold
	// defaults on its own, so configuring only one still validates.
	if s.LowThreshold == 0 {
		s.LowThreshold = 0.35
	}
	if s.HighThreshold == 0 {
		s.HighThreshold = 0.65
	}
	if s.ListenPort == 0 {
		s.ListenPort = 8090
	}
}

// Validate rejects settings that would misconfigure the pipeline.
func (s Settings) Validate() error {
	if s.Trees < 1 {
		return fmt.Errorf("cfg: trees must be positive, got %d", s.Trees)
	}
	if s.TestFraction <= 0 || s.TestFraction >= 1 {
		return fmt.Errorf("cfg: test fraction must be in (0,1), got %v", s.TestFraction)
	}
	if s.LowThreshold < 0 || s.HighThreshold > 1 {
		return fmt.Errorf("cfg: thresholds must be within [0,1], got %v and %v", s.LowThreshold, s.HighThreshold)
	}
	if s.LowThreshold >= s.HighThreshold {
		return fmt.Errorf("cfg: low threshold %v must be below high threshold %v", s.LowThreshold, s.HighThreshold)
	}
	if s.ListenPort < 1 || s.ListenPort > 65535 {
		return fmt.Errorf("cfg: invalid port %d", s.ListenPort)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
