package cfg

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	s, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.ModelName != "default" {
		t.Errorf("ModelName = %q, want default", s.ModelName)
	}
	if s.Trees != 200 {
		t.Errorf("Trees = %d, want 200", s.Trees)
	}
	if s.Seed != 42 {
		t.Errorf("Seed = %d, want 42", s.Seed)
	}
	if s.TestFraction != 0.2 {
		t.Errorf("TestFraction = %v, want 0.2", s.TestFraction)
	}
	if s.LowThreshold >= s.HighThreshold {
		t.Errorf("default thresholds unordered: %v >= %v", s.LowThreshold, s.HighThreshold)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	config := `
data:
  path: /tmp/hg-data
  datasetPath: heart.csv
model:
  name: experiment-3
  trees: 150
  seed: 7
serve:
  lowThreshold: 0.25
  highThreshold: 0.75
  port: 9000
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(config), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)

	s, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.ModelName != "experiment-3" {
		t.Errorf("ModelName = %q", s.ModelName)
	}
	if s.Trees != 150 || s.Seed != 7 {
		t.Errorf("Trees/Seed = %d/%d", s.Trees, s.Seed)
	}
	if s.LowThreshold != 0.25 || s.HighThreshold != 0.75 {
		t.Errorf("thresholds = %v/%v", s.LowThreshold, s.HighThreshold)
	}
	if s.ListenPort != 9000 {
		t.Errorf("ListenPort = %d", s.ListenPort)
	}
}

func TestLoad_PartialThresholdDefaults(t *testing.T) {
	cases := []struct {
		name     string
		config   string
		wantLow  float64
		wantHigh float64
	}{
		{"low only", "serve:\n  lowThreshold: 0.25\n", 0.25, 0.65},
		{"high only", "serve:\n  highThreshold: 0.9\n", 0.35, 0.9},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(c.config), 0o600); err != nil {
				t.Fatal(err)
			}
			t.Setenv("CONFIG_FILE", path)

			s, err := Load()
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if s.LowThreshold != c.wantLow || s.HighThreshold != c.wantHigh {
				t.Errorf("thresholds = %v/%v, want %v/%v",
					s.LowThreshold, s.HighThreshold, c.wantLow, c.wantHigh)
			}
		})
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	config := "model:\n  name: from-file\n  trees: 100\n"
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(config), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HEARTGUARD_MODEL", "from-env")
	t.Setenv("HEARTGUARD_TREES", "300")

	s, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.ModelName != "from-env" {
		t.Errorf("ModelName = %q, env should win", s.ModelName)
	}
	if s.Trees != 300 {
		t.Errorf("Trees = %d, env should win", s.Trees)
	}
}

func TestValidate(t *testing.T) {
	valid := Settings{
		DataPath: "data", ModelName: "m", Trees: 10, Seed: 1, TestFraction: 0.2,
		LowThreshold: 0.3, HighThreshold: 0.7, ListenPort: 8090,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid settings rejected: %v", err)
	}

	cases := []func(*Settings){
		func(s *Settings) { s.Trees = 0 },
		func(s *Settings) { s.TestFraction = 1.5 },
		func(s *Settings) { s.LowThreshold = 0.8 }, // low >= high
		func(s *Settings) { s.HighThreshold = 1.2 },
		func(s *Settings) { s.ListenPort = -1 },
	}
	for i, mutate := range cases {
		s := valid
		mutate(&s)
		if err := s.Validate(); err == nil {
			t.Errorf("case %d: invalid settings accepted: %+v", i, s)
		}
	}
}
