package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/while-basic/Ollama-AI-Simulator/internal/engine"
	"github.com/while-basic/Ollama-AI-Simulator/internal/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	p, err := cfg.Params()
	if err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if _, err := engine.New(p); err != nil {
		t.Fatalf("default params rejected by engine: %v", err)
	}
	if len(p.Milestones) == 0 {
		t.Error("expected a non-empty default curriculum")
	}
	// Curriculum must flatten in stage-ladder order.
	last := model.StageInfant
	for _, d := range p.Milestones {
		if d.Stage < last {
			t.Fatalf("curriculum not in stage order at %q", d.ID)
		}
		last = d.Stage
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Learning.BaseRate != Default().Learning.BaseRate {
		t.Error("expected default learning options")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
learning:
  base_rate: 0.5
  evidence_rate: 0.1
  half_life: 50
graph:
  w_max: 2.0
  min_weight: 0.01
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Learning.BaseRate != 0.5 {
		t.Errorf("expected base_rate 0.5, got %v", cfg.Learning.BaseRate)
	}
	if cfg.Graph.WMax != 2.0 {
		t.Errorf("expected w_max 2.0, got %v", cfg.Graph.WMax)
	}
	// Untouched sections keep their defaults.
	if len(cfg.Curriculum) == 0 {
		t.Error("expected default curriculum preserved")
	}
}

func TestLoadRejectsBadRegex(t *testing.T) {
	path := writeConfig(t, `
curriculum:
  infant:
    - id: broken
      title: Broken
      trigger:
        type: response_pattern
        pattern: "("
      reward: 0.5
`)
	_, err := Load(path)
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for malformed regex, got %v", err)
	}
}

func TestLoadRejectsUnknownStage(t *testing.T) {
	path := writeConfig(t, `
curriculum:
  wizard:
    - id: m
      trigger:
        type: response_contains
        values: [x]
      reward: 0.5
`)
	_, err := Load(path)
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for unknown stage, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for missing file, got %v", err)
	}
}

func TestBuildLogger(t *testing.T) {
	cfg := Default()
	logger, err := cfg.BuildLogger()
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}
	logger.Sync()

	cfg.Logging.Level = "nonsense"
	if _, err := cfg.BuildLogger(); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for bad level, got %v", err)
	}
}
