// Package config loads the learner configuration: learning rates,
// decay and dream bounds, stage gates and the milestone curriculum.
// Configuration problems are fatal at load time, never at runtime.
package config

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/while-basic/Ollama-AI-Simulator/internal/dream"
	"github.com/while-basic/Ollama-AI-Simulator/internal/engine"
	"github.com/while-basic/Ollama-AI-Simulator/internal/extract"
	"github.com/while-basic/Ollama-AI-Simulator/internal/graph"
	"github.com/while-basic/Ollama-AI-Simulator/internal/milestone"
	"github.com/while-basic/Ollama-AI-Simulator/internal/model"
	"github.com/while-basic/Ollama-AI-Simulator/internal/stage"
)

// ErrInvalid marks an unusable configuration.
var ErrInvalid = errors.New("invalid configuration")

// Logging configures the zap logger.
type Logging struct {
	Level string `yaml:"level"` // debug|info|warn|error
	Dev   bool   `yaml:"dev"`
}

// Config is the full YAML configuration.
type Config struct {
	Logging    Logging                             `yaml:"logging"`
	Learning   engine.Options                      `yaml:"learning"`
	Graph      graph.Options                       `yaml:"graph"`
	Dream      dream.Options                       `yaml:"dream"`
	Stages     map[string]stage.Gate               `yaml:"stages"`
	Curriculum map[string][]milestone.Definition   `yaml:"curriculum"`
}

// Default returns the built-in configuration, including the default
// curriculum across all six stages.
func Default() *Config {
	gates := stage.DefaultGates()
	stages := make(map[string]stage.Gate)
	for s := model.StageInfant; s < model.StageElder; s++ {
		stages[s.String()] = gates[s]
	}
	return &Config{
		Logging:  Logging{Level: "info"},
		Learning: engine.DefaultOptions(),
		Graph:    graph.DefaultOptions(),
		Dream:    dream.DefaultOptions(),
		Stages:   stages,
		Curriculum: map[string][]milestone.Definition{
			"infant": {
				{
					ID: "first_word", Title: "First word",
					Description: "Produces mama or dada.",
					Trigger:     milestone.Trigger{Kind: milestone.TriggerContains, Values: []string{"mama", "dada"}},
					Reward:      0.8,
				},
				{
					ID: "babble", Title: "Babbling",
					Trigger:    milestone.Trigger{Kind: milestone.TriggerPattern, Pattern: `(ba|da|ga)\s*(ba|da|ga)`},
					Reward:     0.3,
					Repeatable: true,
				},
			},
			"toddler": {
				{
					ID: "two_word", Title: "Two-word combination",
					Trigger: milestone.Trigger{Kind: milestone.TriggerPattern, Pattern: `\w+\s+\w+`},
					Reward:  0.5,
				},
				{
					ID: "naming", Title: "Names familiar objects",
					Trigger: milestone.Trigger{Kind: milestone.TriggerContains, Values: []string{"ball", "cat", "dog", "milk"}},
					Reward:  0.4,
				},
			},
			"child": {
				{
					ID: "why_streak", Title: "Asking why",
					Description: "Asks why in three consecutive responses.",
					Trigger:     milestone.Trigger{Kind: milestone.TriggerConsecutive, Pattern: `why`, Count: 3},
					Reward:      0.6,
				},
				{
					ID: "full_sentence", Title: "Full sentences",
					Trigger: milestone.Trigger{Kind: milestone.TriggerLengthAndContains, Values: []string{"because", "want", "like"}, MinLength: 20},
					Reward:  0.6,
				},
			},
			"teenager": {
				{
					ID: "abstract_terms", Title: "Abstract vocabulary",
					Trigger: milestone.Trigger{Kind: milestone.TriggerContains, Values: []string{"think", "feel", "believe"}},
					Reward:  0.7,
				},
				{
					ID: "long_reasoning", Title: "Extended reasoning",
					Trigger: milestone.Trigger{Kind: milestone.TriggerLengthAndContains, Values: []string{"because", "therefore"}, MinLength: 80},
					Reward:  0.7,
				},
			},
			"adult": {
				{
					ID: "reflection", Title: "Reflects on learning",
					Trigger: milestone.Trigger{Kind: milestone.TriggerContains, Values: []string{"remember", "learned"}},
					Reward:  0.8,
				},
				{
					ID: "elaborate", Title: "Elaborate argument",
					Trigger: milestone.Trigger{Kind: milestone.TriggerLengthAndContains, Values: []string{"however", "although"}, MinLength: 120},
					Reward:  0.8,
				},
			},
			"elder": {
				{
					ID: "wisdom", Title: "Speaks of growth",
					Trigger: milestone.Trigger{Kind: milestone.TriggerContains, Values: []string{"time", "change", "grow"}},
					Reward:  0.9,
				},
			},
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrInvalid, path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalid, path, err)
	}
	if _, err := cfg.Params(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Params compiles the configuration into engine parameters,
// validating stage names and the milestone table.
func (c *Config) Params() (engine.Params, error) {
	var gates [model.StageCount]stage.Gate
	for name, gate := range c.Stages {
		s, err := model.ParseStage(name)
		if err != nil {
			return engine.Params{}, fmt.Errorf("%w: stages: %v", ErrInvalid, err)
		}
		gates[s] = gate
	}

	// Flatten the curriculum in stage-ladder order so evaluation
	// order is the declared order, independent of map iteration.
	var defs []milestone.Definition
	for s := model.StageInfant; s <= model.StageElder; s++ {
		for _, d := range c.Curriculum[s.String()] {
			d.Stage = s
			defs = append(defs, d)
		}
	}
	for name := range c.Curriculum {
		if _, err := model.ParseStage(name); err != nil {
			return engine.Params{}, fmt.Errorf("%w: curriculum: %v", ErrInvalid, err)
		}
	}
	// Compile now so a malformed trigger fails at load, not later.
	if _, err := milestone.NewEngine(defs); err != nil {
		return engine.Params{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	return engine.Params{
		Options:    c.Learning,
		Graph:      c.Graph,
		Gates:      gates,
		Milestones: defs,
		Dream:      c.Dream,
		Extract:    extract.Keywords,
	}, nil
}

// BuildLogger constructs the zap logger described by the Logging
// section.
func (c *Config) BuildLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: logging level: %v", ErrInvalid, err)
	}
	var zcfg zap.Config
	if c.Logging.Dev {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
