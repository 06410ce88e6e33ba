// Package config loads engine configuration from planwave.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/planwave/planwave/internal/deviation"
	"github.com/planwave/planwave/internal/verify"
)

// Config is the engine configuration.
type Config struct {
	// Project names the workspace; checkpoints are listed per project.
	Project string `yaml:"project"`

	// DataDir holds the run database, artifacts and logs.
	// Defaults to .planwave under the working directory.
	DataDir string `yaml:"data_dir"`

	// MaxParallel bounds concurrent steps within a wave.
	MaxParallel int `yaml:"max_parallel"`

	// StepTimeout bounds a single step's execution. Zero means no limit.
	StepTimeout time.Duration `yaml:"step_timeout"`

	// KnowledgeDir is where target notes live. Optional.
	KnowledgeDir string `yaml:"knowledge_dir"`

	// Verification configures the gate.
	Verification struct {
		StopOnFailure bool             `yaml:"stop_on_failure"`
		Commands      []verify.Command `yaml:"commands"`
	} `yaml:"verification"`

	// DeviationRules override the built-in classification policy when set.
	DeviationRules []deviation.Rule `yaml:"deviation_rules"`

	// StrictDeviations routes unmatched anomalies to checkpoint.
	StrictDeviations bool `yaml:"strict_deviations"`
}

// UnmarshalYAML accepts step_timeout as a duration string like "30m". Keys
// absent from the file keep whatever value the Config already holds.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	aux := struct {
		Project      string `yaml:"project"`
		DataDir      string `yaml:"data_dir"`
		MaxParallel  int    `yaml:"max_parallel"`
		StepTimeout  string `yaml:"step_timeout"`
		KnowledgeDir string `yaml:"knowledge_dir"`
		Verification struct {
			StopOnFailure bool             `yaml:"stop_on_failure"`
			Commands      []verify.Command `yaml:"commands"`
		} `yaml:"verification"`
		DeviationRules   []deviation.Rule `yaml:"deviation_rules"`
		StrictDeviations bool             `yaml:"strict_deviations"`
	}{
		Project:      c.Project,
		DataDir:      c.DataDir,
		MaxParallel:  c.MaxParallel,
		KnowledgeDir: c.KnowledgeDir,
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	c.Project = aux.Project
	c.DataDir = aux.DataDir
	c.MaxParallel = aux.MaxParallel
	c.KnowledgeDir = aux.KnowledgeDir
	c.Verification = aux.Verification
	c.DeviationRules = aux.DeviationRules
	c.StrictDeviations = aux.StrictDeviations
	if aux.StepTimeout != "" {
		d, err := time.ParseDuration(aux.StepTimeout)
		if err != nil {
			return fmt.Errorf("bad step_timeout %q: %w", aux.StepTimeout, err)
		}
		c.StepTimeout = d
	}
	return nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{
		Project:     "default",
		DataDir:     ".planwave",
		MaxParallel: 4,
		StepTimeout: 30 * time.Minute,
	}
	return cfg
}

// Load reads configuration from path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.MaxParallel < 1 {
		cfg.MaxParallel = 1
	}
	if cfg.DataDir == "" {
		cfg.DataDir = ".planwave"
	}
	if cfg.Project == "" {
		cfg.Project = "default"
	}
	return cfg, nil
}

// DBPath is where the run database lives.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "runs.db")
}

// Rules returns the configured deviation rules, falling back to the
// built-in policy.
func (c *Config) Rules() []deviation.Rule {
	if len(c.DeviationRules) > 0 {
		return c.DeviationRules
	}
	return deviation.DefaultRules()
}
