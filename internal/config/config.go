package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrison/parallelizer/internal/models"
)

// InferenceConfig controls implicit dependency detection
type InferenceConfig struct {
	// MinConfidence is the lowest confidence at which an inferred edge is kept
	MinConfidence float64 `yaml:"min_confidence"`
}

// AnalysisConfig controls the critical path speedup recommendation
type AnalysisConfig struct {
	// MinSpeedup is the speedup below which parallel execution is not recommended
	MinSpeedup float64 `yaml:"min_speedup"`

	// MinTasks is the task count below which parallel execution is not recommended
	MinTasks int `yaml:"min_tasks"`

	// CoordinationOverhead is added per layer to the parallel bound (minutes)
	CoordinationOverhead float64 `yaml:"coordination_overhead"`
}

// ConflictsConfig controls conflict detection
type ConflictsConfig struct {
	// SemanticThreshold is the description overlap at which concurrent tasks are flagged
	SemanticThreshold float64 `yaml:"semantic_threshold"`
}

// ProgressConfig controls progress aggregation
type ProgressConfig struct {
	// Strategy is one of simple-average, weighted, critical-path
	Strategy string `yaml:"strategy"`

	// WatchDebounce delays re-aggregation after a snapshot file changes
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// StoreConfig represents run history configuration
type StoreConfig struct {
	// Enabled records every report in the run history database
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the run history database
	DBPath string `yaml:"db_path"`
}

// Config represents parallelizer configuration options
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs will be written
	LogDir string `yaml:"log_dir"`

	// MaxAgents is the number of agents batches are planned for
	MaxAgents int `yaml:"max_agents"`

	// Objective is the batch optimization objective
	Objective string `yaml:"objective"`

	// DetectImplicit enables dependency inference from task descriptions
	DetectImplicit bool `yaml:"detect_implicit"`

	// FailureStrategy is conservative or aggressive
	FailureStrategy string `yaml:"failure_strategy"`

	Inference InferenceConfig `yaml:"inference"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Conflicts ConflictsConfig `yaml:"conflicts"`
	Progress  ProgressConfig  `yaml:"progress"`
	Store     StoreConfig     `yaml:"store"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		LogLevel:        "info",
		LogDir:          ".parallelizer/logs",
		MaxAgents:       4,
		Objective:       string(models.ObjectiveMinimizeTime),
		DetectImplicit:  true,
		FailureStrategy: string(models.FailureConservative),
		Inference: InferenceConfig{
			MinConfidence: 0.6,
		},
		Analysis: AnalysisConfig{
			MinSpeedup:           1.5,
			MinTasks:             3,
			CoordinationOverhead: 0,
		},
		Conflicts: ConflictsConfig{
			SemanticThreshold: 0.5,
		},
		Progress: ProgressConfig{
			Strategy:      string(models.ProgressSimpleAverage),
			WatchDebounce: 500 * time.Millisecond,
		},
		Store: StoreConfig{
			Enabled: false,
			DBPath:  ".parallelizer/history.db",
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Use a temporary struct to handle duration parsing
	type yamlProgress struct {
		Strategy      string `yaml:"strategy"`
		WatchDebounce string `yaml:"watch_debounce"`
	}
	type yamlConfig struct {
		LogLevel        string          `yaml:"log_level"`
		LogDir          string          `yaml:"log_dir"`
		MaxAgents       int             `yaml:"max_agents"`
		Objective       string          `yaml:"objective"`
		DetectImplicit  bool            `yaml:"detect_implicit"`
		FailureStrategy string          `yaml:"failure_strategy"`
		Inference       InferenceConfig `yaml:"inference"`
		Analysis        AnalysisConfig  `yaml:"analysis"`
		Conflicts       ConflictsConfig `yaml:"conflicts"`
		Progress        yamlProgress    `yaml:"progress"`
		Store           StoreConfig     `yaml:"store"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply non-zero values from file (merging with defaults)
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.LogDir != "" {
		cfg.LogDir = yamlCfg.LogDir
	}
	if yamlCfg.MaxAgents != 0 {
		cfg.MaxAgents = yamlCfg.MaxAgents
	}
	if yamlCfg.Objective != "" {
		cfg.Objective = yamlCfg.Objective
	}
	if yamlCfg.FailureStrategy != "" {
		cfg.FailureStrategy = yamlCfg.FailureStrategy
	}

	// Booleans and nested sections are merged only for keys present in the file,
	// so an explicit false or zero still overrides the default.
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if _, exists := rawMap["detect_implicit"]; exists {
		cfg.DetectImplicit = yamlCfg.DetectImplicit
	}

	if inference := section(rawMap, "inference"); inference != nil {
		if _, exists := inference["min_confidence"]; exists {
			cfg.Inference.MinConfidence = yamlCfg.Inference.MinConfidence
		}
	}

	if analysis := section(rawMap, "analysis"); analysis != nil {
		if _, exists := analysis["min_speedup"]; exists {
			cfg.Analysis.MinSpeedup = yamlCfg.Analysis.MinSpeedup
		}
		if _, exists := analysis["min_tasks"]; exists {
			cfg.Analysis.MinTasks = yamlCfg.Analysis.MinTasks
		}
		if _, exists := analysis["coordination_overhead"]; exists {
			cfg.Analysis.CoordinationOverhead = yamlCfg.Analysis.CoordinationOverhead
		}
	}

	if conflicts := section(rawMap, "conflicts"); conflicts != nil {
		if _, exists := conflicts["semantic_threshold"]; exists {
			cfg.Conflicts.SemanticThreshold = yamlCfg.Conflicts.SemanticThreshold
		}
	}

	if progress := section(rawMap, "progress"); progress != nil {
		if yamlCfg.Progress.Strategy != "" {
			cfg.Progress.Strategy = yamlCfg.Progress.Strategy
		}
		if yamlCfg.Progress.WatchDebounce != "" {
			debounce, err := time.ParseDuration(yamlCfg.Progress.WatchDebounce)
			if err != nil {
				return nil, fmt.Errorf("invalid progress.watch_debounce format %q: %w", yamlCfg.Progress.WatchDebounce, err)
			}
			cfg.Progress.WatchDebounce = debounce
		}
	}

	if store := section(rawMap, "store"); store != nil {
		if _, exists := store["enabled"]; exists {
			cfg.Store.Enabled = yamlCfg.Store.Enabled
		}
		if _, exists := store["db_path"]; exists {
			// Explicitly set db_path, even if empty string
			cfg.Store.DBPath = yamlCfg.Store.DBPath
		}
	}

	return cfg, nil
}

// section returns a nested mapping from the raw config, or nil when absent.
func section(raw map[string]interface{}, name string) map[string]interface{} {
	value, exists := raw[name]
	if !exists || value == nil {
		return nil
	}
	m, _ := value.(map[string]interface{})
	return m
}

// LoadConfigFromDir loads configuration from .parallelizer/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ".parallelizer", "config.yaml")
	return LoadConfig(configPath)
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
// This allows CLI flags to take precedence over config file settings
func (c *Config) MergeWithFlags(logLevel *string, maxAgents *int, objective *string, detectImplicit *bool, failureStrategy *string, dbPath *string) {
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if maxAgents != nil {
		c.MaxAgents = *maxAgents
	}
	if objective != nil {
		c.Objective = *objective
	}
	if detectImplicit != nil {
		c.DetectImplicit = *detectImplicit
	}
	if failureStrategy != nil {
		c.FailureStrategy = *failureStrategy
	}
	if dbPath != nil {
		c.Store.DBPath = *dbPath
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.MaxAgents < 1 {
		return fmt.Errorf("max_agents must be >= 1, got %d", c.MaxAgents)
	}
	if !models.Objective(c.Objective).Valid() {
		return fmt.Errorf("invalid objective %q, must be one of: minimize-time, balance-load, minimize-conflicts", c.Objective)
	}
	if !models.FailureStrategy(c.FailureStrategy).Valid() {
		return fmt.Errorf("invalid failure_strategy %q, must be one of: conservative, aggressive", c.FailureStrategy)
	}

	if c.Inference.MinConfidence <= 0 || c.Inference.MinConfidence > 1 {
		return fmt.Errorf("inference.min_confidence must be within (0, 1], got %g", c.Inference.MinConfidence)
	}

	if c.Analysis.MinSpeedup <= 0 {
		return fmt.Errorf("analysis.min_speedup must be > 0, got %g", c.Analysis.MinSpeedup)
	}
	if c.Analysis.MinTasks < 1 {
		return fmt.Errorf("analysis.min_tasks must be >= 1, got %d", c.Analysis.MinTasks)
	}
	if c.Analysis.CoordinationOverhead < 0 {
		return fmt.Errorf("analysis.coordination_overhead must be >= 0, got %g", c.Analysis.CoordinationOverhead)
	}

	if c.Conflicts.SemanticThreshold <= 0 || c.Conflicts.SemanticThreshold > 1 {
		return fmt.Errorf("conflicts.semantic_threshold must be within (0, 1], got %g", c.Conflicts.SemanticThreshold)
	}

	if !models.ProgressStrategy(c.Progress.Strategy).Valid() {
		return fmt.Errorf("invalid progress.strategy %q, must be one of: simple-average, weighted, critical-path", c.Progress.Strategy)
	}
	if c.Progress.WatchDebounce < 0 {
		return fmt.Errorf("progress.watch_debounce must be >= 0, got %v", c.Progress.WatchDebounce)
	}

	if c.Store.Enabled && c.Store.DBPath == "" {
		return fmt.Errorf("store.db_path cannot be empty when the store is enabled")
	}

	return nil
}
