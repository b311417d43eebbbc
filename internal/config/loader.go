package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// envOverrides are applied after all config files.
type envOverrides struct {
	DatabasePath string `env:"TOWER_DB_PATH"`
	AssetRoot    string `env:"TOWER_ASSET_ROOT"`
	LogLevel     string `env:"TOWER_LOG_LEVEL"`
	LogJSON      *bool  `env:"TOWER_LOG_JSON"`
	GatingTaskID *int   `env:"TOWER_GATING_TASK"`
	MetricsAddr  string `env:"TOWER_METRICS_ADDR"`
}

// Load reads and merges configuration from global and project paths.
// Order of precedence (highest to lowest): environment, project config, global config, defaults.
// Missing files are not errors; malformed JSON returns an error.
func Load(globalPath, projectPath string) (*GameConfig, error) {
	cfg := DefaultConfig()

	if globalPath != "" {
		if err := mergeConfigFile(cfg, globalPath); err != nil {
			return nil, fmt.Errorf("loading global config: %w", err)
		}
	}

	if projectPath != "" {
		if err := mergeConfigFile(cfg, projectPath); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if _, err := cfg.Catalog(); err != nil {
		return nil, fmt.Errorf("invalid task catalog: %w", err)
	}

	return cfg, nil
}

// DefaultPaths returns the conventional global and project config paths.
// Global: ~/.tower/config.json
// Project: .tower/config.json (relative to cwd)
func DefaultPaths() (globalPath, projectPath string, err error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".tower", "config.json"), filepath.Join(".tower", "config.json"), nil
}

// fileConfig mirrors GameConfig with pointers so absent scalar fields keep
// the values of lower layers.
type fileConfig struct {
	GatingTaskID  *int                `json:"gating_task_id"`
	RespawnItemID *int                `json:"respawn_item_id"`
	DatabasePath  *string             `json:"database_path"`
	AssetRoot     *string             `json:"asset_root"`
	MaskFadeMS    *int                `json:"mask_fade_ms"`
	MetricsAddr   *string             `json:"metrics_addr"`
	Floors        map[int]FloorConfig `json:"floors"`
	Music         map[int]string      `json:"music"`
	Tasks         []TaskConfig        `json:"tasks"`
	Log           *fileLogConfig      `json:"log"`
	Assets        *fileAssetConfig    `json:"assets"`
}

type fileLogConfig struct {
	Level *string `json:"level"`
	JSON  *bool   `json:"json"`
	File  *string `json:"file"`
}

type fileAssetConfig struct {
	CacheSize   *int `json:"cache_size"`
	Concurrency *int `json:"concurrency"`
}

// mergeConfigFile reads a JSON config file and merges it into the base config.
// Missing files are silently skipped. Malformed JSON returns an error.
func mergeConfigFile(base *GameConfig, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil // Missing file is not an error
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var loaded fileConfig
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	setIf(&base.GatingTaskID, loaded.GatingTaskID)
	setIf(&base.RespawnItemID, loaded.RespawnItemID)
	setIf(&base.DatabasePath, loaded.DatabasePath)
	setIf(&base.AssetRoot, loaded.AssetRoot)
	setIf(&base.MaskFadeMS, loaded.MaskFadeMS)
	setIf(&base.MetricsAddr, loaded.MetricsAddr)

	// Maps merge per key
	for id, floor := range loaded.Floors {
		base.Floors[id] = floor
	}
	for scene, track := range loaded.Music {
		base.Music[scene] = track
	}

	// A task list replaces the lower layer's list as a whole
	if loaded.Tasks != nil {
		base.Tasks = loaded.Tasks
	}

	// Nested objects merge per field, like the top level
	if loaded.Log != nil {
		setIf(&base.Log.Level, loaded.Log.Level)
		setIf(&base.Log.JSON, loaded.Log.JSON)
		setIf(&base.Log.File, loaded.Log.File)
	}
	if loaded.Assets != nil {
		setIf(&base.Assets.CacheSize, loaded.Assets.CacheSize)
		setIf(&base.Assets.Concurrency, loaded.Assets.Concurrency)
	}

	return nil
}

func applyEnv(cfg *GameConfig) error {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if overrides.DatabasePath != "" {
		cfg.DatabasePath = overrides.DatabasePath
	}
	if overrides.AssetRoot != "" {
		cfg.AssetRoot = overrides.AssetRoot
	}
	if overrides.LogLevel != "" {
		cfg.Log.Level = overrides.LogLevel
	}
	if overrides.MetricsAddr != "" {
		cfg.MetricsAddr = overrides.MetricsAddr
	}
	setIf(&cfg.Log.JSON, overrides.LogJSON)
	setIf(&cfg.GatingTaskID, overrides.GatingTaskID)
	return nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
