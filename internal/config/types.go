package config

import (
	"github.com/aristath/tower/internal/quest"
	"github.com/aristath/tower/internal/transition"
)

// NarrativeConfig is the story popup shown when ascending into a floor.
type NarrativeConfig struct {
	Text     string `json:"text"`
	TitleArt string `json:"title_art,omitempty"`
	IconArt  string `json:"icon_art,omitempty"`
}

// FloorConfig defines per-floor presentation.
type FloorConfig struct {
	SceneID   int              `json:"scene_id"`
	Narrative *NarrativeConfig `json:"narrative,omitempty"`
}

// TaskConfig defines one quest task.
type TaskConfig struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	RequiredItem int    `json:"required_item,omitempty"` // 0 means no item objective
	After        []int  `json:"after,omitempty"`         // prerequisite task ids
}

// LogConfig selects log level and format.
type LogConfig struct {
	Level string `json:"level,omitempty"` // debug, info, warn, error
	JSON  bool   `json:"json,omitempty"`
	File  string `json:"file,omitempty"` // log destination while the TUI owns the terminal
}

// AssetConfig tunes the floor asset loader.
type AssetConfig struct {
	CacheSize   int `json:"cache_size"`  // floor bundles kept in memory
	Concurrency int `json:"concurrency"` // parallel file reads per floor
}

// GameConfig is the top-level configuration.
type GameConfig struct {
	GatingTaskID  int                 `json:"gating_task_id"`  // task that must End before floors change
	RespawnItemID int                 `json:"respawn_item_id"` // bag item that revives in place
	DatabasePath  string              `json:"database_path"`
	AssetRoot     string              `json:"asset_root"`
	Assets        AssetConfig         `json:"assets"`
	MaskFadeMS    int                 `json:"mask_fade_ms"`
	MetricsAddr   string              `json:"metrics_addr,omitempty"` // empty disables the metrics endpoint
	Floors        map[int]FloorConfig `json:"floors"`
	Music         map[int]string      `json:"music"` // scene id -> track name
	Tasks         []TaskConfig        `json:"tasks"`
	Log           LogConfig           `json:"log"`
}

// SceneID returns the scene configured for a floor. Unlisted floors use scene 0.
func (c *GameConfig) SceneID(floorID int) int {
	return c.Floors[floorID].SceneID
}

// NarrativeForFloor returns the floor's story popup, if any.
func (c *GameConfig) NarrativeForFloor(floorID int) (transition.Narrative, bool) {
	floor, ok := c.Floors[floorID]
	if !ok || floor.Narrative == nil || floor.Narrative.Text == "" {
		return transition.Narrative{}, false
	}
	return transition.Narrative{
		Text:     floor.Narrative.Text,
		TitleArt: floor.Narrative.TitleArt,
		IconArt:  floor.Narrative.IconArt,
	}, true
}

// Catalog builds the validated quest catalog from Tasks.
func (c *GameConfig) Catalog() (*quest.Catalog, error) {
	defs := make([]quest.Definition, 0, len(c.Tasks))
	for _, t := range c.Tasks {
		def := quest.Definition{
			ID:           quest.TaskID(t.ID),
			Name:         t.Name,
			RequiredItem: quest.ItemID(t.RequiredItem),
		}
		for _, dep := range t.After {
			def.After = append(def.After, quest.TaskID(dep))
		}
		defs = append(defs, def)
	}
	return quest.NewCatalog(defs)
}
