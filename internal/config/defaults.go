package config

// DefaultConfig returns the default configuration with the starter tower.
func DefaultConfig() *GameConfig {
	return &GameConfig{
		GatingTaskID:  1,
		RespawnItemID: 900,
		DatabasePath:  "profile.db",
		AssetRoot:     "assets",
		Assets: AssetConfig{
			CacheSize:   8,
			Concurrency: 4,
		},
		MaskFadeMS:    500,
		Floors: map[int]FloorConfig{
			0: {SceneID: 0},
			1: {SceneID: 1, Narrative: &NarrativeConfig{
				Text:     "The lower halls still smell of smoke.",
				TitleArt: "preface_title_1",
				IconArt:  "preface_icon_1",
			}},
			2: {SceneID: 1},
			3: {SceneID: 2, Narrative: &NarrativeConfig{
				Text:     "Water drips from the vaulted ceiling.",
				TitleArt: "preface_title_3",
				IconArt:  "preface_icon_3",
			}},
		},
		Music: map[int]string{
			0: "home",
			1: "tower-low",
			2: "tower-flooded",
		},
		Tasks: []TaskConfig{
			{ID: 1, Name: "Escort the old guide"},
			{ID: 2, Name: "Recover the bronze key", RequiredItem: 101, After: []int{1}},
			{ID: 3, Name: "Bring back the lantern", RequiredItem: 102, After: []int{1}},
		},
		Log: LogConfig{
			Level: "info",
			File:  "tower.log",
		},
	}
}
