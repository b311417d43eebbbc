package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name         string
		global       string
		project      string
		expectGating int
		expectDB     string
		expectFloors int
		expectTasks  int
		expectScene3 int
		expectTrack0 string
		expectError  bool
	}{
		{
			name:         "No config files - returns defaults",
			expectGating: 1,
			expectDB:     "profile.db",
			expectFloors: 4,
			expectTasks:  3,
			expectScene3: 2,
			expectTrack0: "home",
		},
		{
			name:         "Global only - adds floor and keeps defaults",
			global:       `{"floors": {"4": {"scene_id": 3}}, "database_path": "/data/tower.db"}`,
			expectGating: 1,
			expectDB:     "/data/tower.db",
			expectFloors: 5,
			expectTasks:  3,
			expectScene3: 2,
			expectTrack0: "home",
		},
		{
			name:         "Project overrides global",
			global:       `{"gating_task_id": 5, "music": {"0": "global-home"}}`,
			project:      `{"gating_task_id": 7, "floors": {"3": {"scene_id": 9}}}`,
			expectGating: 7,
			expectDB:     "profile.db",
			expectFloors: 4,
			expectTasks:  3,
			expectScene3: 9,
			expectTrack0: "global-home",
		},
		{
			name:         "Task list replaces defaults",
			project:      `{"tasks": [{"id": 1, "name": "only"}]}`,
			expectGating: 1,
			expectDB:     "profile.db",
			expectFloors: 4,
			expectTasks:  1,
			expectScene3: 2,
			expectTrack0: "home",
		},
		{
			name:        "Cyclic tasks rejected",
			project:     `{"tasks": [{"id": 1, "name": "a", "after": [2]}, {"id": 2, "name": "b", "after": [1]}]}`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()

			globalPath := ""
			if tt.global != "" {
				globalPath = writeFile(t, tmpDir, "global.json", tt.global)
			}
			projectPath := ""
			if tt.project != "" {
				projectPath = writeFile(t, tmpDir, "project.json", tt.project)
			}

			cfg, err := Load(globalPath, projectPath)
			if tt.expectError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if cfg.GatingTaskID != tt.expectGating {
				t.Errorf("gating task = %d, want %d", cfg.GatingTaskID, tt.expectGating)
			}
			if cfg.DatabasePath != tt.expectDB {
				t.Errorf("database path = %q, want %q", cfg.DatabasePath, tt.expectDB)
			}
			if got := len(cfg.Floors); got != tt.expectFloors {
				t.Errorf("floors count = %d, want %d", got, tt.expectFloors)
			}
			if got := len(cfg.Tasks); got != tt.expectTasks {
				t.Errorf("tasks count = %d, want %d", got, tt.expectTasks)
			}
			if got := cfg.SceneID(3); got != tt.expectScene3 {
				t.Errorf("SceneID(3) = %d, want %d", got, tt.expectScene3)
			}
			if got := cfg.Music[0]; got != tt.expectTrack0 {
				t.Errorf("music[0] = %q, want %q", got, tt.expectTrack0)
			}
		})
	}
}

func TestLoad_MalformedJSON(t *testing.T) {
	tmpDir := t.TempDir()
	globalPath := writeFile(t, tmpDir, "global.json", "{invalid json")

	if _, err := Load(globalPath, ""); err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
}

func TestLoad_MissingFilesNotError(t *testing.T) {
	cfg, err := Load("/nonexistent/global.json", "/nonexistent/project.json")
	if err != nil {
		t.Fatalf("expected no error for missing files, got: %v", err)
	}
	if cfg.MaskFadeMS != 500 {
		t.Errorf("mask fade = %d, want default 500", cfg.MaskFadeMS)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	projectPath := writeFile(t, tmpDir, "project.json", `{"database_path": "file.db", "log": {"level": "warn"}}`)

	t.Setenv("TOWER_DB_PATH", "/env/profile.db")
	t.Setenv("TOWER_LOG_LEVEL", "debug")
	t.Setenv("TOWER_LOG_JSON", "true")
	t.Setenv("TOWER_GATING_TASK", "0")

	cfg, err := Load("", projectPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabasePath != "/env/profile.db" {
		t.Errorf("database path = %q, want env value", cfg.DatabasePath)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.JSON {
		t.Errorf("log = %+v, want debug/json", cfg.Log)
	}
	// An explicit zero from the environment still overrides
	if cfg.GatingTaskID != 0 {
		t.Errorf("gating task = %d, want 0", cfg.GatingTaskID)
	}

	t.Setenv("TOWER_GATING_TASK", "not-a-number")
	if _, err := Load("", projectPath); err == nil {
		t.Error("expected error for malformed env value")
	}
}

func TestNarrativeForFloor(t *testing.T) {
	cfg := DefaultConfig()

	n, ok := cfg.NarrativeForFloor(3)
	if !ok || n.Text == "" || n.TitleArt != "preface_title_3" {
		t.Errorf("NarrativeForFloor(3) = (%+v, %v)", n, ok)
	}
	if _, ok := cfg.NarrativeForFloor(2); ok {
		t.Error("floor 2 has no narrative configured")
	}
	if _, ok := cfg.NarrativeForFloor(42); ok {
		t.Error("unknown floor reported a narrative")
	}

	cfg.Floors[2] = FloorConfig{SceneID: 1, Narrative: &NarrativeConfig{}}
	if _, ok := cfg.NarrativeForFloor(2); ok {
		t.Error("empty narrative text should count as no narrative")
	}
}

func TestLoad_NestedFieldsLayer(t *testing.T) {
	tmpDir := t.TempDir()
	globalPath := writeFile(t, tmpDir, "global.json", `{"log": {"json": true, "file": "/var/log/tower.log"}, "assets": {"cache_size": 16}}`)
	projectPath := writeFile(t, tmpDir, "project.json", `{"log": {"level": "debug"}, "assets": {"concurrency": 2}}`)

	cfg, err := Load(globalPath, projectPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"log level from project", cfg.Log.Level, "debug"},
		{"log json kept from global", cfg.Log.JSON, true},
		{"log file kept from global", cfg.Log.File, "/var/log/tower.log"},
		{"cache size from global", cfg.Assets.CacheSize, 16},
		{"concurrency from project", cfg.Assets.Concurrency, 2},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	// An explicit false in a higher layer still wins
	projectPath = writeFile(t, tmpDir, "project.json", `{"log": {"json": false}}`)
	cfg, err = Load(globalPath, projectPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Log.JSON {
		t.Error("project json=false did not override global json=true")
	}
}
