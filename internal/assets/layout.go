package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Nodes every tower needs regardless of its floors.
var requiredNodes = []string{
	"prefabs/game/home_bg",
	"prefabs/game/tower_bg",
	"prefabs/game/preface",
}

// EnsureLayout creates placeholder content for missing floors and nodes so
// a fresh asset root is playable. Existing files are left alone.
func EnsureLayout(root string, floorIDs []int) error {
	for _, id := range floorIDs {
		path := filepath.Join(root, "floors", strconv.Itoa(id), "map.json")
		if err := writeIfMissing(path, fmt.Sprintf(`{"floor":%d}`, id)); err != nil {
			return err
		}
	}
	for _, node := range requiredNodes {
		path := filepath.Join(root, filepath.FromSlash(node)+".json")
		if err := writeIfMissing(path, fmt.Sprintf(`{"node":%q}`, filepath.Base(node))); err != nil {
			return err
		}
	}
	return nil
}

func writeIfMissing(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
