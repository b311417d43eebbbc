package assets

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureLayout(t *testing.T) {
	root := t.TempDir()
	writeAsset(t, root, "floors/1/map.json", "custom")

	if err := EnsureLayout(root, []int{0, 1, 2}); err != nil {
		t.Fatalf("EnsureLayout: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "floors", "1", "map.json"))
	if err != nil || string(data) != "custom" {
		t.Errorf("existing file overwritten: %q, %v", data, err)
	}

	l, err := NewFSLoader(root)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, floor := range []int{0, 1, 2} {
		if err := l.LoadFloorAssets(ctx, floor); err != nil {
			t.Errorf("floor %d not loadable: %v", floor, err)
		}
	}
	for _, node := range requiredNodes {
		if _, err := l.LoadNode(ctx, node); err != nil {
			t.Errorf("node %s not loadable: %v", node, err)
		}
	}

	// Idempotent
	if err := EnsureLayout(root, []int{0, 1, 2}); err != nil {
		t.Errorf("second EnsureLayout: %v", err)
	}
}
