// Package assets loads floor bundles and scene nodes from an asset directory.
//
// Layout under the root:
//
//	floors/<id>/*        files preloaded for a floor
//	<path>.json          a scene node addressed by its path, e.g. prefabs/game/tower_bg.json
package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/tower/internal/transition"
)

// ErrNotFound is returned when a floor bundle or node does not exist.
var ErrNotFound = errors.New("asset not found")

const (
	defaultCacheSize   = 8
	defaultConcurrency = 4
)

// Bundle is the set of files preloaded for one floor.
type Bundle struct {
	FloorID int
	Files   map[string][]byte // file name -> contents
}

// Option configures an FSLoader.
type Option func(*FSLoader)

// WithCacheSize sets how many floor bundles stay cached.
func WithCacheSize(n int) Option {
	return func(l *FSLoader) {
		if n > 0 {
			l.cacheSize = n
		}
	}
}

// WithConcurrency limits parallel file reads within one floor.
func WithConcurrency(n int) Option {
	return func(l *FSLoader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// FSLoader implements transition.AssetLoader on top of a directory.
type FSLoader struct {
	root        string
	cacheSize   int
	concurrency int
	bundles     *lru.Cache[int, *Bundle]
}

// NewFSLoader creates a loader rooted at dir.
func NewFSLoader(root string, opts ...Option) (*FSLoader, error) {
	l := &FSLoader{
		root:        root,
		cacheSize:   defaultCacheSize,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(l)
	}

	cache, err := lru.New[int, *Bundle](l.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create bundle cache: %w", err)
	}
	l.bundles = cache
	return l, nil
}

// LoadFloorAssets reads every file of the floor's bundle into the cache.
// Cached floors return immediately.
func (l *FSLoader) LoadFloorAssets(ctx context.Context, floorID int) error {
	if l.bundles.Contains(floorID) {
		return nil
	}

	dir := filepath.Join(l.root, "floors", strconv.Itoa(floorID))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("floor %d: %w", floorID, ErrNotFound)
		}
		return fmt.Errorf("failed to list floor %d assets: %w", floorID, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	contents := make([][]byte, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", name, err)
			}
			contents[i] = data
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("floor %d: %w", floorID, err)
	}

	bundle := &Bundle{FloorID: floorID, Files: make(map[string][]byte, len(names))}
	for i, name := range names {
		bundle.Files[name] = contents[i]
	}
	l.bundles.Add(floorID, bundle)
	return nil
}

// Bundle returns a cached floor bundle.
func (l *FSLoader) Bundle(floorID int) (*Bundle, bool) {
	return l.bundles.Get(floorID)
}

// LoadNode reads the node file for path.
func (l *FSLoader) LoadNode(ctx context.Context, path string) (transition.Node, error) {
	if err := ctx.Err(); err != nil {
		return transition.Node{}, err
	}

	clean := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return transition.Node{}, fmt.Errorf("invalid node path %q", path)
	}

	data, err := os.ReadFile(filepath.Join(l.root, clean+".json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return transition.Node{}, fmt.Errorf("node %s: %w", path, ErrNotFound)
		}
		return transition.Node{}, fmt.Errorf("failed to read node %s: %w", path, err)
	}

	return transition.Node{
		Path: path,
		Name: filepath.Base(clean),
		Data: data,
	}, nil
}
