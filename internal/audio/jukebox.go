// Package audio plays sound effects and per-scene music tracks.
package audio

import (
	"io"
	"sync"

	charmlog "github.com/charmbracelet/log"
)

// maxEffects bounds the recent-effect history.
const maxEffects = 8

// Jukebox maps scenes to music tracks and records what is playing.
// Calls never block and never fail; unknown scenes stop the music.
type Jukebox struct {
	mu      sync.Mutex
	tracks  map[int]string
	current string
	effects []string
	logger  *charmlog.Logger
}

// NewJukebox creates a jukebox with a scene id -> track name map.
func NewJukebox(tracks map[int]string, logger *charmlog.Logger) *Jukebox {
	if logger == nil {
		logger = charmlog.New(io.Discard)
	}
	copied := make(map[int]string, len(tracks))
	for scene, track := range tracks {
		copied[scene] = track
	}
	return &Jukebox{
		tracks: copied,
		logger: logger.WithPrefix("audio"),
	}
}

// PlayEffect plays a one-shot effect.
func (j *Jukebox) PlayEffect(name string) {
	j.mu.Lock()
	j.effects = append(j.effects, name)
	if len(j.effects) > maxEffects {
		j.effects = j.effects[len(j.effects)-maxEffects:]
	}
	j.mu.Unlock()

	j.logger.Debug("effect", "name", name)
}

// PlayMusicForScene switches to the scene's track. The same track keeps playing.
func (j *Jukebox) PlayMusicForScene(sceneID int) {
	j.mu.Lock()
	track, ok := j.tracks[sceneID]
	if !ok {
		j.mu.Unlock()
		j.logger.Warn("no track for scene", "scene", sceneID)
		j.StopMusic()
		return
	}
	if track == j.current {
		j.mu.Unlock()
		return
	}
	j.current = track
	j.mu.Unlock()

	j.logger.Info("music", "scene", sceneID, "track", track)
}

// StopMusic silences the current track.
func (j *Jukebox) StopMusic() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.current = ""
}

// Current returns the playing track, or "" when silent.
func (j *Jukebox) Current() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.current
}

// Effects returns the most recent effects, oldest first.
func (j *Jukebox) Effects() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.effects))
	copy(out, j.effects)
	return out
}

// LastEffect returns the most recent effect, or "".
func (j *Jukebox) LastEffect() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.effects) == 0 {
		return ""
	}
	return j.effects[len(j.effects)-1]
}
