package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/aitown/internal/pathfind"
)

var (
	// ErrMapNotFound mirrors the teacher's ErrConfigNotFound for the map
	// document kind.
	ErrMapNotFound = errors.New("config: map not found")
	// ErrInvalidMap is returned when a map document fails validation.
	ErrInvalidMap = errors.New("config: invalid map")
)

// MapDoc is the static tile grid plus object-occupancy grid described in
// Objects[y][x] of -1 means walkable, any other value blocks
// the cell. Tiles is a purely cosmetic ground layer; only Objects feeds
// the pathfinder.
type MapDoc struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Tiles   [][]int `json:"tiles,omitempty"`
	Objects [][]int `json:"objects"`
}

// Grid builds the pathfind.Grid walkability layer from the object layer.
func (m *MapDoc) Grid() *pathfind.Grid {
	grid := pathfind.NewGrid(m.Width, m.Height)
	for y, row := range m.Objects {
		for x, v := range row {
			if v != -1 {
				grid.Block(x, y)
			}
		}
	}
	return grid
}

// Validate checks grid consistency: rectangular, in-bounds dimensions,
// and at least one walkable cell (mirrors the teacher's GameConfig
// validation in game/engine for the analogous grid-layout checks).
func (m *MapDoc) Validate() error {
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("%w: width/height must be positive", ErrInvalidMap)
	}
	if len(m.Objects) != m.Height {
		return fmt.Errorf("%w: objects has %d rows, want %d", ErrInvalidMap, len(m.Objects), m.Height)
	}
	walkable := 0
	for y, row := range m.Objects {
		if len(row) != m.Width {
			return fmt.Errorf("%w: objects row %d has %d cols, want %d", ErrInvalidMap, y, len(row), m.Width)
		}
		for _, v := range row {
			if v == -1 {
				walkable++
			}
		}
	}
	if walkable == 0 {
		return fmt.Errorf("%w: map has no walkable cells", ErrInvalidMap)
	}
	return nil
}

// EngineConfig holds the engine's operational constants, overridable per
// deployment the same way the teacher's GameConfig overrides per-game
// battery/grid parameters. Zero-value fields fall back to the package
// defaults in Defaults().
type EngineConfig struct {
	Tick                      time.Duration `json:"tick,omitempty"`
	StepInterval              time.Duration `json:"stepInterval,omitempty"`
	MaxStep                   time.Duration `json:"maxStep,omitempty"`
	InputDelay                time.Duration `json:"inputDelay,omitempty"`
	PathfindingTimeout        time.Duration `json:"pathfindingTimeout,omitempty"`
	PathfindingBackoff        time.Duration `json:"pathfindingBackoff,omitempty"`
	ConversationDistance      float64       `json:"conversationDistance,omitempty"`
	CollisionThreshold        float64       `json:"collisionThreshold,omitempty"`
	TypingTimeout             time.Duration `json:"typingTimeout,omitempty"`
	IdleWorldTimeout          time.Duration `json:"idleWorldTimeout,omitempty"`
	WorldHeartbeatInterval    time.Duration `json:"worldHeartbeatInterval,omitempty"`
	MaxConversationDuration   time.Duration `json:"maxConversationDuration,omitempty"`
	MaxConversationMessages   int           `json:"maxConversationMessages,omitempty"`
}

// Defaults returns the built-in operational constants.
func Defaults() EngineConfig {
	return EngineConfig{
		Tick:                    16 * time.Millisecond,
		StepInterval:            1 * time.Second,
		MaxStep:                 600 * time.Second,
		InputDelay:              1 * time.Second,
		PathfindingTimeout:      60 * time.Second,
		PathfindingBackoff:      1 * time.Second,
		ConversationDistance:    1.3,
		CollisionThreshold:      0.75,
		TypingTimeout:           15 * time.Second,
		IdleWorldTimeout:        300 * time.Second,
		WorldHeartbeatInterval:  60 * time.Second,
		MaxConversationDuration: 20 * time.Minute,
		MaxConversationMessages: 8,
	}
}

// merge overlays non-zero fields of o onto the receiver's defaults.
func (c EngineConfig) merge(o EngineConfig) EngineConfig {
	out := c
	if o.Tick != 0 {
		out.Tick = o.Tick
	}
	if o.StepInterval != 0 {
		out.StepInterval = o.StepInterval
	}
	if o.MaxStep != 0 {
		out.MaxStep = o.MaxStep
	}
	if o.InputDelay != 0 {
		out.InputDelay = o.InputDelay
	}
	if o.PathfindingTimeout != 0 {
		out.PathfindingTimeout = o.PathfindingTimeout
	}
	if o.PathfindingBackoff != 0 {
		out.PathfindingBackoff = o.PathfindingBackoff
	}
	if o.ConversationDistance != 0 {
		out.ConversationDistance = o.ConversationDistance
	}
	if o.CollisionThreshold != 0 {
		out.CollisionThreshold = o.CollisionThreshold
	}
	if o.TypingTimeout != 0 {
		out.TypingTimeout = o.TypingTimeout
	}
	if o.IdleWorldTimeout != 0 {
		out.IdleWorldTimeout = o.IdleWorldTimeout
	}
	if o.WorldHeartbeatInterval != 0 {
		out.WorldHeartbeatInterval = o.WorldHeartbeatInterval
	}
	if o.MaxConversationDuration != 0 {
		out.MaxConversationDuration = o.MaxConversationDuration
	}
	if o.MaxConversationMessages != 0 {
		out.MaxConversationMessages = o.MaxConversationMessages
	}
	return out
}

// Manager loads and caches Map documents from a directory of JSON
// files, plus one operational EngineConfig, mirroring game/config.Manager's
// cache-with-default shape.
type Manager struct {
	mapsDir string

	mu          sync.RWMutex
	maps        map[string]*MapDoc
	defaultMap  *MapDoc
	engineCfg   EngineConfig
}

// NewManager creates a Manager rooted at mapsDir, loading engineOverrides
// on top of Defaults() and attempting to load "default.json" as the
// default map (falling back to a minimal built-in map, as the teacher
// falls back to createMinimalConfig).
func NewManager(mapsDir string, engineOverrides EngineConfig) (*Manager, error) {
	if _, err := os.Stat(mapsDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config: maps directory does not exist: %s", mapsDir)
	}
	m := &Manager{
		mapsDir:   mapsDir,
		maps:      make(map[string]*MapDoc),
		engineCfg: Defaults().merge(engineOverrides),
	}
	m.loadDefaultMap()
	return m, nil
}

// EngineConfig returns the effective operational constants.
func (m *Manager) EngineConfig() EngineConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.engineCfg
}

// LoadMap loads a map document by name (without ".json"), caching the
// result.
func (m *Manager) LoadMap(name string) (*MapDoc, error) {
	m.mu.RLock()
	if doc, ok := m.maps[name]; ok {
		m.mu.RUnlock()
		return doc, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if doc, ok := m.maps[name]; ok {
		return doc, nil
	}

	filename := name
	if !strings.HasSuffix(filename, ".json") {
		filename += ".json"
	}
	path := filepath.Join(m.mapsDir, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrMapNotFound
		}
		return nil, fmt.Errorf("config: reading map %q: %w", name, err)
	}

	var doc MapDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parsing map %q: %w", name, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	m.maps[name] = &doc
	return &doc, nil
}

// ListMaps returns every ".json" map file's basename, without extension.
func (m *Manager) ListMaps() ([]string, error) {
	entries, err := os.ReadDir(m.mapsDir)
	if err != nil {
		return nil, fmt.Errorf("config: reading maps directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	return names, nil
}

// Default returns the default map document.
func (m *Manager) Default() *MapDoc {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultMap
}

func (m *Manager) loadDefaultMap() {
	doc, err := m.LoadMap("default")
	if err == nil {
		m.mu.Lock()
		m.defaultMap = doc
		m.mu.Unlock()
		return
	}
	names, listErr := m.ListMaps()
	if listErr == nil && len(names) > 0 {
		if doc, err := m.LoadMap(names[0]); err == nil {
			m.mu.Lock()
			m.defaultMap = doc
			m.mu.Unlock()
			return
		}
	}
	m.mu.Lock()
	m.defaultMap = minimalMap()
	m.maps[m.defaultMap.ID] = m.defaultMap
	m.mu.Unlock()
}

// minimalMap is the built-in fallback when no map file can be loaded, a
// 5x5 open field mirroring the teacher's createMinimalConfig fallback.
func minimalMap() *MapDoc {
	objects := make([][]int, 5)
	for y := range objects {
		row := make([]int, 5)
		for x := range row {
			row[x] = -1
		}
		objects[y] = row
	}
	return &MapDoc{ID: "default", Name: "Open field", Width: 5, Height: 5, Objects: objects}
}
