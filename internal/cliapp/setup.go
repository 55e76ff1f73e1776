package cliapp

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/wricardo/aitown/internal/aitown"
	"github.com/wricardo/aitown/internal/config"
	"github.com/wricardo/aitown/internal/engine"
	"github.com/wricardo/aitown/internal/engineclock"
	"github.com/wricardo/aitown/internal/store"
)

// runtime bundles the collaborators one process needs to drive the
// engine: the in-memory store collections, the config manager, and the
// engine/world pair wired together (§5: one writer per engine). The
// single store.Transactor is held by the engine only; World is not given
// one, and its per-step writes run inside the engine's step transaction.
type runtime struct {
	maps   *config.Manager
	clock  *engineclock.Clock
	tx     *store.MemTransactor
	sched  *store.MemScheduler
	world  *aitown.World
	engine *engine.Engine
	log    *log.Logger
}

// newRuntime wires a fresh in-memory store, config manager rooted at
// mapsDir, and an Engine/World pair, the way main()'s
// initializeServices wired the teacher's config/session/service layer.
func newRuntime(mapsDir string, logger *log.Logger) (*runtime, error) {
	if logger == nil {
		logger = log.Default()
	}

	maps, err := config.NewManager(mapsDir, config.EngineConfig{})
	if err != nil {
		return nil, err
	}

	collections := aitown.Collections{
		Worlds:        store.NewMemCollection[aitown.WorldDoc](),
		Players:       store.NewMemCollection[aitown.Player](),
		Locations:     store.NewMemCollection[aitown.Location](),
		Conversations: store.NewMemCollection[aitown.Conversation](),
		Members:       store.NewMemCollection[aitown.ConversationMember](),
		Messages:      store.NewMemCollection[aitown.Message](),
	}
	world := aitown.New(collections, maps, logger.With("component", "aitown"))

	clock := engineclock.NewReal()
	tx := store.NewMemTransactor()
	sched := store.NewMemScheduler()

	eng := engine.New(
		store.NewMemCollection[engine.Doc](),
		store.NewMemCollection[engine.Input](),
		tx,
		sched,
		clock,
		world,
		logger.With("component", "engine"),
	)

	return &runtime{
		maps:   maps,
		clock:  clock,
		tx:     tx,
		sched:  sched,
		world:  world,
		engine: eng,
		log:    logger,
	}, nil
}

// provisionWorld registers a fresh World/Engine pairing against mapName
// (falling back to the manager's default map when empty) and returns
// its world and engine ids.
func (rt *runtime) provisionWorld(ctxName string, mapName string) (worldID, engineID string, err error) {
	worldID = ctxName + "-world"
	engineID = ctxName + "-engine"

	if mapName == "" {
		mapName = rt.maps.Default().ID
	}
	if _, err := rt.maps.LoadMap(mapName); err != nil {
		return "", "", err
	}

	ctx := context.Background()
	if err := rt.engine.Create(ctx, engineID); err != nil {
		return "", "", err
	}
	if err := rt.world.RegisterWorld(ctx, worldID, engineID, mapName, true); err != nil {
		return "", "", err
	}
	return worldID, engineID, nil
}
