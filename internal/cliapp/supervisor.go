package cliapp

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/wricardo/aitown/internal/agent"
	"github.com/wricardo/aitown/internal/aitown"
	"github.com/wricardo/aitown/internal/engine"
	"github.com/wricardo/aitown/internal/llmclient"
)

// agentPollInterval is how often the supervisor checks for newly
// joined players that don't yet have a running agent loop.
const agentPollInterval = 2 * time.Second

// agentSupervisor spawns and tracks one agent.Agent per active player
// in a world, so C7's decision loop actually drives simulated
// participants instead of only being reachable through raw MCP/engine
// input calls from an external caller.
type agentSupervisor struct {
	world    *aitown.World
	engine   *engine.Engine
	llm      *llmclient.Client
	log      *log.Logger
	worldID  string
	engineID string

	mu     sync.Mutex
	agents map[string]context.CancelFunc
}

func newAgentSupervisor(world *aitown.World, eng *engine.Engine, llm *llmclient.Client, worldID, engineID string, logger *log.Logger) *agentSupervisor {
	return &agentSupervisor{
		world:    world,
		engine:   eng,
		llm:      llm,
		log:      logger,
		worldID:  worldID,
		engineID: engineID,
		agents:   make(map[string]context.CancelFunc),
	}
}

// Run polls for active players lacking a running agent loop and spawns
// one for each, until ctx is cancelled.
func (s *agentSupervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(agentPollInterval)
	defer ticker.Stop()
	for {
		s.reconcile(ctx)
		select {
		case <-ctx.Done():
			s.stopAll()
			return
		case <-ticker.C:
		}
	}
}

func (s *agentSupervisor) reconcile(ctx context.Context) {
	players, err := s.world.ActivePlayers(ctx, s.worldID)
	if err != nil {
		s.log.Error("agent supervisor: listing active players failed", "err", err)
		return
	}

	live := make(map[string]struct{}, len(players))
	for _, p := range players {
		live[p.ID] = struct{}{}
		s.spawn(ctx, p)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for playerID, cancel := range s.agents {
		if _, ok := live[playerID]; !ok {
			cancel()
			delete(s.agents, playerID)
		}
	}
}

// spawn starts an agent loop for player if one isn't already running.
func (s *agentSupervisor) spawn(ctx context.Context, player aitown.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[player.ID]; ok {
		return
	}

	agentCtx, cancel := context.WithCancel(ctx)
	s.agents[player.ID] = cancel

	identity := agent.Identity{Name: player.Name, Description: player.Description}
	ag := agent.New(s.worldID, player.ID, s.engineID, identity, s.world, s.engine, s.llm, nil, s.log.With("agent", player.Name))

	s.log.Info("agent loop spawned", "player", player.ID, "name", player.Name)
	go ag.Run(agentCtx)
}

func (s *agentSupervisor) stopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cancel := range s.agents {
		cancel()
	}
	s.agents = make(map[string]context.CancelFunc)
}
