package agent

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"

	"github.com/wricardo/aitown/internal/aitown"
)

// Clock is the minimal time collaborator the loop needs; satisfied by
// internal/engineclock.Clock and by time.Now in production.
type Clock interface {
	NowMs() int64
}

// wallClock adapts time.Now to Clock for production use.
type wallClock struct{}

func (wallClock) NowMs() int64 { return time.Now().UnixMilli() }

// Agent is the cooperative decision task for one (worldId, playerId)
// pair.
type Agent struct {
	WorldID  string
	PlayerID string
	EngineID string
	Identity Identity

	world  WorldView
	engine InputSubmitter
	llm    ChatClient
	clock  Clock
	log    *log.Logger
	rng    *rand.Rand

	lastMessageAt         int64
	lastConversationStart int64
	peerCooldowns         map[string]int64

	wake chan struct{}
}

// New builds an Agent. clock defaults to the wall clock if nil; the
// agent's rng is always a source seeded from the current time.
func New(worldID, playerID, engineID string, identity Identity, world WorldView, eng InputSubmitter, llm ChatClient, clock Clock, logger *log.Logger) *Agent {
	if clock == nil {
		clock = wallClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Agent{
		WorldID:       worldID,
		PlayerID:      playerID,
		EngineID:      engineID,
		Identity:      identity,
		world:         world,
		engine:        eng,
		llm:           llm,
		clock:         clock,
		log:           logger,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		peerCooldowns: make(map[string]int64),
		wake:          make(chan struct{}, 1),
	}
}

// Notify schedules an early wake-up (an invite arrived, a conversation
// ended, the engine ticked past something the agent was waiting on).
// Non-blocking: if a wake is already pending, this is a no-op.
func (a *Agent) Notify() {
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// Run drives the agent loop until ctx is cancelled, waking on Notify or
// after AwkwardConversationTimeout, whichever comes first.
func (a *Agent) Run(ctx context.Context) {
	timer := time.NewTimer(AwkwardConversationTimeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.wake:
		case <-timer.C:
		}
		if err := a.Wake(ctx); err != nil {
			a.log.Error("agent wake failed", "player", a.PlayerID, "err", err)
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(AwkwardConversationTimeout)
	}
}

// Wake runs one decision cycle: read the world snapshot, then act
// according to the agent's current conversation membership.
func (a *Agent) Wake(ctx context.Context) error {
	memberships, err := a.world.PlayerMemberships(ctx, a.PlayerID)
	if err != nil {
		return err
	}
	active := latestActiveMembership(memberships)

	switch {
	case active != nil && active.Status == aitown.MemberParticipating:
		return a.handleConversationTurn(ctx, *active)
	case active != nil && active.Status == aitown.MemberWalkingOver:
		return nil
	case active != nil && active.Status == aitown.MemberInvited:
		return a.handleInvite(ctx, *active)
	default:
		return a.handleIdle(ctx)
	}
}

// latestActiveMembership returns the most recently invited non-left
// membership, or nil if the player isn't part of any live conversation.
func latestActiveMembership(memberships []aitown.ConversationMember) *aitown.ConversationMember {
	var best *aitown.ConversationMember
	for i := range memberships {
		m := memberships[i]
		if m.Status == aitown.MemberLeft {
			continue
		}
		if best == nil || m.InvitedAt > best.InvitedAt {
			best = &memberships[i]
		}
	}
	return best
}

func (a *Agent) submit(ctx context.Context, name string, args any) error {
	b, err := json.Marshal(args)
	if err != nil {
		return err
	}
	_, _, err = a.engine.InsertInput(ctx, a.EngineID, name, b)
	return err
}
