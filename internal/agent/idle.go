package agent

import (
	"context"

	"github.com/wricardo/aitown/internal/aitown"
)

type memberArgs struct {
	PlayerID       string `json:"playerId"`
	ConversationID string `json:"conversationId"`
}

// handleInvite implements step 3's accept-probability roll and step 4's
// auto-reject-on-timeout for a pending invite.
func (a *Agent) handleInvite(ctx context.Context, member aitown.ConversationMember) error {
	now := a.clock.NowMs()
	if now-member.InvitedAt > InviteTimeout.Milliseconds() {
		return a.submit(ctx, "rejectInvite", memberArgs{PlayerID: a.PlayerID, ConversationID: member.ConversationID})
	}
	if a.rng.Float64() < InviteAcceptProbability {
		return a.submit(ctx, "acceptInvite", memberArgs{PlayerID: a.PlayerID, ConversationID: member.ConversationID})
	}
	return nil
}

type moveToArgs struct {
	PlayerID string `json:"playerId"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
}

type startConversationArgs struct {
	PlayerID       string `json:"playerId"`
	TargetPlayerID string `json:"targetPlayerId"`
}

const wanderRadius = 6

// handleIdle implements step 3's wander/startConversation branch, taken
// when the agent has no pending invite or declined to accept one this
// wake.
func (a *Agent) handleIdle(ctx context.Context) error {
	view, err := a.world.LocalView(ctx, a.PlayerID, wanderRadius)
	if err != nil {
		return err
	}

	now := a.clock.NowMs()
	if now-a.lastConversationStart > ConversationCooldown.Milliseconds() {
		if target, ok := a.pickConversationTarget(view, now); ok {
			a.lastConversationStart = now
			a.peerCooldowns[target.Player.ID] = now
			return a.submit(ctx, "startConversation", startConversationArgs{
				PlayerID:       a.PlayerID,
				TargetPlayerID: target.Player.ID,
			})
		}
	}

	dest, ok := a.pickWanderDestination(view)
	if !ok {
		return nil
	}
	return a.submit(ctx, "moveTo", moveToArgs{PlayerID: a.PlayerID, X: dest.X, Y: dest.Y})
}

// pickConversationTarget returns a nearby player who isn't on this
// agent's per-peer cooldown, or ok=false if none qualifies.
func (a *Agent) pickConversationTarget(view aitown.LocalView, now int64) (aitown.PlayerSnapshot, bool) {
	for _, p := range view.Players {
		last, cooling := a.peerCooldowns[p.Player.ID]
		if cooling && now-last < PlayerConversationCooldown.Milliseconds() {
			continue
		}
		return p, true
	}
	return aitown.PlayerSnapshot{}, false
}

type tile struct{ X, Y int }

// pickWanderDestination picks a random walkable tile within the local
// view, never the agent's current position.
func (a *Agent) pickWanderDestination(view aitown.LocalView) (tile, bool) {
	var candidates []tile
	for row, cols := range view.Walkable {
		for col, walkable := range cols {
			if !walkable {
				continue
			}
			x := view.Center.X - wanderRadius + col
			y := view.Center.Y - wanderRadius + row
			if x == view.Center.X && y == view.Center.Y {
				continue
			}
			candidates = append(candidates, tile{X: x, Y: y})
		}
	}
	if len(candidates) == 0 {
		return tile{}, false
	}
	return candidates[a.rng.Intn(len(candidates))], true
}
