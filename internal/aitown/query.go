package aitown

import (
	"context"
	"fmt"
	"sort"

	"github.com/wricardo/aitown/internal/geom"
)

// PlayerSnapshot is a read-only view of a player and its location,
// returned by query helpers that run outside of a tick transaction (an
// agent's world observation: the agent observes world state
// through queries.
type PlayerSnapshot struct {
	Player   Player
	Location Location
}

// GetPlayer returns a player and its location for read-only observation.
func (w *World) GetPlayer(ctx context.Context, playerID string) (PlayerSnapshot, error) {
	p, ok, err := w.players.Get(ctx, playerID)
	if err != nil {
		return PlayerSnapshot{}, err
	}
	if !ok {
		return PlayerSnapshot{}, fmt.Errorf("aitown: %w: player %q", ErrInvalidID, playerID)
	}
	loc, ok, err := w.locations.Get(ctx, p.LocationID)
	if err != nil {
		return PlayerSnapshot{}, err
	}
	if !ok {
		return PlayerSnapshot{}, fmt.Errorf("aitown: %w: location %q", ErrInvalidID, p.LocationID)
	}
	return PlayerSnapshot{Player: p, Location: loc}, nil
}

// LocalView is the bounded-window feature
// (generalized from the teacher's GetLocalView): the walkable grid and
// nearby active players within radius tiles of a player, small enough
// to serialize into an LLM prompt instead of the whole map.
type LocalView struct {
	Center   geom.Point       `json:"center"`
	Walkable [][]bool         `json:"walkable"`
	Players  []PlayerSnapshot `json:"players"`
}

// LocalView returns the bounded window of map + nearby players around
// playerID, used by the agent loop to keep LLM prompts small instead of
// serializing the whole map.
func (w *World) LocalView(ctx context.Context, playerID string, radius int) (LocalView, error) {
	self, err := w.GetPlayer(ctx, playerID)
	if err != nil {
		return LocalView{}, err
	}
	center := geom.Point{X: int(self.Location.X), Y: int(self.Location.Y)}

	worldDocs, err := w.worlds.Query(ctx, func(_ string, d WorldDoc) bool { return d.ID == self.Player.WorldID })
	if err != nil {
		return LocalView{}, err
	}
	var worldDoc WorldDoc
	for _, d := range worldDocs {
		worldDoc = d
		break
	}
	mapDoc, err := w.maps.LoadMap(worldDoc.MapID)
	if err != nil {
		return LocalView{}, err
	}
	grid := mapDoc.Grid()

	minX, maxX := center.X-radius, center.X+radius
	minY, maxY := center.Y-radius, center.Y+radius
	width := maxX - minX + 1
	height := maxY - minY + 1
	walkable := make([][]bool, height)
	for row := range walkable {
		walkable[row] = make([]bool, width)
		y := minY + row
		for col := range walkable[row] {
			x := minX + col
			walkable[row][col] = grid.IsWalkable(geom.Point{X: x, Y: y})
		}
	}

	allPlayers, err := w.players.Query(ctx, func(_ string, p Player) bool {
		return p.Active && p.WorldID == self.Player.WorldID && p.ID != playerID
	})
	if err != nil {
		return LocalView{}, err
	}
	var nearby []PlayerSnapshot
	for _, p := range allPlayers {
		loc, ok, err := w.locations.Get(ctx, p.LocationID)
		if err != nil || !ok {
			continue
		}
		if loc.Position().Distance(self.Location.Position()) <= float64(radius) {
			nearby = append(nearby, PlayerSnapshot{Player: p, Location: loc})
		}
	}

	return LocalView{Center: center, Walkable: walkable, Players: nearby}, nil
}

// ActivePlayers returns every active player in worldID, used by the
// supervisor that spawns one agent loop (C7) per joined player.
func (w *World) ActivePlayers(ctx context.Context, worldID string) ([]Player, error) {
	all, err := w.players.Query(ctx, func(_ string, p Player) bool {
		return p.Active && p.WorldID == worldID
	})
	if err != nil {
		return nil, err
	}
	out := make([]Player, 0, len(all))
	for _, p := range all {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PlayerMemberships returns a player's ConversationMember records
// across every conversation, used by the agent loop to discover
// pending invites and its current conversation.
func (w *World) PlayerMemberships(ctx context.Context, playerID string) ([]ConversationMember, error) {
	return w.members.Query(ctx, func(_ string, m ConversationMember) bool { return m.PlayerID == playerID })
}

// GetConversation returns a conversation by id.
func (w *World) GetConversation(ctx context.Context, conversationID string) (Conversation, error) {
	c, ok, err := w.conversations.Get(ctx, conversationID)
	if err != nil {
		return Conversation{}, err
	}
	if !ok {
		return Conversation{}, fmt.Errorf("aitown: %w: conversation %q", ErrInvalidID, conversationID)
	}
	return c, nil
}

// ConversationMembers returns every member record for a conversation.
func (w *World) ConversationMembers(ctx context.Context, conversationID string) ([]ConversationMember, error) {
	return w.members.Query(ctx, func(_ string, m ConversationMember) bool { return m.ConversationID == conversationID })
}

// RecentMessages returns up to n most-recent messages for a
// conversation, most recent first — used by clients and by the agent
// loop building "recent messages" prompt context.
func (w *World) RecentMessages(ctx context.Context, conversationID string, n int) ([]Message, error) {
	all, err := w.messages.Query(ctx, func(_ string, m Message) bool { return m.ConversationID == conversationID })
	if err != nil {
		return nil, err
	}
	out := make([]Message, 0, len(all))
	for _, m := range all {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ts > out[j].Ts })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}
