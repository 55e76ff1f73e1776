package aitown

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wricardo/aitown/internal/engine"
	"github.com/wricardo/aitown/internal/geom"
	"github.com/wricardo/aitown/internal/historical"
	"github.com/wricardo/aitown/internal/ids"
	"github.com/wricardo/aitown/internal/pathfind"
)

// ApplyInput implements engine.World: it dispatches a drained input by
// name to the matching handler. Every handler is total: domain
// failures become a ReturnValue of kind "error", never a Go error. Only
// a store/transaction failure (propagated from a table operation) is
// returned as a Go error, which aborts and retries the whole step.
func (w *World) ApplyInput(ctx context.Context, engineID string, in engine.Input) (engine.ReturnValue, error) {
	tx, err := w.loadTx(ctx, engineID)
	if err != nil {
		return engine.ReturnValue{}, err
	}

	var (
		value any
		hErr  error
		txErr error
	)
	now := in.ReceivedTs

	switch in.Name {
	case "join":
		value, hErr, txErr = tx.handleJoin(in.Args)
	case "leave":
		value, hErr, txErr = tx.handleLeave(in.Args)
	case "moveTo":
		value, hErr, txErr = tx.handleMoveTo(in.Args, now)
	case "startConversation":
		value, hErr, txErr = tx.handleStartConversation(in.Args, now)
	case "acceptInvite":
		value, hErr, txErr = tx.handleAcceptInvite(in.Args, now)
	case "rejectInvite":
		value, hErr, txErr = tx.handleRejectInvite(in.Args, now)
	case "leaveConversation":
		value, hErr, txErr = tx.handleLeaveConversation(in.Args, now)
	case "sendMessage":
		value, hErr, txErr = tx.handleSendMessage(in.Args, now)
	default:
		hErr = fmt.Errorf("%w: %q", ErrUnknownInput, in.Name)
	}

	if txErr != nil {
		return engine.ReturnValue{}, txErr
	}
	if hErr != nil {
		return engine.Err(hErr.Error()), nil
	}
	return engine.OK(value), nil
}

// --- join ---

type joinArgs struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Character   string  `json:"character"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

type joinResult struct {
	PlayerID   string `json:"playerId"`
	LocationID string `json:"locationId"`
}

func (tx *txState) handleJoin(args json.RawMessage) (any, error, error) {
	var a joinArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, fmt.Errorf("join: %w", err), nil
	}
	locationID := ids.New("location")
	playerID := ids.New("player")

	tx.locations.Insert(locationID, Location{ID: locationID, X: a.X, Y: a.Y, DX: 1, DY: 0})
	buf := historical.NewBuffer()
	buf.Seed("x", a.X)
	buf.Seed("y", a.Y)
	buf.Seed("dx", 1)
	buf.Seed("dy", 0)
	buf.Seed("velocity", 0)
	tx.histBuffers[locationID] = buf

	tx.players.Insert(playerID, Player{
		ID:          playerID,
		WorldID:     tx.world.ID,
		Name:        a.Name,
		Description: a.Description,
		Character:   a.Character,
		LocationID:  locationID,
		Active:      true,
	})

	return joinResult{PlayerID: playerID, LocationID: locationID}, nil, nil
}

// --- leave ---

type leaveArgs struct {
	PlayerID string `json:"playerId"`
}

func (tx *txState) handleLeave(args json.RawMessage) (any, error, error) {
	var a leaveArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err, nil
	}
	if err := tx.players.Update(a.PlayerID, func(p Player) Player {
		p.Active = false
		return p
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidID, err), nil
	}
	for _, m := range tx.members.Filter(func(_ string, m ConversationMember) bool {
		return m.PlayerID == a.PlayerID && m.Status != MemberLeft
	}) {
		id := memberID(m.ConversationID, m.PlayerID)
		_ = tx.members.Update(id, func(cur ConversationMember) ConversationMember {
			cur.Status = MemberLeft
			return cur
		})
	}
	return struct{}{}, nil, nil
}

// --- moveTo ---

type moveToArgs struct {
	PlayerID string `json:"playerId"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
}

type moveToResult struct {
	Path           geom.Path   `json:"path"`
	NewDestination *geom.Point `json:"newDestination,omitempty"`
}

func (tx *txState) handleMoveTo(args json.RawMessage, now int64) (any, error, error) {
	var a moveToArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err, nil
	}
	player, err := tx.players.Lookup(a.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidID, err), nil
	}
	loc, err := tx.locations.Lookup(player.LocationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidID, err), nil
	}

	dest := geom.Point{X: a.X, Y: a.Y}
	if !tx.grid.InBounds(dest) {
		return nil, ErrBlockedDestination, nil
	}

	obstacles := tx.otherPlayerObstacles(a.PlayerID)
	result, err := pathfind.FindPathAvoiding(tx.grid, loc.Position(), float64(now), dest, PlayerSpeed, obstacles)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRoute, err), nil
	}

	if txErr := tx.recordLocation(player.LocationID, now, func(l Location) Location {
		l.Path = result.Path
		l.NeedsReplan = false
		return l
	}); txErr != nil {
		return nil, nil, txErr
	}

	return moveToResult{Path: result.Path, NewDestination: result.NewDestination}, nil, nil
}

// otherPlayerObstacles builds the time-indexed dynamic-obstacle list
// Every other active player's planned path is sampled at
// each candidate's own scheduled arrival time.
func (tx *txState) otherPlayerObstacles(excludePlayerID string) []pathfind.DynamicObstacle {
	var obstacles []pathfind.DynamicObstacle
	for _, p := range tx.players.Filter(func(string, Player) bool { return true }) {
		if p.ID == excludePlayerID || p.LocationID == "" {
			continue
		}
		loc, err := tx.locations.Lookup(p.LocationID)
		if err != nil {
			continue
		}
		obstacles = append(obstacles, pathObstacle{loc: loc})
	}
	return obstacles
}

type pathObstacle struct{ loc Location }

func (o pathObstacle) PositionAt(t float64) geom.Vector {
	if len(o.loc.Path) == 0 {
		return o.loc.Position()
	}
	return geom.PathPosition(o.loc.Path, t).Position
}

// --- conversations ---

type startConversationArgs struct {
	PlayerID       string `json:"playerId"`
	TargetPlayerID string `json:"targetPlayerId"`
}

type conversationResult struct {
	ConversationID string `json:"conversationId"`
}

func (tx *txState) handleStartConversation(args json.RawMessage, now int64) (any, error, error) {
	var a startConversationArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err, nil
	}
	if _, err := tx.players.Lookup(a.PlayerID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidID, err), nil
	}
	if _, err := tx.players.Lookup(a.TargetPlayerID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidID, err), nil
	}
	for _, m := range tx.members.Filter(func(_ string, m ConversationMember) bool {
		return (m.PlayerID == a.PlayerID || m.PlayerID == a.TargetPlayerID) && m.Status != MemberLeft
	}) {
		conv, err := tx.conversations.Lookup(m.ConversationID)
		if err == nil && conv.Finished == nil {
			return nil, ErrDuplicateJoin, nil
		}
	}

	conversationID := ids.New("conversation")
	tx.conversations.Insert(conversationID, Conversation{ID: conversationID, WorldID: tx.world.ID, StartedAt: now})
	tx.members.Insert(memberID(conversationID, a.PlayerID), ConversationMember{
		ConversationID: conversationID, PlayerID: a.PlayerID, Status: MemberWalkingOver, InvitedAt: now, JoinedAt: now,
	})
	tx.members.Insert(memberID(conversationID, a.TargetPlayerID), ConversationMember{
		ConversationID: conversationID, PlayerID: a.TargetPlayerID, Status: MemberInvited, InvitedAt: now,
	})
	return conversationResult{ConversationID: conversationID}, nil, nil
}

type memberArgs struct {
	PlayerID       string `json:"playerId"`
	ConversationID string `json:"conversationId"`
}

func (tx *txState) lookupMember(a memberArgs) (ConversationMember, error) {
	m, err := tx.members.Lookup(memberID(a.ConversationID, a.PlayerID))
	if err != nil {
		return ConversationMember{}, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	return m, nil
}

func (tx *txState) handleAcceptInvite(args json.RawMessage, now int64) (any, error, error) {
	var a memberArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err, nil
	}
	member, err := tx.lookupMember(a)
	if err != nil {
		return nil, err, nil
	}
	if member.Status != MemberInvited {
		return nil, fmt.Errorf("member is not pending an invite (status %q)", member.Status), nil
	}
	if err := tx.members.Update(memberID(a.ConversationID, a.PlayerID), func(m ConversationMember) ConversationMember {
		m.Status = MemberWalkingOver
		m.JoinedAt = now
		return m
	}); err != nil {
		return nil, err, nil
	}
	return struct{}{}, nil, nil
}

func (tx *txState) handleRejectInvite(args json.RawMessage, now int64) (any, error, error) {
	var a memberArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err, nil
	}
	if _, err := tx.lookupMember(a); err != nil {
		return nil, err, nil
	}
	if err := tx.members.Update(memberID(a.ConversationID, a.PlayerID), func(m ConversationMember) ConversationMember {
		m.Status = MemberLeft
		m.LeftAt = now
		return m
	}); err != nil {
		return nil, err, nil
	}
	tx.finishConversation(a.ConversationID, now, "rejected")
	return struct{}{}, nil, nil
}

func (tx *txState) handleLeaveConversation(args json.RawMessage, now int64) (any, error, error) {
	var a memberArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err, nil
	}
	member, err := tx.lookupMember(a)
	if err != nil {
		return nil, err, nil
	}
	if member.Status == MemberLeft {
		return nil, fmt.Errorf("member has already left"), nil
	}
	if err := tx.members.Update(memberID(a.ConversationID, a.PlayerID), func(m ConversationMember) ConversationMember {
		m.Status = MemberLeft
		m.LeftAt = now
		return m
	}); err != nil {
		return nil, err, nil
	}
	return struct{}{}, nil, nil
}

// --- sendMessage ---

type sendMessageArgs struct {
	PlayerID       string `json:"playerId"`
	ConversationID string `json:"conversationId"`
	Text           string `json:"text"`
}

type sendMessageResult struct {
	MessageID string `json:"messageId"`
}

// maxConversationMessages mirrors config.Defaults().MaxConversationMessages,
// duplicated here as a literal bound since ApplyInput's handlers run
// without a config collaborator threaded through (see DESIGN.md).
const maxConversationMessages = 8

func (tx *txState) handleSendMessage(args json.RawMessage, now int64) (any, error, error) {
	var a sendMessageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err, nil
	}
	member, err := tx.lookupMember(memberArgs{PlayerID: a.PlayerID, ConversationID: a.ConversationID})
	if err != nil {
		return nil, err, nil
	}
	if member.Status != MemberParticipating {
		return nil, ErrNotParticipating, nil
	}
	conv, err := tx.conversations.Lookup(a.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidID, err), nil
	}
	if conv.Finished != nil {
		return nil, ErrConversationOver, nil
	}

	existing := tx.messages.Filter(func(_ string, m Message) bool { return m.ConversationID == a.ConversationID })
	if len(existing) >= maxConversationMessages {
		tx.finishConversation(a.ConversationID, now, "max messages reached")
		return nil, ErrConversationOver, nil
	}

	messageID := ids.New("message")
	tx.messages.Insert(messageID, Message{
		ID: messageID, ConversationID: a.ConversationID, AuthorID: a.PlayerID, Text: a.Text, Ts: now,
	})
	if len(existing)+1 >= maxConversationMessages {
		tx.finishConversation(a.ConversationID, now, "max messages reached")
	}
	return sendMessageResult{MessageID: messageID}, nil, nil
}
