package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/wricardo/aitown/internal/aitown"
	"github.com/wricardo/aitown/internal/geom"
	"github.com/wricardo/aitown/internal/llmclient"
)

type fakeWorld struct {
	players       map[string]aitown.PlayerSnapshot
	memberships   map[string][]aitown.ConversationMember
	conversations map[string]aitown.Conversation
	members       map[string][]aitown.ConversationMember
	messages      map[string][]aitown.Message
	localView     aitown.LocalView
}

func (f *fakeWorld) GetPlayer(_ context.Context, playerID string) (aitown.PlayerSnapshot, error) {
	return f.players[playerID], nil
}
func (f *fakeWorld) LocalView(_ context.Context, _ string, _ int) (aitown.LocalView, error) {
	return f.localView, nil
}
func (f *fakeWorld) PlayerMemberships(_ context.Context, playerID string) ([]aitown.ConversationMember, error) {
	return f.memberships[playerID], nil
}
func (f *fakeWorld) GetConversation(_ context.Context, id string) (aitown.Conversation, error) {
	return f.conversations[id], nil
}
func (f *fakeWorld) ConversationMembers(_ context.Context, id string) ([]aitown.ConversationMember, error) {
	return f.members[id], nil
}
func (f *fakeWorld) RecentMessages(_ context.Context, id string, n int) ([]aitown.Message, error) {
	msgs := f.messages[id]
	if n > 0 && len(msgs) > n {
		msgs = msgs[:n]
	}
	return msgs, nil
}

type fakeSubmitter struct {
	calls []submittedInput
}

type submittedInput struct {
	name string
	args json.RawMessage
}

func (f *fakeSubmitter) InsertInput(_ context.Context, _ string, name string, args []byte) (string, int64, error) {
	f.calls = append(f.calls, submittedInput{name: name, args: args})
	return "input-1", 1, nil
}

type fakeChat struct {
	content string
	err     error
}

func (f *fakeChat) Chat(_ context.Context, _ llmclient.ChatRequest) (llmclient.ChatResponse, error) {
	return llmclient.ChatResponse{Content: f.content}, f.err
}

type fakeClock struct{ now int64 }

func (c *fakeClock) NowMs() int64 { return c.now }

func TestHandleInviteAutoRejectsAfterTimeout(t *testing.T) {
	world := &fakeWorld{}
	sub := &fakeSubmitter{}
	clock := &fakeClock{now: 100000}
	a := New("world-1", "p1", "engine-1", Identity{Name: "ada"}, world, sub, &fakeChat{}, clock, nil)

	member := aitown.ConversationMember{ConversationID: "c1", PlayerID: "p1", Status: aitown.MemberInvited, InvitedAt: 0}
	if err := a.handleInvite(context.Background(), member); err != nil {
		t.Fatalf("handleInvite: %v", err)
	}
	if len(sub.calls) != 1 || sub.calls[0].name != "rejectInvite" {
		t.Fatalf("expected a rejectInvite submission, got %+v", sub.calls)
	}
}

func TestHandleInviteAcceptsWithinTimeoutEventually(t *testing.T) {
	world := &fakeWorld{}
	sub := &fakeSubmitter{}
	clock := &fakeClock{now: 1000}
	a := New("world-1", "p1", "engine-1", Identity{Name: "ada"}, world, sub, &fakeChat{}, clock, nil)
	a.rng.Seed(1)

	member := aitown.ConversationMember{ConversationID: "c1", PlayerID: "p1", Status: aitown.MemberInvited, InvitedAt: 900}

	accepted := false
	for i := 0; i < 50 && !accepted; i++ {
		sub.calls = nil
		if err := a.handleInvite(context.Background(), member); err != nil {
			t.Fatalf("handleInvite: %v", err)
		}
		if len(sub.calls) == 1 && sub.calls[0].name == "acceptInvite" {
			accepted = true
		}
	}
	if !accepted {
		t.Fatal("expected acceptInvite to eventually fire at 0.8 probability")
	}
}

func TestHandleIdleWandersWhenNoTargetsNearby(t *testing.T) {
	world := &fakeWorld{
		localView: aitown.LocalView{
			Center:   geom.Point{X: 5, Y: 5},
			Walkable: [][]bool{{true, true, true}, {true, true, true}, {true, true, true}},
		},
	}
	sub := &fakeSubmitter{}
	clock := &fakeClock{now: 0}
	a := New("world-1", "p1", "engine-1", Identity{Name: "ada"}, world, sub, &fakeChat{}, clock, nil)

	if err := a.handleIdle(context.Background()); err != nil {
		t.Fatalf("handleIdle: %v", err)
	}
	if len(sub.calls) != 1 || sub.calls[0].name != "moveTo" {
		t.Fatalf("expected a moveTo submission, got %+v", sub.calls)
	}
}

func TestHandleIdleStartsConversationWithNearbyFreePlayer(t *testing.T) {
	world := &fakeWorld{
		localView: aitown.LocalView{
			Center:   geom.Point{X: 0, Y: 0},
			Walkable: [][]bool{{true}},
			Players: []aitown.PlayerSnapshot{
				{Player: aitown.Player{ID: "p2", Name: "bob"}},
			},
		},
	}
	sub := &fakeSubmitter{}
	clock := &fakeClock{now: 1_000_000}
	a := New("world-1", "p1", "engine-1", Identity{Name: "ada"}, world, sub, &fakeChat{}, clock, nil)

	if err := a.handleIdle(context.Background()); err != nil {
		t.Fatalf("handleIdle: %v", err)
	}
	if len(sub.calls) != 1 || sub.calls[0].name != "startConversation" {
		t.Fatalf("expected a startConversation submission, got %+v", sub.calls)
	}
}

func TestHandleConversationTurnSendsMessage(t *testing.T) {
	world := &fakeWorld{
		conversations: map[string]aitown.Conversation{"c1": {ID: "c1"}},
		members: map[string][]aitown.ConversationMember{
			"c1": {
				{ConversationID: "c1", PlayerID: "p1", Status: aitown.MemberParticipating},
				{ConversationID: "c1", PlayerID: "p2", Status: aitown.MemberParticipating},
			},
		},
		players: map[string]aitown.PlayerSnapshot{
			"p2": {Player: aitown.Player{ID: "p2", Name: "bob"}},
		},
		messages: map[string][]aitown.Message{},
	}
	sub := &fakeSubmitter{}
	clock := &fakeClock{now: 1_000_000}
	a := New("world-1", "p1", "engine-1", Identity{Name: "ada"}, world, sub, &fakeChat{content: "hello bob"}, clock, nil)

	member := aitown.ConversationMember{ConversationID: "c1", PlayerID: "p1", Status: aitown.MemberParticipating}
	if err := a.handleConversationTurn(context.Background(), member); err != nil {
		t.Fatalf("handleConversationTurn: %v", err)
	}
	if len(sub.calls) != 1 || sub.calls[0].name != "sendMessage" {
		t.Fatalf("expected a sendMessage submission, got %+v", sub.calls)
	}
}

func TestHandleConversationTurnLeavesOnStopMarker(t *testing.T) {
	world := &fakeWorld{
		conversations: map[string]aitown.Conversation{"c1": {ID: "c1"}},
		members: map[string][]aitown.ConversationMember{
			"c1": {
				{ConversationID: "c1", PlayerID: "p1", Status: aitown.MemberParticipating},
				{ConversationID: "c1", PlayerID: "p2", Status: aitown.MemberParticipating},
			},
		},
		players: map[string]aitown.PlayerSnapshot{
			"p2": {Player: aitown.Player{ID: "p2", Name: "bob"}},
		},
	}
	sub := &fakeSubmitter{}
	clock := &fakeClock{now: 1_000_000}
	a := New("world-1", "p1", "engine-1", Identity{Name: "ada"}, world, sub, &fakeChat{content: StopMarker}, clock, nil)

	member := aitown.ConversationMember{ConversationID: "c1", PlayerID: "p1", Status: aitown.MemberParticipating}
	if err := a.handleConversationTurn(context.Background(), member); err != nil {
		t.Fatalf("handleConversationTurn: %v", err)
	}
	if len(sub.calls) != 1 || sub.calls[0].name != "leaveConversation" {
		t.Fatalf("expected a leaveConversation submission, got %+v", sub.calls)
	}
}

func TestHandleConversationTurnRespectsMessageCooldown(t *testing.T) {
	world := &fakeWorld{
		conversations: map[string]aitown.Conversation{"c1": {ID: "c1"}},
	}
	sub := &fakeSubmitter{}
	clock := &fakeClock{now: 1000}
	a := New("world-1", "p1", "engine-1", Identity{Name: "ada"}, world, sub, &fakeChat{content: "hi"}, clock, nil)
	a.lastMessageAt = 900 // within MessageCooldown of now

	member := aitown.ConversationMember{ConversationID: "c1", PlayerID: "p1", Status: aitown.MemberParticipating}
	if err := a.handleConversationTurn(context.Background(), member); err != nil {
		t.Fatalf("handleConversationTurn: %v", err)
	}
	if len(sub.calls) != 0 {
		t.Fatalf("expected no submission during cooldown, got %+v", sub.calls)
	}
}

func TestWakeDispatchesByMembershipStatus(t *testing.T) {
	world := &fakeWorld{
		memberships: map[string][]aitown.ConversationMember{
			"p1": {{ConversationID: "c1", PlayerID: "p1", Status: aitown.MemberWalkingOver, InvitedAt: 1}},
		},
	}
	sub := &fakeSubmitter{}
	clock := &fakeClock{now: 0}
	a := New("world-1", "p1", "engine-1", Identity{Name: "ada"}, world, sub, &fakeChat{}, clock, nil)

	if err := a.Wake(context.Background()); err != nil {
		t.Fatalf("Wake: %v", err)
	}
	if len(sub.calls) != 0 {
		t.Fatalf("expected no submission while walkingOver, got %+v", sub.calls)
	}
}
