package cliapp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/wricardo/aitown/internal/llmclient"
)

func newTestSupervisorRuntime(t *testing.T) (*runtime, string, string) {
	t.Helper()
	dir := t.TempDir()
	rt, err := newRuntime(dir, nil)
	if err != nil {
		t.Fatalf("newRuntime: %v", err)
	}
	worldID, engineID, err := rt.provisionWorld("test", "")
	if err != nil {
		t.Fatalf("provisionWorld: %v", err)
	}
	return rt, worldID, engineID
}

// TestSupervisorSpawnsAgentForJoinedPlayer exercises the fix for the
// previously-unwired C7 loop: a player joined through the engine's
// input path should end up with a running agent, and the agent should
// stop once the player leaves.
func TestSupervisorSpawnsAgentForJoinedPlayer(t *testing.T) {
	rt, worldID, engineID := newTestSupervisorRuntime(t)
	ctx := context.Background()

	llm, err := llmclient.New(llmclient.Config{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("llmclient.New: %v", err)
	}
	sup := newAgentSupervisor(rt.world, rt.engine, llm, worldID, engineID, rt.log)

	if err := rt.engine.Start(ctx, engineID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	joinArgs, _ := json.Marshal(map[string]any{"name": "scout", "x": 0, "y": 0})
	inputID, _, err := rt.engine.InsertInput(ctx, engineID, "join", joinArgs)
	if err != nil {
		t.Fatalf("InsertInput: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if err := rt.engine.RunStep(ctx, engineID, 1); err != nil {
		t.Fatalf("RunStep: %v", err)
	}
	rv, err := rt.engine.InputStatus(ctx, inputID)
	if err != nil {
		t.Fatalf("InputStatus: %v", err)
	}
	if rv == nil {
		t.Fatal("expected the join input to have been processed")
	}

	sup.reconcile(ctx)

	sup.mu.Lock()
	n := len(sup.agents)
	sup.mu.Unlock()
	if n != 1 {
		t.Fatalf("expected exactly 1 agent spawned for 1 active player, got %d", n)
	}

	// Reconciling again with the same player active must not spawn a
	// second agent for the same player.
	sup.reconcile(ctx)
	sup.mu.Lock()
	n = len(sup.agents)
	sup.mu.Unlock()
	if n != 1 {
		t.Fatalf("expected reconcile to be idempotent for an already-running agent, got %d agents", n)
	}

	players, err := rt.world.ActivePlayers(ctx, worldID)
	if err != nil || len(players) != 1 {
		t.Fatalf("expected 1 active player, got %d (err=%v)", len(players), err)
	}

	leaveArgs, _ := json.Marshal(map[string]any{"playerId": players[0].ID})
	leaveID, _, err := rt.engine.InsertInput(ctx, engineID, "leave", leaveArgs)
	if err != nil {
		t.Fatalf("InsertInput leave: %v", err)
	}
	if err := rt.engine.RunStep(ctx, engineID, 1); err != nil {
		t.Fatalf("RunStep: %v", err)
	}
	if rv, err := rt.engine.InputStatus(ctx, leaveID); err != nil || rv == nil {
		t.Fatalf("expected leave input to have been processed, rv=%v err=%v", rv, err)
	}

	sup.reconcile(ctx)
	sup.mu.Lock()
	n = len(sup.agents)
	sup.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected the agent to be stopped once its player left, got %d agents", n)
	}

	sup.stopAll()
	time.Sleep(10 * time.Millisecond) // let any stray goroutine observe cancellation
}
