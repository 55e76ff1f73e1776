package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/wricardo/aitown/internal/aitown"
	"github.com/wricardo/aitown/internal/engine"
	"github.com/wricardo/aitown/internal/geom"
)

type fakeEngine struct {
	insertedName string
	insertedArgs []byte
	inputID      string
	number       int64
	insertErr    error

	bulkNames []string
	bulkIDs   []string
	bulkErr   error

	status    *engine.ReturnValue
	statusErr error

	doc    engine.Doc
	docErr error

	recent    []engine.Input
	recentErr error
}

func (f *fakeEngine) InsertInput(ctx context.Context, engineID, name string, args []byte) (string, int64, error) {
	f.insertedName = name
	f.insertedArgs = args
	return f.inputID, f.number, f.insertErr
}

func (f *fakeEngine) InsertInputs(ctx context.Context, engineID string, names []string, argsList [][]byte) ([]string, error) {
	f.bulkNames = names
	return f.bulkIDs, f.bulkErr
}

func (f *fakeEngine) InputStatus(ctx context.Context, inputID string) (*engine.ReturnValue, error) {
	return f.status, f.statusErr
}

func (f *fakeEngine) EngineStatus(ctx context.Context, engineID string) (engine.Doc, error) {
	return f.doc, f.docErr
}

func (f *fakeEngine) RecentInputs(ctx context.Context, engineID string, n int) ([]engine.Input, error) {
	return f.recent, f.recentErr
}

type fakeWorld struct {
	view    aitown.LocalView
	viewErr error

	messages []aitown.Message
	msgErr   error
}

func (f *fakeWorld) LocalView(ctx context.Context, playerID string, radius int) (aitown.LocalView, error) {
	return f.view, f.viewErr
}

func (f *fakeWorld) RecentMessages(ctx context.Context, conversationID string, n int) ([]aitown.Message, error) {
	return f.messages, f.msgErr
}

func textOf(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("empty result content")
	}
	tc, ok := result.Content[0].(mcplib.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func TestHandleSendInputSubmitsNamedInput(t *testing.T) {
	fe := &fakeEngine{inputID: "input-1", number: 5}
	s := NewServer(fe, &fakeWorld{}, nil)

	req := mcplib.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{
		"engine_id": "engine-1",
		"name":      "moveTo",
		"args":      map[string]interface{}{"playerId": "p1", "x": float64(3), "y": float64(4)},
	}

	result, err := s.handleSendInput(context.Background(), req)
	if err != nil {
		t.Fatalf("handleSendInput: %v", err)
	}
	if fe.insertedName != "moveTo" {
		t.Fatalf("expected insertedName moveTo, got %q", fe.insertedName)
	}
	if !strings.Contains(textOf(t, result), "input-1") {
		t.Fatalf("expected result to mention input id, got %q", textOf(t, result))
	}
}

func TestHandleSendInputReturnsErrorResult(t *testing.T) {
	fe := &fakeEngine{insertErr: errTest}
	s := NewServer(fe, &fakeWorld{}, nil)

	req := mcplib.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{"engine_id": "e", "name": "join"}

	result, err := s.handleSendInput(context.Background(), req)
	if err != nil {
		t.Fatalf("handleSendInput: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected an error result")
	}
}

func TestHandleBulkInputsSubmitsEachInput(t *testing.T) {
	fe := &fakeEngine{bulkIDs: []string{"a", "b"}}
	s := NewServer(fe, &fakeWorld{}, nil)

	req := mcplib.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{
		"engine_id": "e",
		"inputs": []interface{}{
			map[string]interface{}{"name": "moveTo", "args": map[string]interface{}{"x": float64(1)}},
			map[string]interface{}{"name": "leave", "args": map[string]interface{}{}},
		},
	}

	result, err := s.handleBulkInputs(context.Background(), req)
	if err != nil {
		t.Fatalf("handleBulkInputs: %v", err)
	}
	if len(fe.bulkNames) != 2 || fe.bulkNames[0] != "moveTo" || fe.bulkNames[1] != "leave" {
		t.Fatalf("expected both input names forwarded, got %v", fe.bulkNames)
	}
	var ids []string
	if err := json.Unmarshal([]byte(textOf(t, result)), &ids); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %v", ids)
	}
}

func TestHandleInputStatusReportsPendingWhenNil(t *testing.T) {
	fe := &fakeEngine{status: nil}
	s := NewServer(fe, &fakeWorld{}, nil)

	req := mcplib.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{"input_id": "x"}

	result, err := s.handleInputStatus(context.Background(), req)
	if err != nil {
		t.Fatalf("handleInputStatus: %v", err)
	}
	if !strings.Contains(textOf(t, result), "pending") {
		t.Fatalf("expected pending marker, got %q", textOf(t, result))
	}
}

func TestHandleInputStatusReportsReturnValue(t *testing.T) {
	fe := &fakeEngine{status: &engine.ReturnValue{Kind: engine.ReturnOK}}
	s := NewServer(fe, &fakeWorld{}, nil)

	req := mcplib.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{"input_id": "x"}

	result, err := s.handleInputStatus(context.Background(), req)
	if err != nil {
		t.Fatalf("handleInputStatus: %v", err)
	}
	if !strings.Contains(textOf(t, result), `"kind":"ok"`) {
		t.Fatalf("expected ok kind in result, got %q", textOf(t, result))
	}
}

func TestHandleEngineStatusReportsDoc(t *testing.T) {
	fe := &fakeEngine{doc: engine.Doc{ID: "e1", State: engine.Running}}
	s := NewServer(fe, &fakeWorld{}, nil)

	req := mcplib.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{"engine_id": "e1"}

	result, err := s.handleEngineStatus(context.Background(), req)
	if err != nil {
		t.Fatalf("handleEngineStatus: %v", err)
	}
	if !strings.Contains(textOf(t, result), "e1") {
		t.Fatalf("expected engine id in result, got %q", textOf(t, result))
	}
}

func TestHandleLocalViewReturnsView(t *testing.T) {
	fw := &fakeWorld{view: aitown.LocalView{
		Center:   geom.Point{X: 1, Y: 2},
		Walkable: [][]bool{{true}},
		Players:  []aitown.PlayerSnapshot{{Player: aitown.Player{ID: "p1"}}},
	}}
	s := NewServer(&fakeEngine{}, fw, nil)

	req := mcplib.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{"player_id": "p1", "radius": float64(4)}

	result, err := s.handleLocalView(context.Background(), req)
	if err != nil {
		t.Fatalf("handleLocalView: %v", err)
	}
	if !strings.Contains(textOf(t, result), "p1") {
		t.Fatalf("expected player id in result, got %q", textOf(t, result))
	}
}

func TestHandleRecentMessagesReturnsMessages(t *testing.T) {
	fw := &fakeWorld{messages: []aitown.Message{{ID: "m1", Text: "hi"}}}
	s := NewServer(&fakeEngine{}, fw, nil)

	req := mcplib.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{"conversation_id": "c1"}

	result, err := s.handleRecentMessages(context.Background(), req)
	if err != nil {
		t.Fatalf("handleRecentMessages: %v", err)
	}
	if !strings.Contains(textOf(t, result), "hi") {
		t.Fatalf("expected message text in result, got %q", textOf(t, result))
	}
}

var errTest = testErr("boom")

type testErr string

func (e testErr) Error() string { return string(e) }
