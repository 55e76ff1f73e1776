package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/aitown/internal/aitown"
	"github.com/wricardo/aitown/internal/engine"
)

// Engine is the input/status surface the MCP tools drive, implemented
// by *engine.Engine.
type Engine interface {
	InsertInput(ctx context.Context, engineID, name string, args []byte) (string, int64, error)
	InsertInputs(ctx context.Context, engineID string, names []string, argsList [][]byte) ([]string, error)
	InputStatus(ctx context.Context, inputID string) (*engine.ReturnValue, error)
	EngineStatus(ctx context.Context, engineID string) (engine.Doc, error)
	RecentInputs(ctx context.Context, engineID string, n int) ([]engine.Input, error)
}

// World is the read surface the MCP tools expose for agent prompt
// building, implemented by *aitown.World.
type World interface {
	LocalView(ctx context.Context, playerID string, radius int) (aitown.LocalView, error)
	RecentMessages(ctx context.Context, conversationID string, n int) ([]aitown.Message, error)
}

// Server exposes the engine's input/status surface as MCP tools.
type Server struct {
	engine    Engine
	world     World
	mcpServer *server.MCPServer
	log       *log.Logger
}

// NewServer builds a Server and registers every tool.
func NewServer(eng Engine, world World, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{engine: eng, world: world, log: logger}
	s.mcpServer = server.NewMCPServer(
		"aitown",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`AiTown simulation MCP interface.

An autonomous agent drives its player by submitting named inputs
(join, leave, moveTo, startConversation, acceptInvite, rejectInvite,
leaveConversation, sendMessage) and observing engine/world state
through read-only queries. Inputs are applied in the order the engine
receives them; use input_status to poll a submitted input's outcome.`),
	)
	s.registerTools()
	return s
}

// MCPServer returns the underlying server, for ServeStdio/HTTP wiring.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcplib.Tool{
		Name:        "send_input",
		Description: "Submit one named input to a world's engine (join, leave, moveTo, startConversation, acceptInvite, rejectInvite, leaveConversation, sendMessage)",
		InputSchema: mcplib.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"engine_id": map[string]interface{}{"type": "string", "description": "Engine id"},
				"name":      map[string]interface{}{"type": "string", "description": "Input name"},
				"args":      map[string]interface{}{"type": "object", "description": "Input arguments, matching the named input's schema"},
			},
			Required: []string{"engine_id", "name"},
		},
	}, s.handleSendInput)

	s.mcpServer.AddTool(mcplib.Tool{
		Name:        "bulk_inputs",
		Description: "Submit a short plan of inputs to a world's engine in order; each input is inserted separately, so the batch is not atomic",
		InputSchema: mcplib.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"engine_id": map[string]interface{}{"type": "string", "description": "Engine id"},
				"inputs": map[string]interface{}{
					"type":        "array",
					"description": "Ordered list of {name, args} inputs",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"name": map[string]interface{}{"type": "string"},
							"args": map[string]interface{}{"type": "object"},
						},
					},
				},
			},
			Required: []string{"engine_id", "inputs"},
		},
	}, s.handleBulkInputs)

	s.mcpServer.AddTool(mcplib.Tool{
		Name:        "input_status",
		Description: "Poll the return value of a previously submitted input",
		InputSchema: mcplib.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"input_id": map[string]interface{}{"type": "string", "description": "Input id returned by send_input"},
			},
			Required: []string{"input_id"},
		},
	}, s.handleInputStatus)

	s.mcpServer.AddTool(mcplib.Tool{
		Name:        "engine_status",
		Description: "Read a world's engine run state (generation, scheduled time, last step)",
		InputSchema: mcplib.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"engine_id": map[string]interface{}{"type": "string", "description": "Engine id"},
			},
			Required: []string{"engine_id"},
		},
	}, s.handleEngineStatus)

	s.mcpServer.AddTool(mcplib.Tool{
		Name:        "recent_inputs",
		Description: "List the most recently received inputs for a world's engine",
		InputSchema: mcplib.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"engine_id": map[string]interface{}{"type": "string", "description": "Engine id"},
				"n":         map[string]interface{}{"type": "integer", "description": "Max results, most recent first"},
			},
			Required: []string{"engine_id"},
		},
	}, s.handleRecentInputs)

	s.mcpServer.AddTool(mcplib.Tool{
		Name:        "local_view",
		Description: "A bounded window of the tile map plus nearby players around a player, for building small LLM prompts",
		InputSchema: mcplib.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"player_id": map[string]interface{}{"type": "string", "description": "Player id"},
				"radius":    map[string]interface{}{"type": "integer", "description": "View radius in tiles"},
			},
			Required: []string{"player_id"},
		},
	}, s.handleLocalView)

	s.mcpServer.AddTool(mcplib.Tool{
		Name:        "recent_messages",
		Description: "The most recent messages exchanged in a conversation, most recent first",
		InputSchema: mcplib.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"conversation_id": map[string]interface{}{"type": "string", "description": "Conversation id"},
				"n":               map[string]interface{}{"type": "integer", "description": "Max results"},
			},
			Required: []string{"conversation_id"},
		},
	}, s.handleRecentMessages)
}

func argsOf(request mcplib.CallToolRequest) map[string]interface{} {
	if m, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

func stringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

func intArg(args map[string]interface{}, key string, def int) int {
	if v, ok := args[key].(float64); ok {
		return int(v)
	}
	return def
}

func (s *Server) handleSendInput(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args := argsOf(request)
	engineID := stringArg(args, "engine_id")
	name := stringArg(args, "name")
	var raw json.RawMessage
	if inner, ok := args["args"]; ok {
		b, err := json.Marshal(inner)
		if err != nil {
			return mcplib.NewToolResultError(err.Error()), nil
		}
		raw = b
	}

	inputID, number, err := s.engine.InsertInput(ctx, engineID, name, raw)
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	return mcplib.NewToolResultText(fmt.Sprintf("inputId=%s number=%d", inputID, number)), nil
}

func (s *Server) handleBulkInputs(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args := argsOf(request)
	engineID := stringArg(args, "engine_id")
	rawInputs, _ := args["inputs"].([]interface{})

	names := make([]string, 0, len(rawInputs))
	argsList := make([][]byte, 0, len(rawInputs))
	for _, item := range rawInputs {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		names = append(names, stringArg(entry, "name"))
		b, err := json.Marshal(entry["args"])
		if err != nil {
			return mcplib.NewToolResultError(err.Error()), nil
		}
		argsList = append(argsList, b)
	}

	ids, err := s.engine.InsertInputs(ctx, engineID, names, argsList)
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	result, err := json.Marshal(ids)
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	return mcplib.NewToolResultText(string(result)), nil
}

func (s *Server) handleInputStatus(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args := argsOf(request)
	rv, err := s.engine.InputStatus(ctx, stringArg(args, "input_id"))
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	if rv == nil {
		return mcplib.NewToolResultText(`{"pending":true}`), nil
	}
	b, err := json.Marshal(rv)
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	return mcplib.NewToolResultText(string(b)), nil
}

func (s *Server) handleEngineStatus(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args := argsOf(request)
	doc, err := s.engine.EngineStatus(ctx, stringArg(args, "engine_id"))
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	return mcplib.NewToolResultText(string(b)), nil
}

func (s *Server) handleRecentInputs(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args := argsOf(request)
	inputs, err := s.engine.RecentInputs(ctx, stringArg(args, "engine_id"), intArg(args, "n", 20))
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	b, err := json.Marshal(inputs)
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	return mcplib.NewToolResultText(string(b)), nil
}

func (s *Server) handleLocalView(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args := argsOf(request)
	view, err := s.world.LocalView(ctx, stringArg(args, "player_id"), intArg(args, "radius", 6))
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	b, err := json.Marshal(view)
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	return mcplib.NewToolResultText(string(b)), nil
}

func (s *Server) handleRecentMessages(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args := argsOf(request)
	msgs, err := s.world.RecentMessages(ctx, stringArg(args, "conversation_id"), intArg(args, "n", 8))
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	b, err := json.Marshal(msgs)
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	return mcplib.NewToolResultText(string(b)), nil
}

// RunStdio serves the MCP server over stdio, blocking until the client
// disconnects or the process is signalled to stop.
func (s *Server) RunStdio() error {
	return server.ServeStdio(s.mcpServer)
}
