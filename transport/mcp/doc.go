// Package mcp exposes the engine's input/status surface as Model
// Context Protocol tools.
//
// The mcp package implements:
//   - an MCP server for AI agent integration
//   - tool definitions for submitting inputs and reading engine/world state
//   - stdio and HTTP transport modes
//
// MCP Tools:
//
// The package exposes the following tools for AI agents:
//   - send_input: submit one named input (join, moveTo, startConversation, ...)
//   - bulk_inputs: submit a short plan of inputs in order (not atomic)
//   - input_status: poll the return value of a previously submitted input
//   - engine_status: read the engine's current run state
//   - recent_inputs: the most recently received inputs for an engine
//   - local_view: a bounded window of the map plus nearby players
//   - recent_messages: the most recent messages in a conversation
//
// Transport Modes:
//
// The server supports two transport modes:
//   - Stdio: direct stdio communication for local MCP clients
//   - HTTP: an HTTP endpoint for remote MCP integration
//
// Usage:
//
//	srv := mcp.NewServer(eng, world, logger)
//	srv.RunStdio()
package mcp
