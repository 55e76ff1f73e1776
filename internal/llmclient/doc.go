// Package llmclient implements the LLM contract the agent loop
// depends on: chat/embed/moderate calls against an OpenAI-compatible
// depends on: chat/embed/moderate calls against an OpenAI-compatible
// HTTP endpoint, with a retry schedule (1s, 10s, 20s,
// jitter up to 100ms, retrying only on HTTP 429 or 5xx) and a streaming
// reader that truncates a stop word even when it straddles a chunk
// boundary.
package llmclient
