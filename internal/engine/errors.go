package engine

import "errors"

// Sentinel errors the engine itself raises (as opposed to ones World/Input
// handlers return, which are carried as ReturnValue.Message instead of
// Go errors).
var (
	ErrEngineNotFound    = errors.New("engine: not found")
	ErrEngineNotStopped  = errors.New("engine: already running")
	ErrEngineNotRunning  = errors.New("engine: not running")
	ErrGenerationFenced  = errors.New("engine: generation fenced, step is a no-op")
	ErrMissingSecret     = errors.New("engine: required secret is not configured")
)
