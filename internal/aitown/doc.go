// Package aitown implements the per-tick world rules: the
// aggregate of map, players, locations, conversations and their members
// that a single engine.World collaborator applies one tick at a time.
//
// aitown.World is deliberately the only thing internal/engine knows
// about: the engine drains inputs and advances simulated time, but
// every domain rule (movement, collisions, conversation lifecycle)
// lives here, grounded the same way the teacher's game/engine.GameState
// owns its own movement and collision rules instead of leaking them
// into the transport layer.
package aitown
