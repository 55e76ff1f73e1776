// Package agent implements the per-player decision loop: a cooperative
// task keyed by (worldId, playerId) that reads world state through
// queries, asks an LLM what to do next, and mutates the world only by
// submitting inputs to the engine — it never writes game tables
// directly, preserving the engine's serial-tick semantics.
package agent
