// Package ids generates the string identifiers used across every
// document kind (Engine, World, Input, Player, Location, Conversation,
// Agent), using google/uuid for globally unique ids that don't collide
// across worlds.
package ids

import "github.com/google/uuid"

// New returns a fresh random id, prefixed with kind for readability in
// logs (e.g. "world_3d9f…", "input_8ac1…").
func New(kind string) string {
	return kind + "_" + uuid.NewString()
}
