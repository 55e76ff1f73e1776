package aitown

import "github.com/wricardo/aitown/internal/geom"

// WorldStatus is the lifecycle state of a World document.
type WorldStatus string

const (
	WorldRunning           WorldStatus = "running"
	WorldStoppedByDev      WorldStatus = "stoppedByDeveloper"
	WorldInactive          WorldStatus = "inactive"
)

// WorldDoc is the persisted World document: the aggregate root binding
// one engine to one map.
type WorldDoc struct {
	ID        string      `json:"id"`
	EngineID  string      `json:"engineId"`
	MapID     string      `json:"mapId"`
	Status    WorldStatus `json:"status"`
	IsDefault bool        `json:"isDefault"`
	LastViewed int64      `json:"lastViewed,omitempty"`
}

// Player is a participant in a world.
type Player struct {
	ID          string `json:"id"`
	WorldID     string `json:"worldId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Character   string `json:"character"`
	LocationID  string `json:"locationId"`
	Active      bool   `json:"active"`
}

// Location is the historical-tracked position record for a player.
// X, Y, DX, DY, Velocity are the five numeric tracked fields sampled
// into History on flush. Path is the player's current planned
// route, transient: it is not itself history-sampled, but it's what
// Advance walks each tick to derive the tracked fields.
type Location struct {
	ID       string     `json:"id"`
	X        float64    `json:"x"`
	Y        float64    `json:"y"`
	DX       float64    `json:"dx"`
	DY       float64    `json:"dy"`
	Velocity float64    `json:"velocity"`
	History  []byte     `json:"history,omitempty"`
	Path     geom.Path  `json:"path,omitempty"`
	NeedsReplan bool    `json:"needsReplan,omitempty"`
}

// Position returns the location's current continuous-space position.
func (l Location) Position() geom.Vector {
	return geom.Vector{X: l.X, Y: l.Y}
}

// Facing returns the location's current facing unit vector.
func (l Location) Facing() geom.Vector {
	return geom.Vector{X: l.DX, Y: l.DY}
}

// MemberStatus is a ConversationMember's place in the invite/participate
// lifecycle.
type MemberStatus string

const (
	MemberInvited      MemberStatus = "invited"
	MemberWalkingOver  MemberStatus = "walkingOver"
	MemberParticipating MemberStatus = "participating"
	MemberLeft         MemberStatus = "left"
)

// ConversationMember is one player's participation record within a
// Conversation.
type ConversationMember struct {
	ConversationID string       `json:"conversationId"`
	PlayerID       string       `json:"playerId"`
	Status         MemberStatus `json:"status"`
	InvitedAt      int64        `json:"invitedAt,omitempty"`
	JoinedAt       int64        `json:"joinedAt,omitempty"`
	LeftAt         int64        `json:"leftAt,omitempty"`
}

// Conversation is a (possibly still-forming) conversation between two or
// more players.
type Conversation struct {
	ID       string `json:"id"`
	WorldID  string `json:"worldId"`
	StartedAt int64 `json:"startedAt"`
	Finished  *ConversationEnd `json:"finished,omitempty"`
}

// ConversationEnd records when and why a conversation ended.
type ConversationEnd struct {
	EndedAt int64  `json:"endedAt"`
	Reason  string `json:"reason,omitempty"`
}

// Message is one utterance within a conversation, keyed to it via
// ConversationID. The spec names sendMessage as an input but leaves
// message storage to the implementation; this is the aggregate's
// answer, queried by RecentMessages for agent prompt context.
type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
	AuthorID       string `json:"authorId"`
	Text           string `json:"text"`
	Ts             int64  `json:"ts"`
}

// memberID is the composite key a ConversationMember is stored under:
// game tables are keyed by a single string id, so composite keys
// are just concatenated.
func memberID(conversationID, playerID string) string {
	return conversationID + "|" + playerID
}
