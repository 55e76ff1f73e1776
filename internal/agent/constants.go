package agent

import "time"

// Cooldown and timeout constants driving the decision loop.
const (
	MessageCooldown             = 2 * time.Second
	ActionTimeout               = 60 * time.Second
	InviteAcceptProbability     = 0.8
	ConversationCooldown        = 15 * time.Second
	PlayerConversationCooldown  = 60 * time.Second
	InviteTimeout               = 60 * time.Second
	AwkwardConversationTimeout  = 20 * time.Second
)

// StopMarker is the token the LLM emits to signal a conversation topic
// is exhausted, prompting the agent to leave rather than keep talking.
const StopMarker = "[END_CONVERSATION]"
