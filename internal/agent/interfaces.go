package agent

import (
	"context"

	"github.com/wricardo/aitown/internal/aitown"
	"github.com/wricardo/aitown/internal/llmclient"
)

// WorldView is the read side of the world the agent loop observes.
// *aitown.World satisfies this; tests use a fake.
type WorldView interface {
	GetPlayer(ctx context.Context, playerID string) (aitown.PlayerSnapshot, error)
	LocalView(ctx context.Context, playerID string, radius int) (aitown.LocalView, error)
	PlayerMemberships(ctx context.Context, playerID string) ([]aitown.ConversationMember, error)
	GetConversation(ctx context.Context, conversationID string) (aitown.Conversation, error)
	ConversationMembers(ctx context.Context, conversationID string) ([]aitown.ConversationMember, error)
	RecentMessages(ctx context.Context, conversationID string, n int) ([]aitown.Message, error)
}

// InputSubmitter is the only way the agent loop mutates world state.
// *engine.Engine satisfies this.
type InputSubmitter interface {
	InsertInput(ctx context.Context, engineID, name string, args []byte) (string, int64, error)
}

// ChatClient is the LLM collaborator the conversation-turn decision
// calls. *llmclient.Client satisfies this.
type ChatClient interface {
	Chat(ctx context.Context, req llmclient.ChatRequest) (llmclient.ChatResponse, error)
}

// Identity is the agent's persona, woven into every LLM prompt.
type Identity struct {
	Name        string
	Description string
}
