package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/wricardo/aitown/internal/aitown"
	"github.com/wricardo/aitown/internal/llmclient"
)

type sendMessageArgs struct {
	PlayerID       string `json:"playerId"`
	ConversationID string `json:"conversationId"`
	Text           string `json:"text"`
}

// handleConversationTurn implements step 2: decide the agent's turn in
// an in-progress conversation via the LLM, respecting MessageCooldown,
// and leaving on a finished conversation or an exhausted topic.
func (a *Agent) handleConversationTurn(ctx context.Context, member aitown.ConversationMember) error {
	now := a.clock.NowMs()
	if now-a.lastMessageAt < MessageCooldown.Milliseconds() {
		return nil
	}

	conv, err := a.world.GetConversation(ctx, member.ConversationID)
	if err != nil {
		return err
	}
	if conv.Finished != nil {
		return a.submit(ctx, "leaveConversation", memberArgs{PlayerID: a.PlayerID, ConversationID: member.ConversationID})
	}

	partner, err := a.partnerIdentity(ctx, member.ConversationID)
	if err != nil {
		return err
	}
	recent, err := a.world.RecentMessages(ctx, member.ConversationID, 8)
	if err != nil {
		return err
	}

	actionCtx, cancel := context.WithTimeout(ctx, ActionTimeout)
	defer cancel()
	resp, err := a.llm.Chat(actionCtx, llmclient.ChatRequest{
		Messages: buildConversationPrompt(a.PlayerID, a.Identity, partner, recent),
		Stop:     []string{StopMarker},
	})
	if err != nil {
		return fmt.Errorf("agent: conversation turn LLM call: %w", err)
	}

	if strings.Contains(resp.Content, StopMarker) || strings.TrimSpace(resp.Content) == "" {
		return a.submit(ctx, "leaveConversation", memberArgs{PlayerID: a.PlayerID, ConversationID: member.ConversationID})
	}

	a.lastMessageAt = now
	return a.submit(ctx, "sendMessage", sendMessageArgs{
		PlayerID:       a.PlayerID,
		ConversationID: member.ConversationID,
		Text:           resp.Content,
	})
}

// partnerIdentity finds the other participant in a two-party
// conversation and returns a minimal identity for prompt building.
func (a *Agent) partnerIdentity(ctx context.Context, conversationID string) (Identity, error) {
	members, err := a.world.ConversationMembers(ctx, conversationID)
	if err != nil {
		return Identity{}, err
	}
	for _, m := range members {
		if m.PlayerID == a.PlayerID {
			continue
		}
		snap, err := a.world.GetPlayer(ctx, m.PlayerID)
		if err != nil {
			return Identity{}, err
		}
		return Identity{Name: snap.Player.Name, Description: snap.Player.Description}, nil
	}
	return Identity{}, nil
}

// buildConversationPrompt builds the chat messages from the agent's
// identity, the partner's identity, and recent conversation history,
// oldest first, as the prompt-building contract requires.
func buildConversationPrompt(selfPlayerID string, self, partner Identity, recent []aitown.Message) []llmclient.Message {
	system := fmt.Sprintf(
		"You are %s. %s\nYou are talking with %s. %s\nReply with a short, in-character line of dialogue. "+
			"If the conversation has run its natural course, reply with exactly %q instead.",
		self.Name, self.Description, partner.Name, partner.Description, StopMarker,
	)
	msgs := []llmclient.Message{{Role: "system", Content: system}}
	for i := len(recent) - 1; i >= 0; i-- {
		m := recent[i]
		role := "user"
		if m.AuthorID == selfPlayerID {
			role = "assistant"
		}
		msgs = append(msgs, llmclient.Message{Role: role, Content: m.Text})
	}
	return msgs
}
