package aitown

import (
	"github.com/charmbracelet/log"

	"github.com/wricardo/aitown/internal/config"
)

// defaultConversationConfig supplies the conversation distance and
// duration limits from config.Defaults(); World takes no config of its
// own, so these values are not overridable per deployment.
var defaultConversationConfig = config.Defaults()

// advanceConversations promotes walkingOver members to participating
// once both parties are within ConversationDistance, marks finished
// conversations whose membership has dropped below two, and enforces
// the max-duration cap. The max-message cap is enforced by
// handleSendMessage, not here.
func (tx *txState) advanceConversations(now int64, logger *log.Logger) error {
	cfg := defaultConversationConfig
	for _, conv := range tx.conversations.Filter(func(string, Conversation) bool { return true }) {
		if conv.Finished != nil {
			continue
		}

		members := tx.members.Filter(func(_ string, m ConversationMember) bool {
			return m.ConversationID == conv.ID
		})

		active := 0
		for _, m := range members {
			if m.Status != MemberLeft {
				active++
			}
		}
		if active < 2 {
			tx.finishConversation(conv.ID, now, "abandoned")
			logger.Debug("conversation abandoned", "conversation", conv.ID)
			continue
		}

		if now-conv.StartedAt > cfg.MaxConversationDuration.Milliseconds() {
			tx.finishConversation(conv.ID, now, "timeout")
			logger.Debug("conversation timed out", "conversation", conv.ID)
			continue
		}

		walkingOver := make([]ConversationMember, 0, len(members))
		for _, m := range members {
			if m.Status == MemberWalkingOver {
				walkingOver = append(walkingOver, m)
			}
		}
		if len(walkingOver) < 2 {
			continue
		}
		if !tx.membersWithinDistance(walkingOver, cfg.ConversationDistance) {
			continue
		}
		for _, m := range walkingOver {
			id := memberID(m.ConversationID, m.PlayerID)
			_ = tx.members.Update(id, func(cur ConversationMember) ConversationMember {
				cur.Status = MemberParticipating
				cur.JoinedAt = now
				return cur
			})
		}
	}
	return nil
}

func (tx *txState) membersWithinDistance(members []ConversationMember, distance float64) bool {
	positions := make([]float64, 0, len(members)*2)
	for _, m := range members {
		p, err := tx.players.Lookup(m.PlayerID)
		if err != nil || p.LocationID == "" {
			return false
		}
		loc, err := tx.locations.Lookup(p.LocationID)
		if err != nil {
			return false
		}
		positions = append(positions, loc.X, loc.Y)
	}
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			dx := positions[i*2] - positions[j*2]
			dy := positions[i*2+1] - positions[j*2+1]
			if dx*dx+dy*dy > distance*distance {
				return false
			}
		}
	}
	return true
}

func (tx *txState) finishConversation(conversationID string, now int64, reason string) {
	_ = tx.conversations.Update(conversationID, func(c Conversation) Conversation {
		c.Finished = &ConversationEnd{EndedAt: now, Reason: reason}
		return c
	})
}
