// Package gateway talks to the remote dialogue service that drives the
// AI side of the conversation. The service is opaque: the engine sends the
// conversation history, a lead snapshot, and the latest visitor message, and
// receives the bot reply plus structured extraction data.
package gateway

import (
	"context"

	"github.com/mwhitford/leadchat/internal/domain"
)

// TurnRequest is one dialogue turn sent to the gateway. The lead snapshot is
// a clone; the gateway never observes in-progress merges.
type TurnRequest struct {
	ConversationHistory []domain.HistoryEntry `json:"conversationHistory"`
	LeadRecord          *domain.LeadRecord    `json:"leadRecord"`
	LatestMessage       string                `json:"latestMessage"`
}

// TurnReply is the gateway's answer to a turn. A non-empty Error means the
// turn failed semantically; the caller must not advance the phase or mutate
// the lead from such a reply.
type TurnReply struct {
	Text              string         `json:"text"`
	SuggestedActions  []string       `json:"suggestedActions"`
	ExtractedData     map[string]any `json:"extractedData"`
	ConversationPhase string         `json:"conversationPhase"`
	Error             string         `json:"error,omitempty"`
}

// DialogueGateway advances the AI dialogue by one turn.
type DialogueGateway interface {
	CompleteTurn(ctx context.Context, req *TurnRequest) (*TurnReply, error)
}
