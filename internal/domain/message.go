package domain

// Message senders.
const (
	SenderBot  = "bot"
	SenderUser = "user"
)

// ConversationMessage is one entry in the rendered transcript. Messages are
// append-only and never mutated after insertion.
type ConversationMessage struct {
	ID          int      `json:"id"` // monotonic per session
	Sender      string   `json:"sender"`
	Text        string   `json:"text"`
	Options     []string `json:"options,omitempty"`
	MultiSelect bool     `json:"multi_select,omitempty"`
}

// HistoryEntry mirrors a transcript message in the shape the dialogue
// gateway consumes. Kept separate so the rendered transcript and the model
// context can diverge.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
