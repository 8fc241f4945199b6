package repository

import (
	"whatsapp-ai-translator/internal/domain/model"
)

// StoreStats is an informational snapshot for the stats endpoint.
type StoreStats struct {
	Conversations int
	Turns         int
	ApproxBytes   int64
}

// ConversationStore owns the sender-to-conversation mapping with bounded
// growth. Implementations must serialize operations on the same sender so
// near-simultaneous messages from one user cannot lose appends or invert
// ordering. None of these operations can fail; they only manage in-memory
// structures.
type ConversationStore interface {
	// GetOrCreate returns a snapshot of the sender's conversation, creating
	// it seeded with the system turn on first contact. Bumps LastActiveAt.
	GetOrCreate(senderID string) model.Conversation

	// Append adds a turn and applies the retention policy.
	Append(senderID string, role model.Role, content string)

	// AppendVoice adds a voice-annotated user turn and applies retention.
	AppendVoice(senderID string, content string)

	// TrimAggressively replaces the history with the system turn plus the
	// last keepLast turns. Overflow recovery only.
	TrimAggressively(senderID string, keepLast int)

	// History returns a copy of the sender's turn sequence, creating the
	// conversation if absent.
	History(senderID string) []model.Turn

	Stats() StoreStats
}
