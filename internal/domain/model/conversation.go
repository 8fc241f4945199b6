package model

import (
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message within a conversation.
type Turn struct {
	Role      Role
	Content   string
	Voice     bool // transcribed from a voice note
	Timestamp time.Time
}

// Conversation is the per-sender history aggregate. Turns[0] is always the
// system instruction turn and is never evicted.
type Conversation struct {
	SenderID     string
	Turns        []Turn
	LastActiveAt time.Time
}

func NewConversation(senderID, systemPrompt string) *Conversation {
	now := time.Now()
	return &Conversation{
		SenderID: senderID,
		Turns: []Turn{{
			Role:      RoleSystem,
			Content:   systemPrompt,
			Timestamp: now,
		}},
		LastActiveAt: now,
	}
}

func (c *Conversation) AddTurn(role Role, content string) {
	c.appendTurn(Turn{Role: role, Content: content, Timestamp: time.Now()})
}

// AddVoiceTurn records a user turn that originated from a transcribed voice note.
func (c *Conversation) AddVoiceTurn(content string) {
	c.appendTurn(Turn{Role: RoleUser, Content: content, Voice: true, Timestamp: time.Now()})
}

func (c *Conversation) appendTurn(t Turn) {
	c.Turns = append(c.Turns, t)
	c.LastActiveAt = time.Now()
}

// Touch marks the conversation as active without mutating its turns.
func (c *Conversation) Touch() {
	c.LastActiveAt = time.Now()
}

// Retain enforces the retention cap: when more than max non-system turns are
// present, only the system turn plus the most recent max turns survive, in
// original order (FIFO eviction).
func (c *Conversation) Retain(max int) {
	if max <= 0 || len(c.Turns) <= max+1 {
		return
	}
	kept := make([]Turn, 0, max+1)
	kept = append(kept, c.Turns[0])
	kept = append(kept, c.Turns[len(c.Turns)-max:]...)
	c.Turns = kept
}

// TrimTo replaces the history with the system turn plus the last keepLast
// turns. Used as context-overflow recovery with keepLast well below the
// normal retention cap.
func (c *Conversation) TrimTo(keepLast int) {
	if keepLast < 0 {
		keepLast = 0
	}
	if len(c.Turns) <= keepLast+1 {
		return
	}
	kept := make([]Turn, 0, keepLast+1)
	kept = append(kept, c.Turns[0])
	if keepLast > 0 {
		kept = append(kept, c.Turns[len(c.Turns)-keepLast:]...)
	}
	c.Turns = kept
}

// Snapshot returns a copy of the turn sequence so callers can hand it to the
// model without racing later appends.
func (c *Conversation) Snapshot() []Turn {
	out := make([]Turn, len(c.Turns))
	copy(out, c.Turns)
	return out
}

// ApproxBytes is a rough memory estimate for the stats endpoint.
func (c *Conversation) ApproxBytes() int64 {
	var n int64
	for _, t := range c.Turns {
		n += int64(len(t.Content)) + 64
	}
	return n
}
