// Package memstore holds per-sender conversation state for the life of the
// process. Conversations are never evicted from the map; bounded growth comes
// from the per-conversation retention cap.
package memstore

import (
	"sync"

	"whatsapp-ai-translator/internal/domain/model"
	"whatsapp-ai-translator/internal/domain/ports/repository"
)

// Compile-time check
var _ repository.ConversationStore = (*ConversationStore)(nil)

type entry struct {
	mu   sync.Mutex
	conv *model.Conversation
}

// ConversationStore is an in-memory repository.ConversationStore. Operations
// on the same sender are serialized by a per-entry mutex so concurrent
// webhook deliveries from one user cannot lose appends or invert ordering.
type ConversationStore struct {
	mu           sync.RWMutex
	bySender     map[string]*entry
	systemPrompt string
	retention    int
}

func NewConversationStore(systemPrompt string, retention int) *ConversationStore {
	if retention <= 0 {
		retention = 200
	}
	return &ConversationStore{
		bySender:     make(map[string]*entry),
		systemPrompt: systemPrompt,
		retention:    retention,
	}
}

func (s *ConversationStore) lookup(senderID string) *entry {
	s.mu.RLock()
	e := s.bySender[senderID]
	s.mu.RUnlock()
	if e != nil {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e = s.bySender[senderID]; e == nil {
		e = &entry{conv: model.NewConversation(senderID, s.systemPrompt)}
		s.bySender[senderID] = e
	}
	return e
}

func (s *ConversationStore) GetOrCreate(senderID string) model.Conversation {
	e := s.lookup(senderID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.conv.Touch()
	out := *e.conv
	out.Turns = e.conv.Snapshot()
	return out
}

func (s *ConversationStore) Append(senderID string, role model.Role, content string) {
	e := s.lookup(senderID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.conv.AddTurn(role, content)
	e.conv.Retain(s.retention)
}

func (s *ConversationStore) AppendVoice(senderID string, content string) {
	e := s.lookup(senderID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.conv.AddVoiceTurn(content)
	e.conv.Retain(s.retention)
}

func (s *ConversationStore) TrimAggressively(senderID string, keepLast int) {
	e := s.lookup(senderID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.conv.TrimTo(keepLast)
}

func (s *ConversationStore) History(senderID string) []model.Turn {
	e := s.lookup(senderID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.conv.Touch()
	return e.conv.Snapshot()
}

func (s *ConversationStore) Stats() repository.StoreStats {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.bySender))
	for _, e := range s.bySender {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	st := repository.StoreStats{Conversations: len(entries)}
	for _, e := range entries {
		e.mu.Lock()
		st.Turns += len(e.conv.Turns)
		st.ApproxBytes += e.conv.ApproxBytes()
		e.mu.Unlock()
	}
	return st
}
