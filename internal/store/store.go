// Package store persists per-conversation chat history as a flat JSON file.
// The whole file is read once at startup and rewritten on every mutation;
// all reads are served from the in-memory mirror.
package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Record is one conversation's history. Messages[0] is always the single
// system entry holding the current prompt. Channel, ChatID, and Group carry
// the platform address so greeting sweeps can reach the conversation after
// a restart.
type Record struct {
	ID       string    `json:"id"`
	Channel  string    `json:"channel,omitempty"`
	ChatID   string    `json:"chatId,omitempty"`
	Group    bool      `json:"group,omitempty"`
	Messages []Message `json:"messages"`
}

type Options struct {
	DefaultPrompt string
	TokenLimit    int
	// CountTokens overrides the default tiktoken-based counter (used by tests).
	CountTokens func(string) int
}

type Store struct {
	path string
	opts Options

	mu      sync.Mutex
	records []Record
}

// Open loads the backing file into memory. A missing, unreadable, or corrupt
// file is not fatal: the store starts empty and logs a warning.
func Open(path string, opts Options) *Store {
	if opts.CountTokens == nil {
		opts.CountTokens = countTokens
	}
	s := &Store{path: path, opts: opts}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[store] read %s: %v, starting empty", path, err)
		}
		return s
	}
	if err := json.Unmarshal(data, &s.records); err != nil {
		log.Printf("[store] parse %s: %v, starting empty", path, err)
		s.records = nil
	}
	return s
}

// GetOrCreate returns a copy of the conversation record, creating it with
// the default prompt (and persisting) on first sight.
func (s *Store) GetOrCreate(id string) Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyRecord(*s.getOrCreateLocked(id))
}

// History returns a copy of the conversation's messages, creating the
// conversation if it does not exist yet.
func (s *Store) History(id string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.getOrCreateLocked(id)
	out := make([]Message, len(rec.Messages))
	copy(out, rec.Messages)
	return out
}

// SetPrompt replaces the conversation's system entry.
func (s *Store) SetPrompt(id, prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.getOrCreateLocked(id)
	rec.Messages[0].Content = prompt
	s.saveLocked()
}

// AppendUser appends a user turn, evicting the oldest non-system entries
// while the token budget is exceeded.
func (s *Store) AppendUser(id, text string) {
	s.append(id, Message{Role: RoleUser, Content: text})
}

// AppendAssistant appends an assistant turn with the same eviction rule.
func (s *Store) AppendAssistant(id, text string) {
	s.append(id, Message{Role: RoleAssistant, Content: text})
}

func (s *Store) append(id string, msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.getOrCreateLocked(id)
	rec.Messages = append(rec.Messages, msg)
	s.trimLocked(rec)
	s.saveLocked()
}

// Clear resets the conversation to a single system entry with the default
// prompt.
func (s *Store) Clear(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.getOrCreateLocked(id)
	rec.Messages = []Message{{Role: RoleSystem, Content: s.opts.DefaultPrompt}}
	s.saveLocked()
}

// SetRoute records the conversation's platform address. A no-op when the
// address is unchanged, so the common per-message call does not rewrite the
// file.
func (s *Store) SetRoute(id, channel, chatID string, group bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.getOrCreateLocked(id)
	if rec.Channel == channel && rec.ChatID == chatID && rec.Group == group {
		return
	}
	rec.Channel = channel
	rec.ChatID = chatID
	rec.Group = group
	s.saveLocked()
}

// Records returns a copy of every conversation record.
func (s *Store) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, copyRecord(rec))
	}
	return out
}

// IDs returns the ids of all known conversations.
func (s *Store) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.records))
	for _, rec := range s.records {
		ids = append(ids, rec.ID)
	}
	return ids
}

// Flush rewrites the backing file from the mirror.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked()
}

func (s *Store) getOrCreateLocked(id string) *Record {
	for i := range s.records {
		if s.records[i].ID == id {
			return &s.records[i]
		}
	}
	s.records = append(s.records, Record{
		ID:       id,
		Messages: []Message{{Role: RoleSystem, Content: s.opts.DefaultPrompt}},
	})
	s.saveLocked()
	return &s.records[len(s.records)-1]
}

// trimLocked evicts the oldest non-system entries while the conversation is
// over the token budget. The system entry at index 0 is never evicted.
func (s *Store) trimLocked(rec *Record) {
	if s.opts.TokenLimit <= 0 {
		return
	}
	for len(rec.Messages) > 1 && s.tokensLocked(rec) > s.opts.TokenLimit {
		rec.Messages = append(rec.Messages[:1], rec.Messages[2:]...)
	}
}

func (s *Store) tokensLocked(rec *Record) int {
	total := 0
	for _, m := range rec.Messages {
		total += s.opts.CountTokens(m.Content)
	}
	return total
}

// saveLocked persists the mirror; a write failure is logged and the store
// keeps serving from memory.
func (s *Store) saveLocked() {
	if err := s.writeLocked(); err != nil {
		log.Printf("[store] save %s: %v", s.path, err)
	}
}

func (s *Store) writeLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}
	return os.WriteFile(s.path, data, 0644)
}

func copyRecord(rec Record) Record {
	out := rec
	out.Messages = make([]Message, len(rec.Messages))
	copy(out.Messages, rec.Messages)
	return out
}
