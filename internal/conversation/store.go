// Package conversation holds the bounded, ordered turn history sent to the model.
package conversation

import (
	"sync"
	"time"
)

// Role tags the speaker of a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleSystemNote marks a fold-back summary of an executed command.
	RoleSystemNote Role = "system-note"
)

// DefaultMemorySize is the number of non-system turns kept by default.
const DefaultMemorySize = 10

// Turn is one message in the conversation. Turns are values; the store never
// hands out anything that aliases its own slice.
type Turn struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Store keeps the pinned system turn plus the most recent memorySize turns.
type Store struct {
	mu         sync.RWMutex
	turns      []Turn
	memorySize int
}

// New creates a store whose index 0 is the system turn. A negative
// memorySize is treated as zero, which keeps only the system turn.
func New(systemPrompt string, memorySize int) *Store {
	if memorySize < 0 {
		memorySize = 0
	}
	return &Store{
		turns:      []Turn{{Role: RoleSystem, Content: systemPrompt, At: time.Now()}},
		memorySize: memorySize,
	}
}

// Append adds a turn and trims the history in one step.
func (s *Store) Append(role Role, content string) Turn {
	turn := Turn{Role: role, Content: content, At: time.Now()}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = append(s.turns, turn)
	s.trimLocked()
	return turn
}

// trimLocked drops the oldest non-system turns beyond memorySize.
func (s *Store) trimLocked() {
	if len(s.turns) <= s.memorySize+1 {
		return
	}
	rest := s.turns[len(s.turns)-s.memorySize:]
	trimmed := make([]Turn, 0, s.memorySize+1)
	trimmed = append(trimmed, s.turns[0])
	trimmed = append(trimmed, rest...)
	s.turns = trimmed
}

// Snapshot returns a copy of every turn, system turn first.
func (s *Store) Snapshot() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// History returns a copy of every turn except the system turn.
func (s *Store) History() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Turn, len(s.turns)-1)
	copy(out, s.turns[1:])
	return out
}

// System returns the pinned system turn.
func (s *Store) System() Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.turns[0]
}

// Len returns the number of turns including the system turn.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// MemorySize returns the non-system turn limit.
func (s *Store) MemorySize() int {
	return s.memorySize
}
