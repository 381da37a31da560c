package session

import (
	"strconv"
	"sync"

	"github.com/kassist/kassist/internal/config"
	"github.com/kassist/kassist/internal/conversation"
)

// Session is everything one interactive run owns. Nothing here is global:
// two sessions never share a conversation or a safety flag.
type Session struct {
	Meta    Metadata
	Context *conversation.Store
	Config  config.Config

	mu                  sync.Mutex
	requireConfirmation bool
}

// New creates a session whose conversation starts with the system prompt
// built from meta and the personality config.
func New(meta Metadata, cfg config.Config) *Session {
	prompt := conversation.SystemPrompt(conversation.PromptContext{
		User:      meta.User,
		Platform:  meta.Platform,
		Start:     meta.StartTime,
		Name:      cfg.Personality.Name,
		Tone:      cfg.Personality.Tone,
		Verbosity: cfg.Personality.Verbosity,
	})
	return &Session{
		Meta:                meta,
		Context:             conversation.New(prompt, cfg.Context.MemorySize),
		Config:              cfg,
		requireConfirmation: cfg.Security.RequireConfirmation,
	}
}

// RequireConfirmation reports whether commands are confirmed before running.
func (s *Session) RequireConfirmation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requireConfirmation
}

// ToggleSafety flips the confirmation prompt and returns the new state.
// The danger-pattern veto is not affected.
func (s *Session) ToggleSafety() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requireConfirmation = !s.requireConfirmation
	return s.requireConfirmation
}

// InfoItem is one line of the system information report.
type InfoItem struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// SystemInfo returns the system information report in display order.
func (s *Session) SystemInfo() []InfoItem {
	return []InfoItem{
		{"system", s.Meta.Platform},
		{"user", s.Meta.User},
		{"wsl", strconv.FormatBool(s.Meta.WSL)},
		{"root", strconv.FormatBool(s.Meta.Root)},
		{"session_start", s.Meta.StartTime.Format("2006-01-02 15:04:05")},
		{"context_size", strconv.Itoa(s.Context.Len() - 1)},
	}
}
