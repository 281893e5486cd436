// Package chattypes defines the session and conversation types shared across
// nrpchat. It contains the core types for message history, durable chat
// sessions, and the static model metadata carried alongside the NRP endpoint.
package chattypes

import (
	"path/filepath"
	"time"
)

// Message roles as used by the OpenAI-compatible chat completion API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single message in a conversation history.
// Messages track the role (system/user/assistant), content, and timestamp
// for each interaction.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session represents a named chat session that may span multiple models.
// A session is backed by one directory under the logs root; every model used
// within the session writes its transcripts into that directory.
type Session struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	DisplayName string    `json:"display_name"`
	Title       string    `json:"title,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Path        string    `json:"-"`
}

// CreatedTag returns the creation timestamp in the compact form used in
// session ids and transcript file names.
func (s *Session) CreatedTag() string {
	return s.CreatedAt.Format("20060102-150405")
}

// MetadataPath returns the location of the session.json metadata file.
func (s *Session) MetadataPath() string {
	return filepath.Join(s.Path, "session.json")
}

// TranscriptRecord is one structured line in a .jsonl transcript file.
// The write path appends these; session resume replays them into Messages.
type TranscriptRecord struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Model     string    `json:"model,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
}

// ModelStatus classifies catalog entries by deployment tier on the platform.
const (
	ModelStatusMain       = "main"
	ModelStatusEval       = "eval"
	ModelStatusDeprecated = "dep"
)

// ModelCatalogEntry holds static metadata for one hosted model, merged with
// the live /v1/models listing when models are displayed.
type ModelCatalogEntry struct {
	ID            string `yaml:"id" json:"id"`
	Status        string `yaml:"status" json:"status"`
	Title         string `yaml:"title" json:"title"`
	Parameters    string `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	ContextTokens int    `yaml:"context_tokens,omitempty" json:"context_tokens,omitempty"`
	Features      string `yaml:"features" json:"features"`
	Notes         string `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// ModelInfo combines a live model listing entry with catalog metadata.
// Catalog fields are zero-valued for models the catalog does not know about.
type ModelInfo struct {
	ID      string
	Created time.Time
	ModelCatalogEntry
}
