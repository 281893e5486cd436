// Package session manages durable chat sessions on disk. A session is a
// named directory under the logs root holding session.json metadata plus
// the transcript files of every model used within it. The store owns
// session lifecycle and the resume path; transcript writing lives in the
// transcript package.
package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"nrpchat/internal/stringprocessing"
	"nrpchat/pkg/chattypes"
)

const metadataFile = "session.json"

var runTagPattern = regexp.MustCompile(`^\d{8}-\d{6}$`)

// metadata is the on-disk shape of session.json.
type metadata struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	Title       string    `json:"title,omitempty"`
	Version     int       `json:"version"`
}

// Store manages chat sessions under a base directory.
type Store struct {
	baseDir string
	logger  *log.Logger
}

// NewStore creates a session store rooted at baseDir, creating the
// directory if needed.
func NewStore(baseDir string, logger *log.Logger) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create base directory %s: %v", ErrSessionIO, baseDir, err)
	}
	return &Store{baseDir: baseDir, logger: logger}, nil
}

// BaseDir returns the directory sessions live under.
func (st *Store) BaseDir() string {
	return st.baseDir
}

// Create makes a fresh session for the given label. The session id combines
// the label slug with the creation timestamp, so repeated labels produce
// distinct sessions.
func (st *Store) Create(label string) (*chattypes.Session, error) {
	return st.CreateAt(label, "", time.Now())
}

// CreateAt is Create with an explicit title and creation time.
func (st *Store) CreateAt(label, title string, createdAt time.Time) (*chattypes.Session, error) {
	slug := stringprocessing.Slugify(label, "session")
	id := slug + "-" + createdAt.Format("20060102-150405")
	path := filepath.Join(st.baseDir, id)

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create session directory %s: %v", ErrSessionIO, path, err)
	}

	displayName := label
	if strings.TrimSpace(displayName) == "" {
		displayName = slug
	}

	sess := &chattypes.Session{
		ID:          id,
		Label:       slug,
		DisplayName: displayName,
		Title:       title,
		CreatedAt:   createdAt,
		Path:        path,
	}

	if err := st.writeMetadata(sess); err != nil {
		return nil, err
	}

	st.logger.Info("session created", "id", sess.ID, "path", sess.Path)
	return sess, nil
}

// GetOrCreate resumes the most recent session matching the label, or
// creates a new one. With resume false it always creates.
func (st *Store) GetOrCreate(label string, resume bool) (*chattypes.Session, error) {
	if resume {
		if existing := st.FindLatestByLabel(label); existing != nil {
			st.logger.Info("session resumed", "id", existing.ID)
			return existing, nil
		}
	}
	return st.Create(label)
}

// FindLatestByLabel returns the newest session whose label slug matches,
// or nil when none exists.
func (st *Store) FindLatestByLabel(label string) *chattypes.Session {
	slug := stringprocessing.Slugify(label, "session")
	for _, sess := range st.List() {
		if sess.Label == slug {
			return sess
		}
	}
	return nil
}

// List returns all sessions with readable metadata, newest first.
// Directories without session.json, and unparseable metadata, are skipped.
func (st *Store) List() []*chattypes.Session {
	entries, err := os.ReadDir(st.baseDir)
	if err != nil {
		st.logger.Warn("could not enumerate sessions", "dir", st.baseDir, "error", err)
		return nil
	}

	var sessions []*chattypes.Session
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sess, err := st.readMetadata(filepath.Join(st.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		sessions = append(sessions, sess)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions
}

// Load returns the session with the given id.
func (st *Store) Load(id string) (*chattypes.Session, error) {
	path := filepath.Join(st.baseDir, id)
	if _, err := os.Stat(filepath.Join(path, metadataFile)); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess, err := st.readMetadata(path)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Delete removes a session directory and everything in it.
func (st *Store) Delete(id string) error {
	path := filepath.Join(st.baseDir, id)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("%w: delete session %s: %v", ErrSessionIO, id, err)
	}
	st.logger.Info("session deleted", "id", id)
	return nil
}

// LoadHistory replays the structured transcript records of one model within
// a session into an ordered message history. Files accumulate one per run;
// the run tag in the file name keeps lexical order equal to chronological
// order, so the whole series is replayed oldest file first. Malformed lines
// are skipped with a warning rather than failing the resume. The system
// prompt appears at most once, at position 0.
func (st *Store) LoadHistory(sess *chattypes.Session, model string) ([]chattypes.Message, error) {
	modelSlug := stringprocessing.Slugify(model, "model")
	pattern := filepath.Join(sess.Path, modelSlug+"-"+sess.Label+"-*.jsonl")
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: match transcripts for %s: %v", ErrSessionIO, model, err)
	}
	sort.Strings(paths)

	var messages []chattypes.Message
	systemSeen := false
	for _, path := range paths {
		if err := st.replayFile(path, &messages, &systemSeen); err != nil {
			return nil, err
		}
	}
	return messages, nil
}

// replayFile appends the valid records of one jsonl file to the history.
func (st *Store) replayFile(path string, messages *[]chattypes.Message, systemSeen *bool) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open transcript %s: %v", ErrSessionIO, path, err)
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var record chattypes.TranscriptRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			st.logger.Warn("skipping malformed transcript record", "file", filepath.Base(path), "line", lineNo, "error", err)
			continue
		}
		if record.Role == "" {
			st.logger.Warn("skipping transcript record without role", "file", filepath.Base(path), "line", lineNo)
			continue
		}

		if record.Role == chattypes.RoleSystem {
			// Each run's file carries its own system record; keep one.
			if *systemSeen {
				continue
			}
			*systemSeen = true
		}

		*messages = append(*messages, chattypes.Message{
			ID:        uuid.NewString(),
			Role:      record.Role,
			Content:   record.Content,
			Timestamp: record.Timestamp,
		})
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: read transcript %s: %v", ErrSessionIO, path, err)
	}
	return nil
}

// Models reports the model ids previously used in a session, derived from
// the transcript file names in its directory.
func (st *Store) Models(sess *chattypes.Session) []string {
	entries, err := os.ReadDir(sess.Path)
	if err != nil {
		st.logger.Warn("could not inspect session directory", "id", sess.ID, "error", err)
		return nil
	}

	seen := make(map[string]bool)
	var models []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		model, ok := parseTranscriptName(strings.TrimSuffix(name, ".jsonl"), sess.Label)
		if !ok || seen[model] {
			continue
		}
		seen[model] = true
		models = append(models, model)
	}

	sort.Strings(models)
	return models
}

// parseTranscriptName splits <model>-<label>-<runtag> and returns the model
// slug. The run tag format is fixed, so it anchors the parse even when the
// model slug itself contains dashes.
func parseTranscriptName(base, label string) (string, bool) {
	const tagLen = 15 // 20060102-150405
	if len(base) < tagLen+1 {
		return "", false
	}
	tag := base[len(base)-tagLen:]
	if !runTagPattern.MatchString(tag) || base[len(base)-tagLen-1] != '-' {
		return "", false
	}

	rest := base[:len(base)-tagLen-1]
	suffix := "-" + label
	if !strings.HasSuffix(rest, suffix) {
		return "", false
	}

	model := strings.TrimSuffix(rest, suffix)
	return model, model != ""
}

// writeMetadata persists session.json for a session.
func (st *Store) writeMetadata(sess *chattypes.Session) error {
	data, err := json.MarshalIndent(metadata{
		ID:          sess.ID,
		Label:       sess.Label,
		DisplayName: sess.DisplayName,
		CreatedAt:   sess.CreatedAt,
		Title:       sess.Title,
		Version:     1,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode metadata for %s: %v", ErrSessionIO, sess.ID, err)
	}

	if err := os.WriteFile(sess.MetadataPath(), data, 0o644); err != nil {
		return fmt.Errorf("%w: write metadata for %s: %v", ErrSessionIO, sess.ID, err)
	}
	return nil
}

// readMetadata loads a session from its directory.
func (st *Store) readMetadata(path string) (*chattypes.Session, error) {
	data, err := os.ReadFile(filepath.Join(path, metadataFile))
	if err != nil {
		return nil, fmt.Errorf("%w: read metadata in %s: %v", ErrSessionIO, path, err)
	}

	var meta metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%w: parse metadata in %s: %v", ErrSessionIO, path, err)
	}

	label := meta.Label
	if label == "" {
		label = meta.ID
	}
	displayName := meta.DisplayName
	if displayName == "" {
		displayName = label
	}

	return &chattypes.Session{
		ID:          meta.ID,
		Label:       label,
		DisplayName: displayName,
		Title:       meta.Title,
		CreatedAt:   meta.CreatedAt,
		Path:        path,
	}, nil
}
