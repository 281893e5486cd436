// Package transcript implements the append-only write path for per-model
// conversation logs. Each (session, model) pair gets a human-readable .log
// file and a structured .jsonl file; reading transcripts back is the
// session package's job, keeping the write and resume paths decoupled.
package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"nrpchat/internal/stringprocessing"
	"nrpchat/pkg/chattypes"
)

// Writer appends conversation records for one model within one session.
// Files are created lazily on the first record so selecting a model without
// ever sending to it leaves no empty transcripts behind. Every append opens,
// writes, syncs, and closes the file, so a crash mid-session loses at most
// the in-flight exchange.
type Writer struct {
	model        string
	session      *chattypes.Session
	systemPrompt string
	logger       *log.Logger

	logPath   string
	jsonlPath string

	headerWritten bool
}

// Open prepares a transcript writer for the given session and model. The
// file base combines the model slug, session label, and a fresh run tag, so
// each process run appends to its own file pair while resume reads the
// whole series back in order.
func Open(session *chattypes.Session, model string, systemPrompt string, logger *log.Logger) *Writer {
	modelSlug := stringprocessing.Slugify(model, "model")
	base := stringprocessing.TranscriptBase(modelSlug, session.Label, time.Now().Format("20060102-150405"))

	return &Writer{
		model:        model,
		session:      session,
		systemPrompt: systemPrompt,
		logger:       logger,
		logPath:      filepath.Join(session.Path, base+".log"),
		jsonlPath:    filepath.Join(session.Path, base+".jsonl"),
	}
}

// LogPath returns the human-readable transcript location.
func (w *Writer) LogPath() string {
	return w.logPath
}

// JSONLPath returns the structured record file location.
func (w *Writer) JSONLPath() string {
	return w.jsonlPath
}

// Record appends one exchange line to the human log and one structured
// record to the jsonl file. The first call also writes the log header. The
// system prompt is part of the header, not the structured stream; the
// structured stream carries exactly the user and assistant exchanges.
func (w *Writer) Record(role, content string) error {
	if err := w.ensureFiles(); err != nil {
		return err
	}

	now := time.Now()
	line := fmt.Sprintf("[%s] %s: %s\n", now.Format(time.RFC3339), role, content)
	if err := appendString(w.logPath, line); err != nil {
		return fmt.Errorf("failed to append transcript log: %w", err)
	}

	record := chattypes.TranscriptRecord{
		Role:      role,
		Content:   content,
		Timestamp: now,
		Model:     w.model,
		SessionID: w.session.ID,
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode transcript record: %w", err)
	}
	if err := appendString(w.jsonlPath, string(data)+"\n"); err != nil {
		return fmt.Errorf("failed to append transcript record: %w", err)
	}

	w.logger.Debug("transcript record written", "model", w.model, "role", role)
	return nil
}

// ensureFiles lazily creates the transcript pair, writing the identifying
// header into the human log.
func (w *Writer) ensureFiles() error {
	if w.headerWritten {
		return nil
	}

	if err := os.MkdirAll(w.session.Path, 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	if _, err := os.Stat(w.logPath); os.IsNotExist(err) {
		header := fmt.Sprintf("conversation started: %s\nmodel: %s\nsession: %s (%s)\n",
			w.session.CreatedAt.Format(time.RFC3339), w.model, w.session.DisplayName, w.session.ID)
		if w.systemPrompt != "" {
			header += fmt.Sprintf("system: %s\n", w.systemPrompt)
		}
		header += "\n"
		if err := appendString(w.logPath, header); err != nil {
			return fmt.Errorf("failed to write transcript header: %w", err)
		}
	}

	w.headerWritten = true
	return nil
}

// appendString opens the file in append mode, writes, syncs, and closes.
// Transcripts are never truncated or rewritten.
func appendString(path string, s string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	if _, err := file.WriteString(s); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
