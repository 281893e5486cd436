// Package stringprocessing provides text utilities shared by the session
// and transcript layers, chiefly filesystem-safe naming.
package stringprocessing

import (
	"regexp"
	"strings"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// Slugify converts a label into a filesystem-safe slug. Runs of characters
// outside [A-Za-z0-9_.-] collapse to a single underscore; leading and
// trailing underscores are trimmed. Returns fallback when nothing survives.
func Slugify(label string, fallback string) string {
	slug := unsafeChars.ReplaceAllString(label, "_")
	slug = strings.Trim(slug, "_")
	if slug == "" {
		return fallback
	}
	return slug
}

// TranscriptBase derives the shared base name for a transcript file pair
// from the model slug, session label, and a run tag. The resulting files are
// <base>.log and <base>.jsonl inside the session directory.
func TranscriptBase(modelSlug, label, runTag string) string {
	return modelSlug + "-" + label + "-" + runTag
}
