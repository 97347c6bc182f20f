// Package student contains the domain model for a student as reported by the
// source provider. This is the core of the business logic - no external
// service dependencies live here.
package student

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/mikaelzzzz/flexge-notion-sync/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// ID is the stable student identifier assigned by the source provider.
type ID string

// IsValid reports whether the ID is usable as a dedup key.
func (id ID) IsValid() bool {
	return strings.TrimSpace(string(id)) != ""
}

// String returns the string representation of the ID.
func (id ID) String() string {
	return string(id)
}

// Level is the canonical CEFR level token of a student (A1..C2).
type Level string

// Known canonical levels. LevelUnknown is used when the source provider
// reports a course name no token can be extracted from.
const (
	LevelA1      Level = "A1"
	LevelA2      Level = "A2"
	LevelB1      Level = "B1"
	LevelB2      Level = "B2"
	LevelC1      Level = "C1"
	LevelC2      Level = "C2"
	LevelUnknown Level = "unknown"
)

var canonicalLevels = map[string]Level{
	"A1": LevelA1, "A2": LevelA2,
	"B1": LevelB1, "B2": LevelB2,
	"C1": LevelC1, "C2": LevelC2,
}

// ExtractLevel pulls a canonical level token out of free-form course text.
// Pre-A1 variants ("PREA1", "PRE-A1") and the "Adventures" kids course both
// collapse to A1, matching how the school reports beginner students.
func ExtractLevel(text string) Level {
	upper := strings.ToUpper(text)
	if strings.Contains(upper, "ADVENTURES") {
		return LevelA1
	}
	for _, token := range splitAlnum(upper) {
		if strings.HasPrefix(token, "PREA1") || token == "PRE" {
			return LevelA1
		}
		if lvl, ok := canonicalLevels[token]; ok {
			return lvl
		}
	}
	return LevelUnknown
}

// splitAlnum splits text on every non-alphanumeric rune.
func splitAlnum(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// StudyMinutes is the accumulated study time for the current week.
type StudyMinutes int

// IsValid reports whether the value is non-negative.
func (m StudyMinutes) IsValid() bool {
	return m >= 0
}

// Hours converts the studied time to fractional hours for display.
func (m StudyMinutes) Hours() float64 {
	return float64(m) / 60.0
}

// NormalizeName strips accents, lowercases and trims a display name so that
// the same student always fingerprints identically regardless of how the
// source provider spells the name on a given day.
func NormalizeName(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue // combining mark left over from decomposition
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return strings.TrimSpace(b.String())
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT RECORD
// ══════════════════════════════════════════════════════════════════════════════

// Record is a read-only snapshot of one student as of FetchedAt. Records are
// never mutated locally - each sync run re-fetches the roster.
type Record struct {
	// ID is the stable identity from the source provider.
	ID ID

	// Name is the display name.
	Name string

	// Level is the canonical level token.
	Level Level

	// StudiedMinutes is the study time accumulated in the current week.
	StudiedMinutes StudyMinutes

	// FetchedAt is when this snapshot was taken.
	FetchedAt time.Time
}

// Validate checks the record carries every field that ends up on a target
// page. A record failing validation is a data-shape error: the student is
// recorded as failed for the run but does not abort it.
func (r Record) Validate() error {
	if !r.ID.IsValid() {
		return shared.WrapError("student", "Validate", shared.ErrInvalidID, "empty student id", nil)
	}
	if strings.TrimSpace(r.Name) == "" {
		return shared.WrapError("student", "Validate", shared.ErrEmptyValue, "empty student name", nil)
	}
	if !r.StudiedMinutes.IsValid() {
		return shared.WrapError("student", "Validate", shared.ErrValidation, "negative studied time", nil)
	}
	return nil
}
