package flexge

import (
	"time"

	"github.com/mikaelzzzz/flexge-notion-sync/internal/domain/student"
)

// Mapper converts Flexge API DTOs into domain objects.
type Mapper struct{}

// NewMapper creates a new Mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// RecordFromDTO maps one student entry plus its overview course name into a
// domain record. The course name goes through level extraction so free-form
// names like "Adventures" or "Pre-A1 Kids" collapse to canonical tokens.
func (m *Mapper) RecordFromDTO(dto StudentDTO, courseName string, fetchedAt time.Time) student.Record {
	return student.Record{
		ID:             student.ID(dto.ID),
		Name:           dto.Name,
		Level:          student.ExtractLevel(courseName),
		StudiedMinutes: student.StudyMinutes(dto.TotalStudiedMinutes()),
		FetchedAt:      fetchedAt,
	}
}
