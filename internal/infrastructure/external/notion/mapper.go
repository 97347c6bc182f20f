package notion

import (
	"fmt"
	"math"

	"github.com/mikaelzzzz/flexge-notion-sync/internal/domain/student"
	syncdomain "github.com/mikaelzzzz/flexge-notion-sync/internal/domain/sync"
)

// Mapper converts between domain objects and Notion page properties.
type Mapper struct{}

// NewMapper creates a new Mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// PropertiesFromRecord builds the full property set of a weekly report page.
// Study time is written as fractional hours; the week label pins the page to
// its epoch.
func (m *Mapper) PropertiesFromRecord(rec student.Record, epoch syncdomain.Epoch) map[string]PropertyDTO {
	hours := rec.StudiedMinutes.Hours()
	return map[string]PropertyDTO{
		PropName: {
			Title: []RichTextDTO{{Text: &TextDTO{Content: rec.Name}}},
		},
		PropStudentID: {
			RichText: []RichTextDTO{{Text: &TextDTO{Content: rec.ID.String()}}},
		},
		PropLevel: {
			Select: &SelectDTO{Name: string(rec.Level)},
		},
		PropHours: {
			Number: &hours,
		},
		PropWeek: {
			Select: &SelectDTO{Name: epoch.Label()},
		},
	}
}

// SnapshotFromPage reconstructs a page snapshot from query results so the
// caller can recompute the content fingerprint. Pages missing the student id
// are rejected: without a stable identity they cannot enter the cache.
func (m *Mapper) SnapshotFromPage(page PageDTO) (syncdomain.PageSnapshot, error) {
	id := page.Properties[PropStudentID].FirstText()
	if id == "" {
		return syncdomain.PageSnapshot{}, fmt.Errorf("page %s has no student id", page.ID)
	}

	var minutes int
	if n := page.Properties[PropHours].Number; n != nil {
		minutes = int(math.Round(*n * 60))
	}

	return syncdomain.PageSnapshot{
		Ref: syncdomain.PageRef(page.ID),
		Student: student.Record{
			ID:             student.ID(id),
			Name:           page.Properties[PropName].FirstText(),
			Level:          student.Level(page.Properties[PropLevel].SelectName()),
			StudiedMinutes: student.StudyMinutes(minutes),
		},
	}, nil
}
