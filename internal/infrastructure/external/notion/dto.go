// Package notion implements the Notion API client. It is the target provider
// of the sync engine: one database page represents one (student, week) pair.
package notion

// ══════════════════════════════════════════════════════════════════════════════
// PROPERTY DTOs
// ══════════════════════════════════════════════════════════════════════════════

// TextDTO is the inner text content of a rich text fragment.
type TextDTO struct {
	Content string `json:"content"`
}

// RichTextDTO is one fragment of a rich text or title property. Content is
// set when writing; PlainText is what query responses carry back.
type RichTextDTO struct {
	Text      *TextDTO `json:"text,omitempty"`
	PlainText string   `json:"plain_text,omitempty"`
}

// Value returns the fragment's text regardless of direction.
func (r RichTextDTO) Value() string {
	if r.PlainText != "" {
		return r.PlainText
	}
	if r.Text != nil {
		return r.Text.Content
	}
	return ""
}

// SelectDTO is a select property option.
type SelectDTO struct {
	Name string `json:"name"`
}

// PropertyDTO is one page property. Exactly one of the value fields is set
// depending on the property type.
type PropertyDTO struct {
	Title    []RichTextDTO `json:"title,omitempty"`
	RichText []RichTextDTO `json:"rich_text,omitempty"`
	Number   *float64      `json:"number,omitempty"`
	Select   *SelectDTO    `json:"select,omitempty"`
}

// FirstText returns the first fragment's text of a title or rich text
// property, or "".
func (p PropertyDTO) FirstText() string {
	if len(p.Title) > 0 {
		return p.Title[0].Value()
	}
	if len(p.RichText) > 0 {
		return p.RichText[0].Value()
	}
	return ""
}

// SelectName returns the select option name, or "".
func (p PropertyDTO) SelectName() string {
	if p.Select == nil {
		return ""
	}
	return p.Select.Name
}

// Property name constants of the weekly report database.
const (
	PropName      = "Name"
	PropStudentID = "Student ID"
	PropLevel     = "Level"
	PropHours     = "Study Hours"
	PropWeek      = "Week"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST DTOs
// ══════════════════════════════════════════════════════════════════════════════

// ParentDTO identifies the database a page belongs to.
type ParentDTO struct {
	DatabaseID string `json:"database_id"`
}

// CreatePageRequestDTO is the body of a page creation call.
type CreatePageRequestDTO struct {
	Parent     ParentDTO              `json:"parent"`
	Properties map[string]PropertyDTO `json:"properties"`
}

// UpdatePageRequestDTO is the body of a page patch call. Archived is a
// pointer so plain property updates omit it.
type UpdatePageRequestDTO struct {
	Properties map[string]PropertyDTO `json:"properties,omitempty"`
	Archived   *bool                  `json:"archived,omitempty"`
}

// QueryRequestDTO is the body of a database query call.
type QueryRequestDTO struct {
	Filter      *FilterDTO `json:"filter,omitempty"`
	PageSize    int        `json:"page_size,omitempty"`
	StartCursor string     `json:"start_cursor,omitempty"`
}

// FilterDTO filters a database query on a single select property.
type FilterDTO struct {
	Property string    `json:"property"`
	Select   SelectDTO `json:"select"`
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE DTOs
// ══════════════════════════════════════════════════════════════════════════════

// PageDTO is one page as returned by create and query calls.
type PageDTO struct {
	ID         string                 `json:"id"`
	Archived   bool                   `json:"archived"`
	Properties map[string]PropertyDTO `json:"properties"`
}

// QueryResponseDTO is one page of database query results.
type QueryResponseDTO struct {
	Results    []PageDTO `json:"results"`
	HasMore    bool      `json:"has_more"`
	NextCursor string    `json:"next_cursor"`
}

// APIErrorDTO represents an error response from the API.
type APIErrorDTO struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// Error implements the error interface.
func (e *APIErrorDTO) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	if e.Message != "" {
		return e.Message
	}
	return "notion api error"
}
