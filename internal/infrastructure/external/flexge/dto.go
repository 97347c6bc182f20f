// Package flexge implements the Flexge partner API client. It is the source
// provider of the sync engine: it fetches the weekly roster with per-student
// study time and resolves each student's current course level.
package flexge

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER DTOs
// ══════════════════════════════════════════════════════════════════════════════

// StudentsPageDTO is one page of the paginated students listing.
type StudentsPageDTO struct {
	// Docs are the student entries on this page.
	Docs []StudentDTO `json:"docs"`

	// Page is the 1-based page number of this response.
	Page int `json:"page"`

	// Pages is the total number of pages.
	Pages int `json:"pages"`

	// Total is the total number of students matching the query.
	Total int `json:"total"`
}

// StudentDTO represents one student as returned by the students listing.
// This is the external representation that needs to be mapped to our domain
// model.
type StudentDTO struct {
	// ID is the unique identifier in the Flexge platform.
	ID string `json:"id"`

	// Name is the student's display name.
	Name string `json:"name"`

	// WeekTime carries the study time accumulated in the requested range.
	WeekTime WeekTimeDTO `json:"weekTime"`

	// Executions are extra study sessions counted separately from weekTime.
	Executions []ExecutionDTO `json:"executions,omitempty"`
}

// WeekTimeDTO holds the aggregated study time for the week window.
type WeekTimeDTO struct {
	// StudiedTime is the studied time in minutes.
	StudiedTime int `json:"studiedTime"`
}

// ExecutionDTO is one extra study session.
type ExecutionDTO struct {
	// StudiedTime is the session's studied time in minutes.
	StudiedTime int `json:"studiedTime"`
}

// TotalStudiedMinutes sums the weekly aggregate with every execution.
func (s *StudentDTO) TotalStudiedMinutes() int {
	total := s.WeekTime.StudiedTime
	for _, exec := range s.Executions {
		total += exec.StudiedTime
	}
	return total
}

// ══════════════════════════════════════════════════════════════════════════════
// OVERVIEW DTOs
// ══════════════════════════════════════════════════════════════════════════════

// OverviewDTO is the per-student overview response. Only the active courses
// are relevant: the first one names the student's current level.
type OverviewDTO struct {
	// ActiveCourses are the courses the student is enrolled in, most
	// recent first.
	ActiveCourses []CourseDTO `json:"activeCourses"`
}

// CourseDTO is one course in the overview.
type CourseDTO struct {
	// Name is the course name, e.g. "B1" or "Adventures".
	Name string `json:"name"`
}

// CurrentCourseName returns the name of the first active course, or "" when
// the student has none.
func (o *OverviewDTO) CurrentCourseName() string {
	if len(o.ActiveCourses) == 0 {
		return ""
	}
	return o.ActiveCourses[0].Name
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR DTOs
// ══════════════════════════════════════════════════════════════════════════════

// APIErrorDTO represents an error response from the API.
type APIErrorDTO struct {
	// StatusCode is the HTTP status the response carried.
	StatusCode int `json:"-"`

	// Message is the human-readable error message.
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIErrorDTO) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "flexge api error"
}
