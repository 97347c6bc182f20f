package sync

import (
	"context"

	"github.com/mikaelzzzz/flexge-notion-sync/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROVIDER CONTRACTS
// Implemented by the infrastructure layer; the core only sees these.
// ══════════════════════════════════════════════════════════════════════════════

// PageRef is the target provider's opaque reference for one page.
type PageRef string

// String returns the string representation of the reference.
func (p PageRef) String() string {
	return string(p)
}

// SourceProvider supplies the roster and weekly usage data.
type SourceProvider interface {
	// FetchCurrentRoster returns a complete, consistent snapshot of all
	// students with their current-week study time. Implementations must
	// assemble paginated results fully before returning.
	FetchCurrentRoster(ctx context.Context) ([]student.Record, error)
}

// PageSnapshot is one existing target page with enough of its visible
// properties to recompute the content fingerprint. Returned by the
// current-epoch listing used for warm start and the weekly reset sweep.
type PageSnapshot struct {
	Ref     PageRef
	Student student.Record
}

// TargetProvider owns the document store where one page represents one
// (student, epoch) pair.
type TargetProvider interface {
	// CreatePage creates the page for a student in an epoch and returns
	// its reference.
	CreatePage(ctx context.Context, rec student.Record, epoch Epoch) (PageRef, error)

	// UpdatePage overwrites the visible properties of an existing page.
	UpdatePage(ctx context.Context, ref PageRef, rec student.Record) error

	// ArchivePage archives a page at the end of its week.
	ArchivePage(ctx context.Context, ref PageRef) error

	// ListCurrentEpochPages returns every live page carrying the epoch's
	// label. Used to rebuild the dedup cache after a restart and to find
	// pages the cache does not know about during the weekly sweep.
	ListCurrentEpochPages(ctx context.Context, epoch Epoch) ([]PageSnapshot, error)
}
