package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type DraftStatus string

const (
	StatusDraft      DraftStatus = "DRAFT"
	StatusProcessing DraftStatus = "PROCESSING"
	StatusCompleted  DraftStatus = "COMPLETED"
	StatusCancelled  DraftStatus = "CANCELLED"
)

// DefaultConfidence is assigned to a page when metadata inference is unavailable.
const DefaultConfidence = 0.5

// PageListSchemaVersion is the only page-list blob layout this build reads or writes.
// Rows carrying any other version fail loudly instead of propagating nulls.
const PageListSchemaVersion = 1

// SplitDraft is the mutable working record of one document-split operation.
// VerifiedCount is always derived from Pages, never set independently.
type SplitDraft struct {
	ID               string      `json:"id"`
	ProjectID        string      `json:"project_id"`
	UploaderID       string      `json:"uploader_id"`
	SourcePath       string      `json:"source_path"`
	OriginalFilename string      `json:"original_filename"`
	Status           DraftStatus `json:"status"`
	PageCount        int         `json:"page_count"`
	VerifiedCount    int         `json:"verified_count"`
	Pages            []PageEntry `json:"pages"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// PageEntry holds one source page's inferred and user-verified metadata.
// PageNumber is 1-based and immutable once the draft exists.
type PageEntry struct {
	PageNumber    int     `json:"page_number"`
	ThumbnailKey  string  `json:"thumbnail_key,omitempty"`
	DrawingNumber string  `json:"drawing_number,omitempty"`
	SheetTitle    string  `json:"sheet_title,omitempty"`
	Discipline    string  `json:"discipline,omitempty"`
	Revision      string  `json:"revision,omitempty"`
	Scale         string  `json:"scale,omitempty"`
	Confidence    float64 `json:"confidence"`
	Verified      bool    `json:"verified"`
	Skipped       bool    `json:"skipped"`
}

// PageUpdate is a partial page edit merged into an existing entry by PageNumber.
// Nil fields are left untouched; PageNumber itself is never overwritten.
type PageUpdate struct {
	PageNumber    int      `json:"page_number"`
	DrawingNumber *string  `json:"drawing_number,omitempty"`
	SheetTitle    *string  `json:"sheet_title,omitempty"`
	Discipline    *string  `json:"discipline,omitempty"`
	Revision      *string  `json:"revision,omitempty"`
	Scale         *string  `json:"scale,omitempty"`
	Confidence    *float64 `json:"confidence,omitempty"`
	Verified      *bool    `json:"verified,omitempty"`
	Skipped       *bool    `json:"skipped,omitempty"`
}

// ApplyPageUpdates merges updates into the draft's page list and recomputes
// VerifiedCount. Updates referencing unknown page numbers are rejected as a whole
// so a typo cannot partially apply.
func (d *SplitDraft) ApplyPageUpdates(updates []PageUpdate) error {
	index := make(map[int]int, len(d.Pages))
	for i, p := range d.Pages {
		index[p.PageNumber] = i
	}

	for _, u := range updates {
		i, ok := index[u.PageNumber]
		if !ok {
			return WrapError(ErrInvalidInput, "apply page updates",
				fmt.Errorf("page %d does not exist in draft", u.PageNumber))
		}
		d.Pages[i].merge(u)
	}

	d.VerifiedCount = d.RecomputeVerifiedCount()
	return nil
}

func (p *PageEntry) merge(u PageUpdate) {
	if u.DrawingNumber != nil {
		p.DrawingNumber = *u.DrawingNumber
	}
	if u.SheetTitle != nil {
		p.SheetTitle = *u.SheetTitle
	}
	if u.Discipline != nil {
		p.Discipline = *u.Discipline
	}
	if u.Revision != nil {
		p.Revision = *u.Revision
	}
	if u.Scale != nil {
		p.Scale = *u.Scale
	}
	if u.Confidence != nil {
		p.Confidence = *u.Confidence
	}
	if u.Verified != nil {
		p.Verified = *u.Verified
	}
	if u.Skipped != nil {
		p.Skipped = *u.Skipped
	}
}

// RecomputeVerifiedCount counts pages that are verified and not skipped.
func (d *SplitDraft) RecomputeVerifiedCount() int {
	count := 0
	for _, p := range d.Pages {
		if p.Verified && !p.Skipped {
			count++
		}
	}
	return count
}

// ValidatePageNumbers checks the 1..N contiguity invariant of the page list.
func (d *SplitDraft) ValidatePageNumbers() error {
	if len(d.Pages) != d.PageCount {
		return WrapError(ErrInvalidInput, "validate pages",
			fmt.Errorf("page list length %d != page count %d", len(d.Pages), d.PageCount))
	}
	for i, p := range d.Pages {
		if p.PageNumber != i+1 {
			return WrapError(ErrInvalidInput, "validate pages",
				fmt.Errorf("page at index %d has number %d", i, p.PageNumber))
		}
	}
	return nil
}

// NormalizeDrawingNumber upper-cases and trims a drawing number for matching.
func NormalizeDrawingNumber(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

var validStatuses = map[DraftStatus]struct{}{
	StatusDraft:      {},
	StatusProcessing: {},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

func ParseDraftStatus(s string) (DraftStatus, error) {
	status := DraftStatus(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := validStatuses[status]; !ok {
		return "", WrapError(ErrInvalidInput, "parse status", errors.New("unknown status "+s))
	}
	return status, nil
}
