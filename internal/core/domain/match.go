package domain

// ExistingDrawingMatch proposes one existing latest document as the revision
// target for the draft pages sharing its normalized drawing number.
type ExistingDrawingMatch struct {
	DrawingNumber      string `json:"drawing_number"`
	DocumentID         string `json:"document_id"`
	Filename           string `json:"filename"`
	CurrentVersion     int    `json:"current_version"`
	MatchedPageNumbers []int  `json:"matched_page_numbers"`
}

type RevisionMatchSummary struct {
	TotalPages             int    `json:"total_pages"`
	PagesWithDrawingNumber int    `json:"pages_with_drawing_number"`
	MatchedPages           int    `json:"matched_pages"`
	NewDrawings            int    `json:"new_drawings"`
	Message                string `json:"message,omitempty"`
}

type RevisionMatchResult struct {
	Matches []ExistingDrawingMatch `json:"matches"`
	Summary RevisionMatchSummary   `json:"summary"`
}
