package domain

// ProjectInfo is the candidate-project context handed to metadata inference so
// the model can disambiguate title-block project names.
type ProjectInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PageMetadata is what the vision model reads off a drawing's title block.
type PageMetadata struct {
	DrawingNumber string `json:"drawing_number"`
	SheetTitle    string `json:"sheet_title"`
	Discipline    string `json:"discipline"`
	Revision      string `json:"revision"`
	Scale         string `json:"scale"`
}

// PageMetadataResult pairs inferred metadata with the model's confidence.
type PageMetadataResult struct {
	Metadata   PageMetadata `json:"metadata"`
	Confidence float64      `json:"confidence"`
}

// Empty reports whether inference produced nothing usable for this page.
func (r PageMetadataResult) Empty() bool {
	m := r.Metadata
	return m.DrawingNumber == "" && m.SheetTitle == "" && m.Discipline == "" &&
		m.Revision == "" && m.Scale == ""
}

// InferenceSummary is returned with a freshly created draft so the client can
// show how much of the metadata pre-fill succeeded.
type InferenceSummary struct {
	PagesInferred  int `json:"pages_inferred"`
	PagesDefaulted int `json:"pages_defaulted"`
	PagesTruncated int `json:"pages_truncated"`
}
