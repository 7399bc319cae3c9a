package domain

// RevisionMapping instructs confirm to commit a draft page as a new revision of
// an existing document instead of a new document. Supplied by the caller,
// consumed once, never persisted.
type RevisionMapping struct {
	PageNumber     int    `json:"page_number"`
	ExistingFileID string `json:"existing_file_id"`
}

// PageError attributes one non-fatal confirm failure to its source page.
type PageError struct {
	PageNumber int    `json:"page_number"`
	Error      string `json:"error"`
}

// ConfirmResult summarizes one confirm run. Per-page errors coexist with
// successes; Success reports a clean run with no page errors.
type ConfirmResult struct {
	Success         bool        `json:"success"`
	CreatedFiles    int         `json:"created_files"`
	UpdatedFiles    int         `json:"updated_files"`
	NewFileIDs      []string    `json:"new_file_ids"`
	RevisionFileIDs []string    `json:"revision_file_ids"`
	Errors          []PageError `json:"errors,omitempty"`
	Message         string      `json:"message"`
}
