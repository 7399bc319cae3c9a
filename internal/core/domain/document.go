package domain

import "time"

// ProjectDocument is a committed drawing document. The current content is
// exclusively identified by StoragePath; prior pointers survive only through
// DocumentRevision rows and are never deleted.
type ProjectDocument struct {
	ID             string    `json:"id"`
	ProjectID      string    `json:"project_id"`
	Filename       string    `json:"filename"`
	DrawingNumber  string    `json:"drawing_number,omitempty"`
	SheetTitle     string    `json:"sheet_title,omitempty"`
	Discipline     string    `json:"discipline,omitempty"`
	Revision       string    `json:"revision,omitempty"`
	Scale          string    `json:"scale,omitempty"`
	StoragePath    string    `json:"storage_path"`
	CurrentVersion int       `json:"current_version"`
	IsLatest       bool      `json:"is_latest"`
	SizeBytes      int64     `json:"size_bytes"`
	UploadedBy     string    `json:"uploaded_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DocumentRevision records one historical version of a ProjectDocument.
type DocumentRevision struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"document_id"`
	Version     int       `json:"version"`
	StoragePath string    `json:"storage_path"`
	ChangeNotes string    `json:"change_notes,omitempty"`
	UploadedBy  string    `json:"uploaded_by"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

// RevisionUpdate carries the pointer swap and metadata merge applied to an
// existing document when a draft page commits as a revision. Metadata fields
// are merged only into empty columns, never clobbering verified values.
type RevisionUpdate struct {
	NewVersion  int
	StoragePath string
	SizeBytes   int64
	Revision    string
	Scale       string
	SheetTitle  string
	Discipline  string
	ChangeNotes string
	UploadedBy  string
}
