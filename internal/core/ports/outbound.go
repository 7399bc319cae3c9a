package ports

import (
	"context"
	"io"

	"github.com/Skrufy/ConstructionManager-sub015/internal/core/domain"
)

// DraftFilter narrows draft listings.
type DraftFilter struct {
	ProjectID string
	Status    domain.DraftStatus
}

// DraftRepository persists split drafts and their page lists.
type DraftRepository interface {
	Create(ctx context.Context, draft *domain.SplitDraft) error
	GetByID(ctx context.Context, id string) (*domain.SplitDraft, error)
	// SavePages replaces the page list and verified count, only while the draft
	// is still in DRAFT status; returns ErrInvalidState otherwise.
	SavePages(ctx context.Context, id string, pages []domain.PageEntry, verifiedCount int) error
	// TransitionStatus performs an atomic conditional status update and returns
	// ErrInvalidState when the draft is not in the expected source status. This
	// compare-and-swap is the sole concurrency guard for confirm.
	TransitionStatus(ctx context.Context, id string, from, to domain.DraftStatus) error
	ListByUploader(ctx context.Context, uploaderID string, filter DraftFilter) ([]domain.SplitDraft, error)
}

// DocumentRepository persists committed documents and their revision history.
// Pointer updates and appended revision rows are transactional per document.
type DocumentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.ProjectDocument, error)
	// FindLatestByDrawingNumbers returns the project's latest documents whose
	// drawing number matches any of the given normalized numbers,
	// case-insensitively.
	FindLatestByDrawingNumbers(ctx context.Context, projectID string, numbers []string) ([]domain.ProjectDocument, error)
	CreateWithRevision(ctx context.Context, doc *domain.ProjectDocument, rev *domain.DocumentRevision) error
	ApplyRevision(ctx context.Context, documentID string, update domain.RevisionUpdate) error
}

// ObjectStorage stores original uploads and extracted pages. Page uploads never
// overwrite: keys are constructed to be unique per operation.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
}

// PageExtractor probes and splits multi-page PDFs. Implementations must treat
// the source buffer as read-only so distinct pages can be extracted concurrently.
type PageExtractor interface {
	PageCount(data []byte) (int, error)
	ExtractPage(data []byte, pageNumber int) ([]byte, error)
}

// MetadataInferencer reads drawing metadata off a single-page document via an
// external vision model. Callers treat errors as soft and degrade to defaults.
type MetadataInferencer interface {
	InferPageMetadata(ctx context.Context, pageDoc []byte, mimeType string, candidates []domain.ProjectInfo) (domain.PageMetadataResult, error)
}

// NotificationQueue transports notification events between the API process and
// the worker that persists them.
type NotificationQueue interface {
	PublishNotification(ctx context.Context, n domain.Notification) error
	SubscribeNotifications(ctx context.Context, handler func(context.Context, domain.Notification) error) error
}

// NotificationStore persists delivered notifications for the read model.
type NotificationStore interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
}
