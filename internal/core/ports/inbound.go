package ports

import (
	"context"
	"io"

	"github.com/Skrufy/ConstructionManager-sub015/internal/core/domain"
)

// SplitStarter is the inbound contract for starting a split from an upload.
type SplitStarter interface {
	Start(ctx context.Context, actor domain.Actor, projectID, filename, contentType string, body io.Reader) (*domain.SplitDraft, *domain.InferenceSummary, error)
}

// DraftReader is the inbound read model for drafts.
type DraftReader interface {
	Get(ctx context.Context, actor domain.Actor, draftID string) (*domain.SplitDraft, error)
	List(ctx context.Context, actor domain.Actor, projectID string, status domain.DraftStatus) ([]domain.SplitDraft, error)
}

// DraftEditor is the inbound contract for page edits and cancellation.
type DraftEditor interface {
	UpdatePages(ctx context.Context, actor domain.Actor, draftID string, updates []domain.PageUpdate) (*domain.SplitDraft, error)
	Cancel(ctx context.Context, actor domain.Actor, draftID string) error
}

// RevisionChecker cross-references a draft against stored latest documents.
type RevisionChecker interface {
	CheckRevisions(ctx context.Context, actor domain.Actor, draftID string) (*domain.RevisionMatchResult, error)
}

// SplitConfirmer drains a draft into committed documents and revisions.
type SplitConfirmer interface {
	Confirm(ctx context.Context, actor domain.Actor, draftID string, mappings []domain.RevisionMapping) (*domain.ConfirmResult, error)
}

// NotificationReader lists the caller's persisted notifications.
type NotificationReader interface {
	ListNotifications(ctx context.Context, actor domain.Actor, limit int) ([]domain.Notification, error)
}
