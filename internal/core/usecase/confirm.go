package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skrufy/ConstructionManager-sub015/internal/core/domain"
	"github.com/Skrufy/ConstructionManager-sub015/internal/core/ports"
)

// ConfirmSplitUseCase drains a draft's non-skipped pages into committed
// documents and revisions. Per-page failures are recorded and skipped; only
// failures before the page loop (source download, draft lookup, authorization)
// are fatal and revert the draft to DRAFT for retry.
type ConfirmSplitUseCase struct {
	drafts        ports.DraftRepository
	documents     ports.DocumentRepository
	storage       ports.ObjectStorage
	extractor     ports.PageExtractor
	notifications ports.NotificationQueue
}

func NewConfirmSplitUseCase(
	drafts ports.DraftRepository,
	documents ports.DocumentRepository,
	storage ports.ObjectStorage,
	extractor ports.PageExtractor,
	notifications ports.NotificationQueue,
) *ConfirmSplitUseCase {
	return &ConfirmSplitUseCase{
		drafts:        drafts,
		documents:     documents,
		storage:       storage,
		extractor:     extractor,
		notifications: notifications,
	}
}

type pageCommit struct {
	documentID string
	revision   bool
}

func (uc *ConfirmSplitUseCase) Confirm(
	ctx context.Context,
	actor domain.Actor,
	draftID string,
	mappings []domain.RevisionMapping,
) (*domain.ConfirmResult, error) {
	draft, err := uc.drafts.GetByID(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if err := authorizeMutate(actor, draft); err != nil {
		return nil, err
	}

	// The conditional DRAFT -> PROCESSING update is the sole concurrency guard:
	// a second confirm racing this one loses on affected-row count.
	if err := uc.drafts.TransitionStatus(ctx, draftID, domain.StatusDraft, domain.StatusProcessing); err != nil {
		return nil, err
	}

	source, err := uc.downloadSource(ctx, draft)
	if err != nil {
		uc.revertToDraft(ctx, draft)
		uc.notifyFailure(ctx, draft, err)
		return nil, fmt.Errorf("download source pdf: %w", err)
	}

	mappingByPage := make(map[int]string, len(mappings))
	for _, m := range mappings {
		mappingByPage[m.PageNumber] = m.ExistingFileID
	}

	result := &domain.ConfirmResult{
		Success:         true,
		NewFileIDs:      []string{},
		RevisionFileIDs: []string{},
	}
	for _, page := range draft.Pages {
		if page.Skipped {
			continue
		}
		commit, err := uc.commitPage(ctx, draft, page, mappingByPage, source)
		if err != nil {
			result.Errors = append(result.Errors, domain.PageError{
				PageNumber: page.PageNumber,
				Error:      err.Error(),
			})
			continue
		}
		if commit.revision {
			result.UpdatedFiles++
			result.RevisionFileIDs = append(result.RevisionFileIDs, commit.documentID)
		} else {
			result.CreatedFiles++
			result.NewFileIDs = append(result.NewFileIDs, commit.documentID)
		}
	}

	// Partial success is a valid terminal outcome: the draft completes even
	// when some pages errored, so the user is not asked to redo finished work.
	if err := uc.drafts.TransitionStatus(ctx, draftID, domain.StatusProcessing, domain.StatusCompleted); err != nil {
		slog.Error("failed to finalize split draft",
			"draft_id", draftID, "error", err)
	}

	result.Success = len(result.Errors) == 0
	result.Message = fmt.Sprintf("%d new document(s), %d revision(s), %d page error(s)",
		result.CreatedFiles, result.UpdatedFiles, len(result.Errors))
	uc.notifySummary(ctx, draft, result)
	return result, nil
}

func (uc *ConfirmSplitUseCase) downloadSource(ctx context.Context, draft *domain.SplitDraft) ([]byte, error) {
	reader, err := uc.storage.Download(ctx, draft.SourcePath)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

// commitPage performs the whole per-page pipeline: extract, upload, commit.
// It is free of cross-page state so the sequential loop could later fan out.
func (uc *ConfirmSplitUseCase) commitPage(
	ctx context.Context,
	draft *domain.SplitDraft,
	page domain.PageEntry,
	mappings map[int]string,
	source []byte,
) (pageCommit, error) {
	pageBytes, err := uc.extractor.ExtractPage(source, page.PageNumber)
	if err != nil {
		return pageCommit{}, domain.WrapError(domain.ErrPageExtraction, "extract page", err)
	}

	if documentID, ok := mappings[page.PageNumber]; ok {
		return uc.commitRevision(ctx, draft, page, documentID, pageBytes)
	}
	return uc.commitNewDocument(ctx, draft, page, pageBytes)
}

func (uc *ConfirmSplitUseCase) commitRevision(
	ctx context.Context,
	draft *domain.SplitDraft,
	page domain.PageEntry,
	documentID string,
	pageBytes []byte,
) (pageCommit, error) {
	doc, err := uc.documents.GetByID(ctx, documentID)
	if err != nil {
		return pageCommit{}, fmt.Errorf("revision target %s: %w", documentID, err)
	}
	if doc.ProjectID != draft.ProjectID {
		return pageCommit{}, domain.WrapError(domain.ErrInvalidInput, "commit revision",
			errors.New("revision target belongs to a different project"))
	}

	discipline := page.Discipline
	if discipline == "" {
		discipline = doc.Discipline
	}
	drawingNumber := page.DrawingNumber
	if drawingNumber == "" {
		drawingNumber = doc.DrawingNumber
	}
	path := buildStoragePath(draft.ProjectID, discipline, drawingNumber, time.Now())

	if err := uc.storage.Upload(ctx, path, bytes.NewReader(pageBytes), "application/pdf"); err != nil {
		// Nothing has been mutated yet; the page just fails.
		return pageCommit{}, fmt.Errorf("upload page: %w", err)
	}

	update := domain.RevisionUpdate{
		NewVersion:  doc.CurrentVersion + 1,
		StoragePath: path,
		SizeBytes:   int64(len(pageBytes)),
		Revision:    page.Revision,
		Scale:       page.Scale,
		SheetTitle:  page.SheetTitle,
		Discipline:  page.Discipline,
		ChangeNotes: fmt.Sprintf("Revision from page %d of %s", page.PageNumber, draft.OriginalFilename),
		UploadedBy:  draft.UploaderID,
	}
	if err := uc.documents.ApplyRevision(ctx, doc.ID, update); err != nil {
		return pageCommit{}, fmt.Errorf("apply revision: %w", err)
	}
	return pageCommit{documentID: doc.ID, revision: true}, nil
}

func (uc *ConfirmSplitUseCase) commitNewDocument(
	ctx context.Context,
	draft *domain.SplitDraft,
	page domain.PageEntry,
	pageBytes []byte,
) (pageCommit, error) {
	path := buildStoragePath(draft.ProjectID, page.Discipline, page.DrawingNumber, time.Now())
	if err := uc.storage.Upload(ctx, path, bytes.NewReader(pageBytes), "application/pdf"); err != nil {
		return pageCommit{}, fmt.Errorf("upload page: %w", err)
	}

	now := time.Now().UTC()
	doc := &domain.ProjectDocument{
		ID:             uuid.NewString(),
		ProjectID:      draft.ProjectID,
		Filename:       synthesizeFilename(page),
		DrawingNumber:  page.DrawingNumber,
		SheetTitle:     page.SheetTitle,
		Discipline:     page.Discipline,
		Revision:       page.Revision,
		Scale:          page.Scale,
		StoragePath:    path,
		CurrentVersion: 1,
		IsLatest:       true,
		SizeBytes:      int64(len(pageBytes)),
		UploadedBy:     draft.UploaderID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	rev := &domain.DocumentRevision{
		ID:          uuid.NewString(),
		DocumentID:  doc.ID,
		Version:     1,
		StoragePath: path,
		ChangeNotes: fmt.Sprintf("Extracted from %s, page %d", draft.OriginalFilename, page.PageNumber),
		UploadedBy:  draft.UploaderID,
		SizeBytes:   int64(len(pageBytes)),
		CreatedAt:   now,
	}
	if err := uc.documents.CreateWithRevision(ctx, doc, rev); err != nil {
		return pageCommit{}, fmt.Errorf("create document: %w", err)
	}
	return pageCommit{documentID: doc.ID}, nil
}

func (uc *ConfirmSplitUseCase) revertToDraft(ctx context.Context, draft *domain.SplitDraft) {
	if err := uc.drafts.TransitionStatus(ctx, draft.ID, domain.StatusProcessing, domain.StatusDraft); err != nil {
		slog.Error("failed to revert draft after fatal confirm error",
			"draft_id", draft.ID, "error", err)
	}
}

func (uc *ConfirmSplitUseCase) notifySummary(ctx context.Context, draft *domain.SplitDraft, result *domain.ConfirmResult) {
	severity := domain.SeverityInfo
	if len(result.Errors) > 0 {
		severity = domain.SeverityWarning
	}
	uc.publish(ctx, domain.Notification{
		ID:        uuid.NewString(),
		UserID:    draft.UploaderID,
		Type:      domain.NotificationTypeSplitCompleted,
		Title:     "Document split completed",
		Message:   fmt.Sprintf("Split of %s finished: %s", draft.OriginalFilename, result.Message),
		Severity:  severity,
		Category:  "documents",
		ActionURL: fmt.Sprintf("/projects/%s/documents", draft.ProjectID),
		Data: map[string]string{
			"draft_id":      draft.ID,
			"created_files": fmt.Sprintf("%d", result.CreatedFiles),
			"updated_files": fmt.Sprintf("%d", result.UpdatedFiles),
			"page_errors":   fmt.Sprintf("%d", len(result.Errors)),
		},
		CreatedAt: time.Now().UTC(),
	})
}

func (uc *ConfirmSplitUseCase) notifyFailure(ctx context.Context, draft *domain.SplitDraft, cause error) {
	uc.publish(ctx, domain.Notification{
		ID:        uuid.NewString(),
		UserID:    draft.UploaderID,
		Type:      domain.NotificationTypeSplitFailed,
		Title:     "Document split failed",
		Message:   fmt.Sprintf("Split of %s could not start: %v. The draft was returned to DRAFT so you can retry.", draft.OriginalFilename, cause),
		Severity:  domain.SeverityError,
		Category:  "documents",
		Data: map[string]string{
			"draft_id": draft.ID,
		},
		CreatedAt: time.Now().UTC(),
	})
}

// publish is fire-and-forget: notification transport failures are logged and
// never fail the confirm call.
func (uc *ConfirmSplitUseCase) publish(ctx context.Context, n domain.Notification) {
	if uc.notifications == nil {
		return
	}
	if err := uc.notifications.PublishNotification(ctx, n); err != nil {
		slog.Warn("failed to publish split notification",
			"draft_id", n.Data["draft_id"], "type", n.Type, "error", err)
	}
}

// buildStoragePath produces a unique storage key for one extracted page. The
// timestamp plus random suffix keeps sequential per-page uploads collision-free
// without coordination.
func buildStoragePath(projectID, discipline, drawingNumber string, now time.Time) string {
	folder := sanitizePathSegment(discipline)
	if folder == "" {
		folder = "general"
	}
	name := sanitizePathSegment(drawingNumber)
	if name == "" {
		name = "sheet"
	}
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("projects/%s/%s/%s-%s-%s.pdf",
		projectID, folder, now.UTC().Format("20060102T150405"), suffix, name)
}

func sanitizePathSegment(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		default:
			return -1
		}
	}, s)
}

func synthesizeFilename(page domain.PageEntry) string {
	base := strings.TrimSpace(page.DrawingNumber)
	if base == "" {
		base = fmt.Sprintf("Page-%03d", page.PageNumber)
	}
	if title := strings.TrimSpace(page.SheetTitle); title != "" {
		base = base + " - " + title
	}
	return base + ".pdf"
}
