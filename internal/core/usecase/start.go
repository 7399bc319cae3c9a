package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Skrufy/ConstructionManager-sub015/internal/core/domain"
	"github.com/Skrufy/ConstructionManager-sub015/internal/core/ports"
)

// StartLimits bounds upload size, retained pages and inference fan-out.
type StartLimits struct {
	MaxUploadBytes       int64
	MaxPages             int
	InferenceConcurrency int
}

func (l StartLimits) normalize() StartLimits {
	out := l
	if out.MaxUploadBytes <= 0 {
		out.MaxUploadBytes = 50 << 20
	}
	if out.MaxPages <= 0 {
		out.MaxPages = 100
	}
	if out.InferenceConcurrency <= 0 {
		out.InferenceConcurrency = 3
	}
	return out
}

type StartSplitUseCase struct {
	drafts     ports.DraftRepository
	storage    ports.ObjectStorage
	extractor  ports.PageExtractor
	inferencer ports.MetadataInferencer
	limits     StartLimits
}

func NewStartSplitUseCase(
	drafts ports.DraftRepository,
	storage ports.ObjectStorage,
	extractor ports.PageExtractor,
	inferencer ports.MetadataInferencer,
	limits StartLimits,
) *StartSplitUseCase {
	return &StartSplitUseCase{
		drafts:     drafts,
		storage:    storage,
		extractor:  extractor,
		inferencer: inferencer,
		limits:     limits.normalize(),
	}
}

func (uc *StartSplitUseCase) Start(
	ctx context.Context,
	actor domain.Actor,
	projectID, filename, contentType string,
	body io.Reader,
) (*domain.SplitDraft, *domain.InferenceSummary, error) {
	if actor.UserID == "" {
		return nil, nil, domain.WrapError(domain.ErrUnauthorized, "start split", errors.New("missing identity"))
	}
	if strings.TrimSpace(projectID) == "" {
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "start split", errors.New("projectId is required"))
	}
	if err := validatePDFContentType(contentType); err != nil {
		return nil, nil, err
	}

	data, err := readCapped(body, uc.limits.MaxUploadBytes)
	if err != nil {
		return nil, nil, err
	}

	pageCount, err := uc.extractor.PageCount(data)
	if err != nil {
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "probe page count", err)
	}
	if pageCount < 2 {
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "start split",
			fmt.Errorf("document has %d page(s); single-page files use the regular upload", pageCount))
	}

	truncated := 0
	if pageCount > uc.limits.MaxPages {
		truncated = pageCount - uc.limits.MaxPages
		pageCount = uc.limits.MaxPages
	}

	draftID := uuid.NewString()
	sourceKey := fmt.Sprintf("splits/%s/%s/source.pdf", projectID, draftID)
	if err := uc.storage.Upload(ctx, sourceKey, bytes.NewReader(data), "application/pdf"); err != nil {
		return nil, nil, fmt.Errorf("store source pdf: %w", err)
	}

	candidates := []domain.ProjectInfo{{ID: projectID}}
	entries, inferred := uc.inferAllPages(ctx, data, pageCount, candidates)

	now := time.Now().UTC()
	draft := &domain.SplitDraft{
		ID:               draftID,
		ProjectID:        projectID,
		UploaderID:       actor.UserID,
		SourcePath:       sourceKey,
		OriginalFilename: filename,
		Status:           domain.StatusDraft,
		PageCount:        pageCount,
		VerifiedCount:    0,
		Pages:            entries,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := uc.drafts.Create(ctx, draft); err != nil {
		return nil, nil, fmt.Errorf("create split draft: %w", err)
	}

	summary := &domain.InferenceSummary{
		PagesInferred:  inferred,
		PagesDefaulted: pageCount - inferred,
		PagesTruncated: truncated,
	}
	return draft, summary, nil
}

// inferAllPages runs best-effort metadata inference over every retained page
// with a bounded fan-out. Individual page failures degrade to a default entry
// and never abort sibling pages or the upload.
func (uc *StartSplitUseCase) inferAllPages(
	ctx context.Context,
	source []byte,
	pageCount int,
	candidates []domain.ProjectInfo,
) ([]domain.PageEntry, int) {
	entries := make([]domain.PageEntry, pageCount)

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(uc.limits.InferenceConcurrency)

	for i := 1; i <= pageCount; i++ {
		pageNumber := i
		eg.Go(func() error {
			entries[pageNumber-1] = uc.inferPage(gctx, source, pageNumber, candidates)
			return nil
		})
	}
	_ = eg.Wait()

	inferred := 0
	for _, e := range entries {
		if e.DrawingNumber != "" || e.SheetTitle != "" || e.Discipline != "" ||
			e.Revision != "" || e.Scale != "" {
			inferred++
		}
	}
	return entries, inferred
}

func (uc *StartSplitUseCase) inferPage(
	ctx context.Context,
	source []byte,
	pageNumber int,
	candidates []domain.ProjectInfo,
) domain.PageEntry {
	entry := domain.PageEntry{
		PageNumber: pageNumber,
		Confidence: domain.DefaultConfidence,
	}

	pageBytes, err := uc.extractor.ExtractPage(source, pageNumber)
	if err != nil {
		return entry
	}

	result, err := uc.inferencer.InferPageMetadata(ctx, pageBytes, "application/pdf", candidates)
	if err != nil || result.Empty() {
		return entry
	}

	entry.DrawingNumber = result.Metadata.DrawingNumber
	entry.SheetTitle = result.Metadata.SheetTitle
	entry.Discipline = result.Metadata.Discipline
	entry.Revision = result.Metadata.Revision
	entry.Scale = result.Metadata.Scale
	if result.Confidence > 0 {
		entry.Confidence = result.Confidence
	}
	return entry
}

func validatePDFContentType(contentType string) error {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "application/pdf" {
		return domain.WrapError(domain.ErrInvalidInput, "start split",
			fmt.Errorf("unsupported content type %q, only application/pdf is accepted", contentType))
	}
	return nil
}

func readCapped(body io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload",
			fmt.Errorf("file exceeds the %d byte limit", maxBytes))
	}
	if len(data) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", errors.New("empty file"))
	}
	return data, nil
}
