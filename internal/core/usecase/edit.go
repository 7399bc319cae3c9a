package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skrufy/ConstructionManager-sub015/internal/core/domain"
	"github.com/Skrufy/ConstructionManager-sub015/internal/core/ports"
)

// EditDraftUseCase serves reads, page edits and cancellation of split drafts.
type EditDraftUseCase struct {
	drafts ports.DraftRepository
}

func NewEditDraftUseCase(drafts ports.DraftRepository) *EditDraftUseCase {
	return &EditDraftUseCase{drafts: drafts}
}

func (uc *EditDraftUseCase) Get(ctx context.Context, actor domain.Actor, draftID string) (*domain.SplitDraft, error) {
	draft, err := uc.drafts.GetByID(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if err := authorizeRead(actor, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

func (uc *EditDraftUseCase) List(ctx context.Context, actor domain.Actor, projectID string, status domain.DraftStatus) ([]domain.SplitDraft, error) {
	if actor.UserID == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "list drafts", errors.New("missing identity"))
	}
	return uc.drafts.ListByUploader(ctx, actor.UserID, ports.DraftFilter{
		ProjectID: projectID,
		Status:    status,
	})
}

// UpdatePages merges partial page edits into a DRAFT-status draft. The merge is
// idempotent: applying the same updates twice yields the same page state and
// verified count.
func (uc *EditDraftUseCase) UpdatePages(ctx context.Context, actor domain.Actor, draftID string, updates []domain.PageUpdate) (*domain.SplitDraft, error) {
	if len(updates) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "update pages", errors.New("no page updates supplied"))
	}

	draft, err := uc.drafts.GetByID(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if err := authorizeMutate(actor, draft); err != nil {
		return nil, err
	}
	if draft.Status != domain.StatusDraft {
		return nil, domain.WrapError(domain.ErrInvalidState, "update pages",
			fmt.Errorf("draft is %s, page edits require DRAFT", draft.Status))
	}

	if err := draft.ApplyPageUpdates(updates); err != nil {
		return nil, err
	}
	if err := uc.drafts.SavePages(ctx, draftID, draft.Pages, draft.VerifiedCount); err != nil {
		return nil, err
	}
	return draft, nil
}

// Cancel soft-deletes a draft. Permitted from DRAFT or PROCESSING for the
// uploader or an elevated role; cancelling an already cancelled draft is a no-op.
func (uc *EditDraftUseCase) Cancel(ctx context.Context, actor domain.Actor, draftID string) error {
	draft, err := uc.drafts.GetByID(ctx, draftID)
	if err != nil {
		return err
	}
	if err := authorizeRead(actor, draft); err != nil {
		return err
	}

	switch draft.Status {
	case domain.StatusCancelled:
		return nil
	case domain.StatusDraft, domain.StatusProcessing:
		return uc.drafts.TransitionStatus(ctx, draftID, draft.Status, domain.StatusCancelled)
	default:
		return domain.WrapError(domain.ErrInvalidState, "cancel draft",
			fmt.Errorf("draft is %s and can no longer be cancelled", draft.Status))
	}
}

func authorizeRead(actor domain.Actor, draft *domain.SplitDraft) error {
	if actor.UserID == "" {
		return domain.WrapError(domain.ErrUnauthorized, "authorize", errors.New("missing identity"))
	}
	if actor.UserID != draft.UploaderID && !actor.Elevated() {
		return domain.WrapError(domain.ErrForbidden, "authorize",
			errors.New("only the uploader or an elevated role may access this draft"))
	}
	return nil
}

func authorizeMutate(actor domain.Actor, draft *domain.SplitDraft) error {
	if actor.UserID == "" {
		return domain.WrapError(domain.ErrUnauthorized, "authorize", errors.New("missing identity"))
	}
	if actor.UserID != draft.UploaderID {
		return domain.WrapError(domain.ErrForbidden, "authorize",
			errors.New("only the uploader may modify this draft"))
	}
	return nil
}
