package usecase

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/Skrufy/ConstructionManager-sub015/internal/core/domain"
)

func draftFixture(status domain.DraftStatus) *domain.SplitDraft {
	return &domain.SplitDraft{
		ID:               "draft-1",
		ProjectID:        "proj-1",
		UploaderID:       "user-1",
		SourcePath:       "splits/proj-1/draft-1/source.pdf",
		OriginalFilename: "plans.pdf",
		Status:           status,
		PageCount:        3,
		Pages: []domain.PageEntry{
			{PageNumber: 1, DrawingNumber: "A-101", Confidence: 0.9},
			{PageNumber: 2, DrawingNumber: "A-102", Confidence: 0.8},
			{PageNumber: 3, Confidence: domain.DefaultConfidence},
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

func TestUpdatePagesMergesAndRecounts(t *testing.T) {
	repo := newDraftRepoFake(draftFixture(domain.StatusDraft))
	uc := NewEditDraftUseCase(repo)

	updates := []domain.PageUpdate{
		{PageNumber: 1, Verified: boolPtr(true)},
		{PageNumber: 3, DrawingNumber: strPtr("A-103"), Verified: boolPtr(true)},
	}
	draft, err := uc.UpdatePages(context.Background(), member, "draft-1", updates)
	if err != nil {
		t.Fatalf("UpdatePages() error = %v", err)
	}
	if draft.VerifiedCount != 2 {
		t.Fatalf("expected verified count 2, got %d", draft.VerifiedCount)
	}
	if draft.Pages[2].DrawingNumber != "A-103" {
		t.Fatalf("expected merged drawing number, got %+v", draft.Pages[2])
	}
	// Untouched fields survive the merge.
	if draft.Pages[0].DrawingNumber != "A-101" || draft.Pages[0].Confidence != 0.9 {
		t.Fatalf("expected page 1 metadata preserved, got %+v", draft.Pages[0])
	}

	// Applying the same updates again changes nothing.
	again, err := uc.UpdatePages(context.Background(), member, "draft-1", updates)
	if err != nil {
		t.Fatalf("second UpdatePages() error = %v", err)
	}
	if !reflect.DeepEqual(draft.Pages, again.Pages) || again.VerifiedCount != draft.VerifiedCount {
		t.Fatalf("expected idempotent update, first=%+v second=%+v", draft.Pages, again.Pages)
	}
}

func TestUpdatePagesSkippedExcludedFromVerifiedCount(t *testing.T) {
	repo := newDraftRepoFake(draftFixture(domain.StatusDraft))
	uc := NewEditDraftUseCase(repo)

	draft, err := uc.UpdatePages(context.Background(), member, "draft-1", []domain.PageUpdate{
		{PageNumber: 1, Verified: boolPtr(true)},
		{PageNumber: 2, Verified: boolPtr(true), Skipped: boolPtr(true)},
	})
	if err != nil {
		t.Fatalf("UpdatePages() error = %v", err)
	}
	if draft.VerifiedCount != 1 {
		t.Fatalf("expected skipped page excluded from count, got %d", draft.VerifiedCount)
	}
}

func TestUpdatePagesUnknownPageRejectedWholesale(t *testing.T) {
	repo := newDraftRepoFake(draftFixture(domain.StatusDraft))
	uc := NewEditDraftUseCase(repo)

	_, err := uc.UpdatePages(context.Background(), member, "draft-1", []domain.PageUpdate{
		{PageNumber: 1, Verified: boolPtr(true)},
		{PageNumber: 99, Verified: boolPtr(true)},
	})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if repo.savePagesN != 0 {
		t.Fatalf("expected no persistence after rejected batch, SavePages called %d times", repo.savePagesN)
	}
}

func TestUpdatePagesRequiresDraftStatus(t *testing.T) {
	repo := newDraftRepoFake(draftFixture(domain.StatusCompleted))
	uc := NewEditDraftUseCase(repo)

	_, err := uc.UpdatePages(context.Background(), member, "draft-1", []domain.PageUpdate{
		{PageNumber: 1, Verified: boolPtr(true)},
	})
	if !domain.IsKind(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestUpdatePagesForbiddenForOtherUser(t *testing.T) {
	repo := newDraftRepoFake(draftFixture(domain.StatusDraft))
	uc := NewEditDraftUseCase(repo)

	stranger := domain.Actor{UserID: "user-2", Role: domain.RoleMember}
	_, err := uc.UpdatePages(context.Background(), stranger, "draft-1", []domain.PageUpdate{
		{PageNumber: 1, Verified: boolPtr(true)},
	})
	if !domain.IsKind(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	// Admins may read but not edit someone else's draft.
	admin := domain.Actor{UserID: "admin-1", Role: domain.RoleAdmin}
	_, err = uc.UpdatePages(context.Background(), admin, "draft-1", []domain.PageUpdate{
		{PageNumber: 1, Verified: boolPtr(true)},
	})
	if !domain.IsKind(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for admin edit, got %v", err)
	}
}

func TestGetAllowsElevatedRole(t *testing.T) {
	repo := newDraftRepoFake(draftFixture(domain.StatusDraft))
	uc := NewEditDraftUseCase(repo)

	admin := domain.Actor{UserID: "admin-1", Role: domain.RoleAdmin}
	draft, err := uc.Get(context.Background(), admin, "draft-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if draft.ID != "draft-1" {
		t.Fatalf("unexpected draft %s", draft.ID)
	}

	stranger := domain.Actor{UserID: "user-2", Role: domain.RoleMember}
	if _, err := uc.Get(context.Background(), stranger, "draft-1"); !domain.IsKind(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCancelLifecycle(t *testing.T) {
	repo := newDraftRepoFake(draftFixture(domain.StatusDraft))
	uc := NewEditDraftUseCase(repo)

	if err := uc.Cancel(context.Background(), member, "draft-1"); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if got := repo.byID["draft-1"].Status; got != domain.StatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", got)
	}

	// Cancelling again is a no-op.
	if err := uc.Cancel(context.Background(), member, "draft-1"); err != nil {
		t.Fatalf("repeat Cancel() error = %v", err)
	}
}

func TestCancelCompletedRejected(t *testing.T) {
	repo := newDraftRepoFake(draftFixture(domain.StatusCompleted))
	uc := NewEditDraftUseCase(repo)

	err := uc.Cancel(context.Background(), member, "draft-1")
	if !domain.IsKind(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestGetUnknownDraft(t *testing.T) {
	uc := NewEditDraftUseCase(newDraftRepoFake())

	_, err := uc.Get(context.Background(), member, "missing")
	if !domain.IsKind(err, domain.ErrDraftNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
