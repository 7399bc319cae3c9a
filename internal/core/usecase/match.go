package usecase

import (
	"context"
	"sort"

	"github.com/Skrufy/ConstructionManager-sub015/internal/core/domain"
	"github.com/Skrufy/ConstructionManager-sub015/internal/core/ports"
)

// MatchRevisionsUseCase cross-references a draft's inferred drawing numbers
// against the project's latest documents. Pure read: it never mutates the draft
// or any document, it only informs the revision mappings the user sends to
// confirm.
type MatchRevisionsUseCase struct {
	drafts    ports.DraftRepository
	documents ports.DocumentRepository
}

func NewMatchRevisionsUseCase(drafts ports.DraftRepository, documents ports.DocumentRepository) *MatchRevisionsUseCase {
	return &MatchRevisionsUseCase{drafts: drafts, documents: documents}
}

func (uc *MatchRevisionsUseCase) CheckRevisions(ctx context.Context, actor domain.Actor, draftID string) (*domain.RevisionMatchResult, error) {
	draft, err := uc.drafts.GetByID(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if err := authorizeRead(actor, draft); err != nil {
		return nil, err
	}

	numbers := distinctDrawingNumbers(draft.Pages)
	if len(numbers) == 0 {
		return &domain.RevisionMatchResult{
			Matches: []domain.ExistingDrawingMatch{},
			Summary: domain.RevisionMatchSummary{
				TotalPages: len(draft.Pages),
				Message:    "no drawing numbers detected on any page",
			},
		}, nil
	}

	docs, err := uc.documents.FindLatestByDrawingNumbers(ctx, draft.ProjectID, numbers)
	if err != nil {
		return nil, err
	}

	// Legacy data can carry several "latest" documents for one drawing number.
	// Only the most recently created one is offered as a revision target.
	byNumber := make(map[string]domain.ProjectDocument, len(docs))
	for _, doc := range docs {
		key := domain.NormalizeDrawingNumber(doc.DrawingNumber)
		if existing, ok := byNumber[key]; ok && !doc.CreatedAt.After(existing.CreatedAt) {
			continue
		}
		byNumber[key] = doc
	}

	matches := make([]domain.ExistingDrawingMatch, 0, len(byNumber))
	matchedPages := 0
	pagesWithNumber := 0
	for _, page := range draft.Pages {
		if domain.NormalizeDrawingNumber(page.DrawingNumber) != "" {
			pagesWithNumber++
		}
	}
	for key, doc := range byNumber {
		var pageNumbers []int
		for _, page := range draft.Pages {
			if domain.NormalizeDrawingNumber(page.DrawingNumber) == key {
				pageNumbers = append(pageNumbers, page.PageNumber)
			}
		}
		matchedPages += len(pageNumbers)
		matches = append(matches, domain.ExistingDrawingMatch{
			DrawingNumber:      key,
			DocumentID:         doc.ID,
			Filename:           doc.Filename,
			CurrentVersion:     doc.CurrentVersion,
			MatchedPageNumbers: pageNumbers,
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].DrawingNumber < matches[j].DrawingNumber
	})

	return &domain.RevisionMatchResult{
		Matches: matches,
		Summary: domain.RevisionMatchSummary{
			TotalPages:             len(draft.Pages),
			PagesWithDrawingNumber: pagesWithNumber,
			MatchedPages:           matchedPages,
			NewDrawings:            pagesWithNumber - matchedPages,
		},
	}, nil
}

func distinctDrawingNumbers(pages []domain.PageEntry) []string {
	seen := make(map[string]struct{}, len(pages))
	var numbers []string
	for _, page := range pages {
		normalized := domain.NormalizeDrawingNumber(page.DrawingNumber)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		numbers = append(numbers, normalized)
	}
	sort.Strings(numbers)
	return numbers
}
