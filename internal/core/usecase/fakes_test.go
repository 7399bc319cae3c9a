package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/Skrufy/ConstructionManager-sub015/internal/core/domain"
	"github.com/Skrufy/ConstructionManager-sub015/internal/core/ports"
)

type statusTransition struct {
	from domain.DraftStatus
	to   domain.DraftStatus
}

type draftRepoFake struct {
	mu          sync.Mutex
	byID        map[string]*domain.SplitDraft
	created     *domain.SplitDraft
	createErr   error
	savedPages  []domain.PageEntry
	savedCount  int
	savePagesN  int
	savePageErr error
	transitions []statusTransition
}

func newDraftRepoFake(drafts ...*domain.SplitDraft) *draftRepoFake {
	f := &draftRepoFake{byID: map[string]*domain.SplitDraft{}}
	for _, d := range drafts {
		f.byID[d.ID] = d
	}
	return f
}

func (f *draftRepoFake) Create(_ context.Context, draft *domain.SplitDraft) error {
	if f.createErr != nil {
		return f.createErr
	}
	copyDraft := *draft
	f.created = &copyDraft
	f.byID[draft.ID] = draft
	return nil
}

func (f *draftRepoFake) GetByID(_ context.Context, id string) (*domain.SplitDraft, error) {
	draft, ok := f.byID[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDraftNotFound, "get draft", errors.New(id))
	}
	copyDraft := *draft
	copyDraft.Pages = append([]domain.PageEntry(nil), draft.Pages...)
	return &copyDraft, nil
}

func (f *draftRepoFake) SavePages(_ context.Context, id string, pages []domain.PageEntry, verifiedCount int) error {
	if f.savePageErr != nil {
		return f.savePageErr
	}
	f.savePagesN++
	f.savedPages = append([]domain.PageEntry(nil), pages...)
	f.savedCount = verifiedCount
	if draft, ok := f.byID[id]; ok {
		draft.Pages = append([]domain.PageEntry(nil), pages...)
		draft.VerifiedCount = verifiedCount
	}
	return nil
}

func (f *draftRepoFake) TransitionStatus(_ context.Context, id string, from, to domain.DraftStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	draft, ok := f.byID[id]
	if !ok {
		return domain.WrapError(domain.ErrDraftNotFound, "transition status", errors.New(id))
	}
	if draft.Status != from {
		return domain.WrapError(domain.ErrInvalidState, "transition status",
			fmt.Errorf("draft is %s, expected %s", draft.Status, from))
	}
	draft.Status = to
	f.transitions = append(f.transitions, statusTransition{from: from, to: to})
	return nil
}

func (f *draftRepoFake) ListByUploader(_ context.Context, uploaderID string, filter ports.DraftFilter) ([]domain.SplitDraft, error) {
	var out []domain.SplitDraft
	for _, draft := range f.byID {
		if draft.UploaderID != uploaderID {
			continue
		}
		if filter.ProjectID != "" && draft.ProjectID != filter.ProjectID {
			continue
		}
		if filter.Status != "" && draft.Status != filter.Status {
			continue
		}
		out = append(out, *draft)
	}
	return out, nil
}

type documentRepoFake struct {
	byID      map[string]*domain.ProjectDocument
	latest    []domain.ProjectDocument
	findErr   error
	findCalls int
	created   []*domain.ProjectDocument
	revisions []*domain.DocumentRevision
	createErr error
	applied   map[string]domain.RevisionUpdate
	applyErr  error
}

func newDocumentRepoFake(docs ...*domain.ProjectDocument) *documentRepoFake {
	f := &documentRepoFake{
		byID:    map[string]*domain.ProjectDocument{},
		applied: map[string]domain.RevisionUpdate{},
	}
	for _, doc := range docs {
		f.byID[doc.ID] = doc
	}
	return f
}

func (f *documentRepoFake) GetByID(_ context.Context, id string) (*domain.ProjectDocument, error) {
	doc, ok := f.byID[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New(id))
	}
	copyDoc := *doc
	return &copyDoc, nil
}

func (f *documentRepoFake) FindLatestByDrawingNumbers(context.Context, string, []string) ([]domain.ProjectDocument, error) {
	f.findCalls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.latest, nil
}

func (f *documentRepoFake) CreateWithRevision(_ context.Context, doc *domain.ProjectDocument, rev *domain.DocumentRevision) error {
	if f.createErr != nil {
		return f.createErr
	}
	copyDoc := *doc
	copyRev := *rev
	f.created = append(f.created, &copyDoc)
	f.revisions = append(f.revisions, &copyRev)
	f.byID[doc.ID] = &copyDoc
	return nil
}

func (f *documentRepoFake) ApplyRevision(_ context.Context, documentID string, update domain.RevisionUpdate) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied[documentID] = update
	return nil
}

type storageFake struct {
	mu           sync.Mutex
	uploads      map[string][]byte
	uploadErr    error
	downloadData []byte
	downloadErr  error
}

func newStorageFake() *storageFake {
	return &storageFake{uploads: map[string][]byte{}}
}

func (f *storageFake) Upload(_ context.Context, key string, data io.Reader, _ string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.uploads[key] = raw
	f.mu.Unlock()
	return nil
}

func (f *storageFake) Download(_ context.Context, key string) (io.ReadCloser, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	if f.downloadData != nil {
		return io.NopCloser(bytes.NewReader(f.downloadData)), nil
	}
	data, ok := f.uploads[key]
	if !ok {
		return nil, errors.New("object not found: " + key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type extractorFake struct {
	pageCount    int
	pageCountErr error
	extractErrs  map[int]error
}

func (f *extractorFake) PageCount([]byte) (int, error) {
	if f.pageCountErr != nil {
		return 0, f.pageCountErr
	}
	return f.pageCount, nil
}

func (f *extractorFake) ExtractPage(_ []byte, pageNumber int) ([]byte, error) {
	if err := f.extractErrs[pageNumber]; err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("page-%d", pageNumber)), nil
}

type inferencerFake struct {
	// results is keyed by the extracted page payload produced by extractorFake.
	results map[string]domain.PageMetadataResult
	err     error
}

func (f *inferencerFake) InferPageMetadata(_ context.Context, pageDoc []byte, _ string, _ []domain.ProjectInfo) (domain.PageMetadataResult, error) {
	if f.err != nil {
		return domain.PageMetadataResult{}, f.err
	}
	return f.results[string(pageDoc)], nil
}

type queueFake struct {
	published []domain.Notification
	err       error
}

func (f *queueFake) PublishNotification(_ context.Context, n domain.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, n)
	return nil
}

func (f *queueFake) SubscribeNotifications(context.Context, func(context.Context, domain.Notification) error) error {
	return errors.New("not implemented")
}

type notificationStoreFake struct {
	items []domain.Notification
	err   error
}

func (f *notificationStoreFake) Create(_ context.Context, n *domain.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.items = append(f.items, *n)
	return nil
}

func (f *notificationStoreFake) ListByUser(_ context.Context, userID string, limit int) ([]domain.Notification, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Notification
	for _, n := range f.items {
		if n.UserID != userID {
			continue
		}
		out = append(out, n)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
