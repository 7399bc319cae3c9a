package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Skrufy/ConstructionManager-sub015/internal/core/domain"
	"github.com/Skrufy/ConstructionManager-sub015/internal/observability/metrics"
)

type starterFake struct {
	draft   *domain.SplitDraft
	summary *domain.InferenceSummary
	err     error
}

func (f starterFake) Start(_ context.Context, actor domain.Actor, projectID, filename, _ string, body io.Reader) (*domain.SplitDraft, *domain.InferenceSummary, error) {
	if actor.UserID == "" {
		return nil, nil, domain.WrapError(domain.ErrUnauthorized, "start split", errors.New("missing identity"))
	}
	if f.err != nil {
		return nil, nil, f.err
	}
	if _, err := io.ReadAll(body); err != nil {
		return nil, nil, err
	}
	draft := *f.draft
	draft.ProjectID = projectID
	draft.OriginalFilename = filename
	return &draft, f.summary, nil
}

type draftReaderFake struct {
	draft *domain.SplitDraft
	err   error
}

func (f draftReaderFake) Get(_ context.Context, _ domain.Actor, _ string) (*domain.SplitDraft, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.draft, nil
}

func (f draftReaderFake) List(context.Context, domain.Actor, string, domain.DraftStatus) ([]domain.SplitDraft, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.draft == nil {
		return nil, nil
	}
	return []domain.SplitDraft{*f.draft}, nil
}

type editorFake struct {
	draft     *domain.SplitDraft
	updateErr error
	cancelErr error
	cancelled string
}

func (f *editorFake) UpdatePages(_ context.Context, _ domain.Actor, _ string, updates []domain.PageUpdate) (*domain.SplitDraft, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if len(updates) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "update pages", errors.New("no page updates supplied"))
	}
	return f.draft, nil
}

func (f *editorFake) Cancel(_ context.Context, _ domain.Actor, draftID string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = draftID
	return nil
}

type checkerFake struct {
	result *domain.RevisionMatchResult
	err    error
}

func (f checkerFake) CheckRevisions(context.Context, domain.Actor, string) (*domain.RevisionMatchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type confirmerFake struct {
	result *domain.ConfirmResult
	err    error
}

func (f confirmerFake) Confirm(context.Context, domain.Actor, string, []domain.RevisionMapping) (*domain.ConfirmResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type notificationsFake struct {
	items []domain.Notification
	err   error
}

func (f notificationsFake) ListNotifications(context.Context, domain.Actor, int) ([]domain.Notification, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

type routerFixtures struct {
	starter       starterFake
	reader        draftReaderFake
	editor        *editorFake
	checker       checkerFake
	confirmer     confirmerFake
	notifications notificationsFake
}

func newTestRouter(f routerFixtures) http.Handler {
	return NewRouter(
		f.starter,
		f.reader,
		f.editor,
		f.checker,
		f.confirmer,
		f.notifications,
		metrics.NewAPIMetrics("api-test"),
	).Handler()
}

func defaultFixtures() routerFixtures {
	draft := &domain.SplitDraft{
		ID:         "draft-1",
		ProjectID:  "proj-1",
		UploaderID: "user-1",
		Status:     domain.StatusDraft,
		PageCount:  2,
		Pages: []domain.PageEntry{
			{PageNumber: 1, Confidence: 0.9},
			{PageNumber: 2, Confidence: 0.5},
		},
	}
	return routerFixtures{
		starter:       starterFake{draft: draft, summary: &domain.InferenceSummary{PagesInferred: 1, PagesDefaulted: 1}},
		reader:        draftReaderFake{draft: draft},
		editor:        &editorFake{draft: draft},
		checker:       checkerFake{result: &domain.RevisionMatchResult{Matches: []domain.ExistingDrawingMatch{}}},
		confirmer:     confirmerFake{result: &domain.ConfirmResult{Success: true, CreatedFiles: 2, Message: "ok"}},
		notifications: notificationsFake{},
	}
}

func authed(req *http.Request) *http.Request {
	req.Header.Set(userIDHeader, "user-1")
	req.Header.Set(userRoleHeader, "MEMBER")
	return req
}

func multipartPDF(t *testing.T, projectID string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("projectId", projectID); err != nil {
		t.Fatalf("WriteField() error = %v", err)
	}
	part, err := writer.CreateFormFile("file", "plans.pdf")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write([]byte("%PDF-1.7 fake")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &body, writer.FormDataContentType()
}

func TestHealthzEndpoint(t *testing.T) {
	handler := newTestRouter(defaultFixtures())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestStartSplitSuccess(t *testing.T) {
	handler := newTestRouter(defaultFixtures())

	body, contentType := multipartPDF(t, "proj-1")
	req := authed(httptest.NewRequest(http.MethodPost, "/v1/documents/split/start", body))
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	var resp struct {
		Draft   domain.SplitDraft       `json:"draft"`
		Summary domain.InferenceSummary `json:"summary"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Draft.ID != "draft-1" || resp.Draft.ProjectID != "proj-1" {
		t.Fatalf("unexpected draft %+v", resp.Draft)
	}
	if resp.Summary.PagesInferred != 1 {
		t.Fatalf("unexpected summary %+v", resp.Summary)
	}
}

func TestStartSplitMissingFile(t *testing.T) {
	handler := newTestRouter(defaultFixtures())

	req := authed(httptest.NewRequest(http.MethodPost, "/v1/documents/split/start", bytes.NewBufferString("raw")))
	req.Header.Set("Content-Type", "application/pdf")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestStartSplitMissingIdentity(t *testing.T) {
	handler := newTestRouter(defaultFixtures())

	body, contentType := multipartPDF(t, "proj-1")
	req := httptest.NewRequest(http.MethodPost, "/v1/documents/split/start", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestGetDraftErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"forbidden", domain.WrapError(domain.ErrForbidden, "authorize", errors.New("nope")), http.StatusForbidden},
		{"not_found", domain.WrapError(domain.ErrDraftNotFound, "get draft", errors.New("missing")), http.StatusNotFound},
		{"invalid_state", domain.WrapError(domain.ErrInvalidState, "transition", errors.New("PROCESSING")), http.StatusBadRequest},
		{"temporary", domain.WrapError(domain.ErrTemporary, "db", errors.New("down")), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fixtures := defaultFixtures()
			fixtures.reader = draftReaderFake{err: tc.err}
			handler := newTestRouter(fixtures)

			req := authed(httptest.NewRequest(http.MethodGet, "/v1/documents/split/draft-1", nil))
			res := httptest.NewRecorder()
			handler.ServeHTTP(res, req)

			if res.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, res.Code)
			}
		})
	}
}

func TestPatchDraftPages(t *testing.T) {
	fixtures := defaultFixtures()
	handler := newTestRouter(fixtures)

	payload := `{"pages":[{"page_number":1,"verified":true}]}`
	req := authed(httptest.NewRequest(http.MethodPatch, "/v1/documents/split/draft-1", bytes.NewBufferString(payload)))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
}

func TestPatchDraftCancel(t *testing.T) {
	fixtures := defaultFixtures()
	handler := newTestRouter(fixtures)

	req := authed(httptest.NewRequest(http.MethodPatch, "/v1/documents/split/draft-1", bytes.NewBufferString(`{"status":"CANCELLED"}`)))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if fixtures.editor.cancelled != "draft-1" {
		t.Fatalf("expected cancel call for draft-1, got %q", fixtures.editor.cancelled)
	}
}

func TestPatchDraftRejectsOtherStatus(t *testing.T) {
	handler := newTestRouter(defaultFixtures())

	req := authed(httptest.NewRequest(http.MethodPatch, "/v1/documents/split/draft-1", bytes.NewBufferString(`{"status":"COMPLETED"}`)))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestCheckRevisionsEndpoint(t *testing.T) {
	handler := newTestRouter(defaultFixtures())

	req := authed(httptest.NewRequest(http.MethodPost, "/v1/documents/split/draft-1/check-revisions", nil))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var result domain.RevisionMatchResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Matches == nil {
		t.Fatalf("matches must serialize as an array")
	}
}

func TestConfirmEndpoint(t *testing.T) {
	handler := newTestRouter(defaultFixtures())

	payload := `{"revision_mappings":[{"page_number":1,"existing_file_id":"doc-9"}]}`
	req := authed(httptest.NewRequest(http.MethodPost, "/v1/documents/split/draft-1/confirm", bytes.NewBufferString(payload)))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var result domain.ConfirmResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.CreatedFiles != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestConfirmInvalidStateMapsTo400(t *testing.T) {
	fixtures := defaultFixtures()
	fixtures.confirmer = confirmerFake{err: domain.WrapError(domain.ErrInvalidState, "transition status", errors.New("draft is PROCESSING"))}
	handler := newTestRouter(fixtures)

	req := authed(httptest.NewRequest(http.MethodPost, "/v1/documents/split/draft-1/confirm", nil))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestListNotificationsEmptyArray(t *testing.T) {
	handler := newTestRouter(defaultFixtures())

	req := authed(httptest.NewRequest(http.MethodGet, "/v1/notifications", nil))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var resp map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if string(resp["notifications"]) != "[]" {
		t.Fatalf("expected empty array, got %s", resp["notifications"])
	}
}

func TestUnknownDraftAction(t *testing.T) {
	handler := newTestRouter(defaultFixtures())

	req := authed(httptest.NewRequest(http.MethodPost, "/v1/documents/split/draft-1/unknown", nil))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}
