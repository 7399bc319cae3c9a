package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/Skrufy/ConstructionManager-sub015/internal/core/domain"
	"github.com/Skrufy/ConstructionManager-sub015/internal/core/ports"
	"github.com/Skrufy/ConstructionManager-sub015/internal/observability/metrics"
)

const splitDraftPrefix = "/v1/documents/split/"

type Router struct {
	starter       ports.SplitStarter
	drafts        ports.DraftReader
	editor        ports.DraftEditor
	checker       ports.RevisionChecker
	confirmer     ports.SplitConfirmer
	notifications ports.NotificationReader
	metrics       *metrics.APIMetrics
}

func NewRouter(
	starter ports.SplitStarter,
	drafts ports.DraftReader,
	editor ports.DraftEditor,
	checker ports.RevisionChecker,
	confirmer ports.SplitConfirmer,
	notifications ports.NotificationReader,
	apiMetrics *metrics.APIMetrics,
) *Router {
	return &Router{
		starter:       starter,
		drafts:        drafts,
		editor:        editor,
		checker:       checker,
		confirmer:     confirmer,
		notifications: notifications,
		metrics:       apiMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents/split/start", rt.startSplit)
	mux.HandleFunc("/v1/documents/split/drafts", rt.listDrafts)
	mux.HandleFunc(splitDraftPrefix, rt.splitDraftSubtree)
	mux.HandleFunc("/v1/notifications", rt.listNotifications)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = identityMiddleware(handler)
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) startSplit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	draft, summary, err := rt.starter.Start(
		r.Context(),
		actorFromContext(r.Context()),
		r.FormValue("projectId"),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordDraftCreated(summary.PagesInferred, summary.PagesDefaulted)
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"draft":   draft,
		"summary": summary,
	})
}

func (rt *Router) listDrafts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var status domain.DraftStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := domain.ParseDraftStatus(raw)
		if err != nil {
			writeError(w, err)
			return
		}
		status = parsed
	}

	drafts, err := rt.drafts.List(r.Context(), actorFromContext(r.Context()), r.URL.Query().Get("projectId"), status)
	if err != nil {
		writeError(w, err)
		return
	}
	if drafts == nil {
		drafts = []domain.SplitDraft{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"drafts": drafts})
}

// splitDraftSubtree dispatches /v1/documents/split/{draftId}[/check-revisions|/confirm].
func (rt *Router) splitDraftSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, splitDraftPrefix)
	draftID, action, _ := strings.Cut(rest, "/")
	if draftID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "draft id is required"})
		return
	}

	switch action {
	case "":
		rt.draftResource(w, r, draftID)
	case "check-revisions":
		rt.checkRevisions(w, r, draftID)
	case "confirm":
		rt.confirmSplit(w, r, draftID)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func (rt *Router) draftResource(w http.ResponseWriter, r *http.Request, draftID string) {
	switch r.Method {
	case http.MethodGet:
		draft, err := rt.drafts.Get(r.Context(), actorFromContext(r.Context()), draftID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, draft)
	case http.MethodPatch:
		rt.patchDraft(w, r, draftID)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) patchDraft(w http.ResponseWriter, r *http.Request, draftID string) {
	var req struct {
		Pages  []domain.PageUpdate `json:"pages"`
		Status string              `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	actor := actorFromContext(r.Context())

	if req.Status != "" {
		status, err := domain.ParseDraftStatus(req.Status)
		if err != nil {
			writeError(w, err)
			return
		}
		if status != domain.StatusCancelled {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "only CANCELLED may be requested"})
			return
		}
		if err := rt.editor.Cancel(r.Context(), actor, draftID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.StatusCancelled)})
		return
	}

	draft, err := rt.editor.UpdatePages(r.Context(), actor, draftID, req.Pages)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (rt *Router) checkRevisions(w http.ResponseWriter, r *http.Request, draftID string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	result, err := rt.checker.CheckRevisions(r.Context(), actorFromContext(r.Context()), draftID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) confirmSplit(w http.ResponseWriter, r *http.Request, draftID string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		RevisionMappings []domain.RevisionMapping `json:"revision_mappings"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
	}

	result, err := rt.confirmer.Confirm(r.Context(), actorFromContext(r.Context()), draftID, req.RevisionMappings)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordConfirm(result.CreatedFiles, result.UpdatedFiles, len(result.Errors))
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) listNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := rt.notifications.ListNotifications(r.Context(), actorFromContext(r.Context()), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": items})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
