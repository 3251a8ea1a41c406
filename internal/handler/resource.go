package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/resourcehub/internal/apperror"
	"github.com/sakif/resourcehub/internal/auth"
	"github.com/sakif/resourcehub/internal/service"
)

// ResourceHandler drives resource detail views.
//
// VISITS:
// A browser tab opens a detail view with POST /api/resources/{id}/visit.
// The view stays mounted in the VisitRegistry and the tab gets a signed
// cookie naming it, scoped to that resource's path. Every later call for
// that resource goes to the same view, so its in-flight like and cached
// identity survive across requests. DELETE .../visit unmounts it; idle
// visits are reaped.
type ResourceHandler struct {
	visits *service.VisitRegistry
	tokens *auth.VisitTokens
	logger *slog.Logger
}

func NewResourceHandler(visits *service.VisitRegistry, tokens *auth.VisitTokens, logger *slog.Logger) *ResourceHandler {
	return &ResourceHandler{visits: visits, tokens: tokens, logger: logger}
}

type commentRequest struct {
	Text string `json:"text"`
}

var errNoVisit = &apperror.AppError{
	Err:     apperror.ErrNotFound,
	Message: "This resource is not open. Visit it first.",
}

// HandleVisit handles POST /api/resources/{id}/visit. It mounts a fresh
// view, loads it, and replies with the first snapshot. A failed load still
// mounts the view so it can show its error state.
func (h *ResourceHandler) HandleVisit(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	// Any earlier visit named by the cookie may still be open in another
	// tab, so it is left for the reaper rather than closed here.
	visit := h.visits.Open(id)
	if err := auth.SetVisitCookie(w, h.tokens, visit.ID, auth.VisitPath(id), h.visits.TTL()); err != nil {
		h.visits.Close(visit.ID)
		h.logger.Error("failed to sign visit cookie", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if err := visit.Detail.Load(r.Context(), id); err != nil {
		status = apperror.HTTPStatus(err)
	}
	writeJSON(w, status, visit.Detail.Snapshot())
}

// HandleGet handles GET /api/resources/{id}: the view's current snapshot.
func (h *ResourceHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	visit, err := h.visitFor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, visit.Detail.Snapshot())
}

// HandleLike handles POST /api/resources/{id}/like. On success the reply is
// the provisional snapshot; reconciliation follows in the background.
func (h *ResourceHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	visit, err := h.visitFor(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := visit.Detail.ToggleLike(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, visit.Detail.Snapshot())
}

// HandleComment handles POST /api/resources/{id}/comments.
func (h *ResourceHandler) HandleComment(w http.ResponseWriter, r *http.Request) {
	visit, err := h.visitFor(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	comment, err := visit.Detail.AddComment(r.Context(), req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// HandleDeleteComment handles DELETE /api/resources/{id}/comments/{commentID}.
func (h *ResourceHandler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	visit, err := h.visitFor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	commentID, err := idParam(r, "commentID")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := visit.Detail.DeleteComment(r.Context(), commentID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleLeave handles DELETE /api/resources/{id}/visit.
func (h *ResourceHandler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if visit, err := h.visitFor(r); err == nil {
		h.visits.Close(visit.ID)
	}
	auth.ClearVisitCookie(w, auth.VisitPath(id))
	w.WriteHeader(http.StatusNoContent)
}

// visitFor finds the view the request's cookie names, and checks it is the
// view for the resource in the path.
func (h *ResourceHandler) visitFor(r *http.Request) (*service.Visit, error) {
	id, err := idParam(r, "id")
	if err != nil {
		return nil, err
	}
	visitID, ok := auth.VisitIDFromContext(r.Context())
	if !ok {
		return nil, errNoVisit
	}
	visit, ok := h.visits.Get(visitID)
	if !ok || visit.ResourceID != id {
		return nil, errNoVisit
	}
	return visit, nil
}
