package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/resourcehub/internal/apperror"
	"github.com/sakif/resourcehub/internal/model"
	"github.com/sakif/resourcehub/internal/service"
)

// ProfileHandler serves the "my resources" view.
//
// The hub runs for a single local user, so one ProfileView backs every
// request.
type ProfileHandler struct {
	profile *service.ProfileView
	logger  *slog.Logger
}

func NewProfileHandler(profile *service.ProfileView, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profile: profile, logger: logger}
}

// ProfileResponse is the body of GET /api/profile.
type ProfileResponse struct {
	Owner     *model.User            `json:"owner,omitempty"`
	Identity  service.IdentitySource `json:"identity"`
	Resources []model.Resource       `json:"resources"`
}

// HandleGet handles GET /api/profile.
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	resources, err := h.profile.Refresh(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	owner := h.profile.Owner()
	writeJSON(w, http.StatusOK, ProfileResponse{
		Owner:     owner.User,
		Identity:  owner.Source,
		Resources: resources,
	})
}

// HandleCreate handles POST /api/profile/resources. The body is the raw
// form; tags are a comma-separated string.
func (h *ProfileHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var form service.ResourceForm
	if err := decodeJSON(w, r, &form); err != nil {
		writeError(w, err)
		return
	}

	created, err := h.profile.Create(r.Context(), form)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandleDelete handles DELETE /api/profile/resources/{id}?confirm=true.
// Without confirm=true nothing is sent to the API and 409 is returned.
func (h *ProfileHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	confirmed := r.URL.Query().Get("confirm") == "true"
	deleted, err := h.profile.Delete(r.Context(), id, service.Confirmed(confirmed))
	if err != nil {
		writeError(w, err)
		return
	}
	if !deleted {
		writeError(w, apperror.NotConfirmed("Deleting a resource needs confirm=true."))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
