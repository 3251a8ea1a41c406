// Package handler contains the HTTP handlers of the local web front.
//
// HANDLER RESPONSIBILITIES:
//   - Parse the request (path params, JSON bodies, the visit cookie)
//   - Call one service method
//   - Write the result as JSON, or an error via writeError
//
// View rules (who may like, what a comment needs, when a like is
// reconciled) live in internal/service, never here.
package handler

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/sakif/resourcehub/internal/model"
	"github.com/sakif/resourcehub/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageHandler renders the server-side feed page.
type PageHandler struct {
	templates *template.Template
	feed      *service.FeedService
	identity  service.Resolver
	logger    *slog.Logger
}

// NewPageHandler parses the embedded templates once at startup.
func NewPageHandler(feed *service.FeedService, identity service.Resolver, logger *slog.Logger) (*PageHandler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/base.html", "templates/feed.html")
	if err != nil {
		return nil, err
	}
	return &PageHandler{
		templates: tmpl,
		feed:      feed,
		identity:  identity,
		logger:    logger,
	}, nil
}

type feedPage struct {
	Title     string
	Viewer    *model.User
	LoggedIn  bool
	Resources []model.Resource
	Error     string
}

// HandleFeedPage serves GET /. A failed feed load still renders the page,
// with the error in place of the list.
func (h *PageHandler) HandleFeedPage(w http.ResponseWriter, r *http.Request) {
	ident := h.identity.Resolve(r.Context())
	data := feedPage{
		Title:    "ResourceHub",
		Viewer:   ident.User,
		LoggedIn: ident.Source != service.SourceAnonymous,
	}

	resources, err := h.feed.Feed(r.Context())
	if err != nil {
		h.logger.Warn("feed page without feed", slog.String("error", err.Error()))
		data.Error = userMessage(err)
	}
	data.Resources = resources

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
