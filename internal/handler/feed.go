package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/resourcehub/internal/service"
)

// FeedHandler serves the public feed as JSON.
type FeedHandler struct {
	feed   *service.FeedService
	logger *slog.Logger
}

func NewFeedHandler(feed *service.FeedService, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{feed: feed, logger: logger}
}

// HandleFeed handles GET /api/feed.
func (h *FeedHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	resources, err := h.feed.Feed(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resources)
}
