package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/resourcehub/internal/model"
	"github.com/sakif/resourcehub/internal/repository"
)

// FeedService serves the public feed. It keeps no state between calls.
type FeedService struct {
	resources repository.ResourceRepository
	logger    *slog.Logger
}

func NewFeedService(resources repository.ResourceRepository, logger *slog.Logger) *FeedService {
	return &FeedService{resources: resources, logger: logger}
}

// Feed returns every user's resources, newest first as the server orders them.
func (s *FeedService) Feed(ctx context.Context) ([]model.Resource, error) {
	resources, err := s.resources.Feed(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/feed: loading feed: %w", err)
	}
	s.logger.Debug("feed loaded", slog.Int("count", len(resources)))
	return resources, nil
}
