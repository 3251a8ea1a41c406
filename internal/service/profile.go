package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sakif/resourcehub/internal/apperror"
	"github.com/sakif/resourcehub/internal/model"
	"github.com/sakif/resourcehub/internal/repository"
)

// Confirmer asks the user to approve a destructive action.
// The terminal front prompts [y/N]; the web front reads ?confirm=true.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// Confirmed returns a Confirmer that always answers ok.
func Confirmed(ok bool) Confirmer {
	return ConfirmFunc(func(context.Context, string) (bool, error) { return ok, nil })
}

// ResourceForm is the raw create form. Tags is the comma-separated text the
// user typed.
type ResourceForm struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Type        string `json:"type"`
	Tags        string `json:"tags"`
}

// Input validates the form and converts it to the API payload.
// Title, description, URL, and type are required after trimming.
func (f ResourceForm) Input() (model.ResourceInput, error) {
	in := model.ResourceInput{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		URL:         strings.TrimSpace(f.URL),
		Type:        strings.TrimSpace(f.Type),
		Tags:        model.ParseTags(f.Tags),
	}

	required := []struct{ field, value string }{
		{"title", in.Title},
		{"description", in.Description},
		{"url", in.URL},
		{"type", in.Type},
	}
	for _, r := range required {
		if r.value == "" {
			return model.ResourceInput{}, apperror.ValidationFailed(r.field, r.field+" is required")
		}
	}
	return in, nil
}

// ProfileView is the "my resources" page: the caller's own resources plus
// create and delete.
//
// The list is fetched once per Refresh and replaced wholesale. Create and
// Delete patch it locally on success instead of re-fetching.
type ProfileView struct {
	resources repository.ResourceRepository
	resolver  Resolver
	logger    *slog.Logger

	mu    sync.Mutex
	items []model.Resource
	owner Identity
}

// NewProfileView creates a ProfileView. resolver is only consulted when the
// list itself can't name its owner.
func NewProfileView(resources repository.ResourceRepository, resolver Resolver, logger *slog.Logger) *ProfileView {
	return &ProfileView{
		resources: resources,
		resolver:  resolver,
		logger:    logger,
		items:     []model.Resource{},
	}
}

// Refresh fetches the caller's resources and replaces the local list.
func (p *ProfileView) Refresh(ctx context.Context) ([]model.Resource, error) {
	mine, err := p.resources.ListMine(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/profile: listing own resources: %w", err)
	}

	owner := InferIdentity(mine)
	if !owner.Known() && p.resolver != nil {
		owner = p.resolver.Resolve(ctx)
	}

	p.mu.Lock()
	p.items = mine
	p.owner = owner
	p.mu.Unlock()

	return p.Resources(), nil
}

// Resources returns a copy of the local list.
func (p *ProfileView) Resources() []model.Resource {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.Resource, len(p.items))
	for i := range p.items {
		out[i] = *p.items[i].Clone()
	}
	return out
}

// Owner is the user whose resources these are, as of the last Refresh.
func (p *ProfileView) Owner() Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.owner
}

// Create validates form locally, publishes it, and prepends the server's copy.
// A validation failure never reaches the network.
func (p *ProfileView) Create(ctx context.Context, form ResourceForm) (*model.Resource, error) {
	in, err := form.Input()
	if err != nil {
		return nil, err
	}

	r, err := p.resources.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("service/profile: creating resource: %w", err)
	}

	p.mu.Lock()
	p.items = append([]model.Resource{*r.Clone()}, p.items...)
	p.mu.Unlock()

	p.logger.Info("resource created",
		slog.Int64("resource_id", r.ID),
		slog.String("title", r.Title),
	)
	return r, nil
}

// Delete asks confirm first. A declined confirmation returns (false, nil)
// and sends nothing. On success the resource is dropped from the list.
func (p *ProfileView) Delete(ctx context.Context, id int64, confirm Confirmer) (bool, error) {
	ok, err := confirm.Confirm(ctx, p.deletePrompt(id))
	if err != nil {
		return false, fmt.Errorf("service/profile: confirming delete of %d: %w", id, err)
	}
	if !ok {
		p.logger.Debug("resource delete declined", slog.Int64("resource_id", id))
		return false, nil
	}

	if err := p.resources.Delete(ctx, id); err != nil {
		return false, fmt.Errorf("service/profile: deleting resource %d: %w", id, err)
	}

	p.mu.Lock()
	kept := make([]model.Resource, 0, len(p.items))
	for _, r := range p.items {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	p.items = kept
	p.mu.Unlock()

	p.logger.Info("resource deleted", slog.Int64("resource_id", id))
	return true, nil
}

func (p *ProfileView) deletePrompt(id int64) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range p.items {
		if r.ID == id && r.Title != "" {
			return fmt.Sprintf("Delete %q?", r.Title)
		}
	}
	return fmt.Sprintf("Delete resource %d?", id)
}
