package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/sakif/resourcehub/internal/apperror"
	"github.com/sakif/resourcehub/internal/model"
	"github.com/sakif/resourcehub/internal/repository"
)

// Reconciliation and the visit reaper run on their own goroutines; every
// test must leave none behind.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeAPI is an in-memory stand-in for the remote server. It behaves like
// the real one closely enough for view logic: likes are per user, a second
// like is rejected, new comments and resources get server IDs.
//
// Every call is recorded as "METHOD /path" so tests can assert that a
// refused action never reached the network.
type fakeAPI struct {
	mu        sync.Mutex
	viewer    model.User
	resources map[int64]*model.Resource
	order     []int64
	nextID    int64
	calls     []string

	// set to a non-nil error to simulate a failing endpoint
	listErr    error
	getErr     error
	createErr  error
	deleteErr  error
	likeErr    error
	commentErr error

	// getHook, if set, runs at the start of GetByID without the lock held.
	getHook func(id int64)
	// listHook, if set, runs at the start of ListMine without the lock held.
	listHook func()

	whoami    *model.User
	whoamiOK  bool
	whoamiErr error

	loginToken  string
	loginErr    error
	registerErr error
}

var (
	_ repository.ResourceRepository = (*fakeAPI)(nil)
	_ repository.LikeRepository     = (*fakeAPI)(nil)
	_ repository.CommentRepository  = (*fakeAPI)(nil)
	_ repository.AuthRepository     = (*fakeAPI)(nil)
	_ repository.IdentityRepository = (*fakeAPI)(nil)
)

func newFakeAPI(viewer model.User) *fakeAPI {
	return &fakeAPI{
		viewer:     viewer,
		resources:  make(map[int64]*model.Resource),
		nextID:     1000,
		loginToken: "server-token",
	}
}

// seed stores r as if the server already had it.
func (f *fakeAPI) seed(r model.Resource) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resources[r.ID] = r.Clone()
	f.order = append(f.order, r.ID)
}

func (f *fakeAPI) record(method, path string) {
	f.calls = append(f.calls, method+" "+path)
}

// count returns how many recorded calls start with prefix.
func (f *fakeAPI) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeAPI) setGetErr(err error) {
	f.mu.Lock()
	f.getErr = err
	f.mu.Unlock()
}

// server returns the server's current copy of resource id.
func (f *fakeAPI) server(id int64) *model.Resource {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resources[id].Clone()
}

func (f *fakeAPI) Feed(ctx context.Context) ([]model.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GET", "/resources/feed")
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []model.Resource{}
	for _, id := range f.order {
		out = append(out, *f.resources[id].Clone())
	}
	return out, nil
}

func (f *fakeAPI) ListMine(ctx context.Context) ([]model.Resource, error) {
	if f.listHook != nil {
		f.listHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GET", "/resources")
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []model.Resource{}
	for _, id := range f.order {
		if r := f.resources[id]; r.Author.ID == f.viewer.ID {
			out = append(out, *r.Clone())
		}
	}
	return out, nil
}

func (f *fakeAPI) GetByID(ctx context.Context, id int64) (*model.Resource, error) {
	if f.getHook != nil {
		f.getHook(id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GET", fmt.Sprintf("/resources/%d", id))
	if f.getErr != nil {
		return nil, f.getErr
	}
	r, ok := f.resources[id]
	if !ok {
		return nil, apperror.Remote(404, "Resource not found")
	}
	return r.Clone(), nil
}

func (f *fakeAPI) Create(ctx context.Context, in model.ResourceInput) (*model.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("POST", "/resources")
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	r := &model.Resource{
		ID:          f.nextID,
		Title:       in.Title,
		Description: in.Description,
		URL:         in.URL,
		Type:        in.Type,
		Tags:        in.Tags,
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Author:      f.viewer,
	}
	f.resources[r.ID] = r
	f.order = append([]int64{r.ID}, f.order...)
	return r.Clone(), nil
}

func (f *fakeAPI) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DELETE", fmt.Sprintf("/resources/%d", id))
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.resources[id]; !ok {
		return apperror.Remote(404, "Resource not found")
	}
	delete(f.resources, id)
	for i, oid := range f.order {
		if oid == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeAPI) Like(ctx context.Context, resourceID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("POST", fmt.Sprintf("/likes/%d", resourceID))
	if f.likeErr != nil {
		return f.likeErr
	}
	r, ok := f.resources[resourceID]
	if !ok {
		return apperror.Remote(404, "Resource not found")
	}
	if r.LikedBy(f.viewer.ID) {
		return apperror.Remote(400, "You already liked this resource")
	}
	f.nextID++
	r.Likes = append(r.Likes, model.Like{ID: f.nextID, User: f.viewer})
	return nil
}

func (f *fakeAPI) Unlike(ctx context.Context, resourceID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DELETE", fmt.Sprintf("/likes/%d", resourceID))
	if f.likeErr != nil {
		return f.likeErr
	}
	r, ok := f.resources[resourceID]
	if !ok || !r.LikedBy(f.viewer.ID) {
		return apperror.Remote(400, "You have not liked this resource")
	}
	kept := []model.Like{}
	for _, l := range r.Likes {
		if l.User.ID != f.viewer.ID {
			kept = append(kept, l)
		}
	}
	r.Likes = kept
	return nil
}

func (f *fakeAPI) AddComment(ctx context.Context, resourceID int64, text string) (*model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("POST", fmt.Sprintf("/comments/%d", resourceID))
	if f.commentErr != nil {
		return nil, f.commentErr
	}
	r, ok := f.resources[resourceID]
	if !ok {
		return nil, apperror.Remote(404, "Resource not found")
	}
	f.nextID++
	c := model.Comment{ID: f.nextID, Text: text, Author: f.viewer}
	r.Comments = append(r.Comments, c)
	return &c, nil
}

func (f *fakeAPI) DeleteComment(ctx context.Context, commentID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DELETE", fmt.Sprintf("/comments/%d", commentID))
	if f.commentErr != nil {
		return f.commentErr
	}
	for _, r := range f.resources {
		for i, c := range r.Comments {
			if c.ID == commentID {
				r.Comments = append(r.Comments[:i], r.Comments[i+1:]...)
				return nil
			}
		}
	}
	return apperror.Remote(404, "Comment not found")
}

func (f *fakeAPI) Login(ctx context.Context, username, password string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("POST", "/auth/login")
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return f.loginToken, nil
}

func (f *fakeAPI) Register(ctx context.Context, username, email, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("POST", "/auth/register")
	return f.registerErr
}

func (f *fakeAPI) WhoAmI(ctx context.Context) (*model.User, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.whoamiOK {
		return nil, false, nil
	}
	f.record("GET", "/auth/me")
	if f.whoamiErr != nil {
		return nil, true, f.whoamiErr
	}
	u := *f.whoami
	return &u, true, nil
}

// fixedResolver always answers with the same identity and counts calls.
type fixedResolver struct {
	ident Identity
	calls atomic.Int32
}

func (r *fixedResolver) Resolve(ctx context.Context) Identity {
	r.calls.Add(1)
	return r.ident
}

// fakeSession is an in-memory TokenStore.
type fakeSession struct {
	token    string
	setErr   error
	clearErr error
}

func (s *fakeSession) HasToken() bool { return s.token != "" }

func (s *fakeSession) SetToken(ctx context.Context, token string) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.token = token
	return nil
}

func (s *fakeSession) Clear(ctx context.Context) error {
	if s.clearErr != nil {
		return s.clearErr
	}
	s.token = ""
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	ann = model.User{ID: 7, Username: "ann"}
	bob = model.User{ID: 8, Username: "bob"}
	cat = model.User{ID: 9, Username: "cat"}
)

func knownAs(u model.User) Identity {
	return Identity{User: &u, Source: SourceInferred}
}

// newTestDetail returns a view over api acting as ident, with a short
// reconcile delay. It is closed when the test ends.
func newTestDetail(t *testing.T, api *fakeAPI, ident Identity, opts ...DetailOption) (*ResourceDetail, *fixedResolver) {
	t.Helper()
	resolver := &fixedResolver{ident: ident}
	opts = append([]DetailOption{WithReconcileDelay(5 * time.Millisecond)}, opts...)
	v := NewResourceDetail(resolver, api, api, api, discardLogger(), opts...)
	t.Cleanup(v.Close)
	return v, resolver
}
