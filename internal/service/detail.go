package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sakif/resourcehub/internal/apperror"
	"github.com/sakif/resourcehub/internal/model"
	"github.com/sakif/resourcehub/internal/repository"
)

// DefaultReconcileDelay is how long an optimistic like is shown before the
// resource is re-fetched from the server.
const DefaultReconcileDelay = 500 * time.Millisecond

// reconcileTimeout bounds the re-fetch itself.
const reconcileTimeout = 10 * time.Second

// Notices shown when an action is refused before any request is made.
const (
	NoticeMustLogIn        = "You must be logged in to like or comment."
	NoticeUnknownIdentity  = "Could not determine your identity. Liking and commenting are unavailable."
	NoticeLikeInFlight     = "Your previous like is still being processed."
	noticeNotLoaded        = "The resource has not finished loading."
	noticeNotCommentAuthor = "You can only delete your own comments."
)

// ErrViewClosed is returned by actions on a ResourceDetail after Close.
var ErrViewClosed = apperror.Conflict("view is closed")

// DetailState is the lifecycle state of a ResourceDetail.
//
//	Loading ──fetch ok──▶ Ready ──toggle accepted──▶ LikeInFlight
//	   │                    ▲                            │
//	   └──fetch failed──▶ Errored ◀──re-fetch failed─────┤
//	                        │                            │
//	                        └──────────────Ready ◀──re-fetch ok
type DetailState int

const (
	StateLoading DetailState = iota
	StateReady
	StateLikeInFlight
	StateErrored
)

func (s DetailState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateLikeInFlight:
		return "like_in_flight"
	case StateErrored:
		return "errored"
	}
	return "invalid"
}

func (s DetailState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *DetailState) UnmarshalText(text []byte) error {
	for _, st := range []DetailState{StateLoading, StateReady, StateLikeInFlight, StateErrored} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("service: unknown detail state %q", text)
}

// DetailSnapshot is a point-in-time copy of a ResourceDetail.
// Resource is a deep copy and may be mutated freely.
type DetailSnapshot struct {
	State       DetailState     `json:"state"`
	Resource    *model.Resource `json:"resource,omitempty"`
	Liked       bool            `json:"liked"`
	LikeCount   int             `json:"likeCount"`
	Provisional bool            `json:"provisional"`
	Viewer      *model.User     `json:"viewer,omitempty"`
	Identity    IdentitySource  `json:"identity"`
	CanInteract bool            `json:"canInteract"`
	Notice      string          `json:"notice,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// DetailOption configures a ResourceDetail.
type DetailOption func(*ResourceDetail)

// WithReconcileDelay overrides DefaultReconcileDelay.
func WithReconcileDelay(d time.Duration) DetailOption {
	return func(v *ResourceDetail) { v.delay = d }
}

// WithObserver registers fn to receive a snapshot after every state change.
// fn runs on whichever goroutine made the change and must not call back into
// the view's mutating methods.
func WithObserver(fn func(DetailSnapshot)) DetailOption {
	return func(v *ResourceDetail) { v.observer = fn }
}

// ResourceDetail is the view of one resource with its likes and comments.
//
// LIKE TOGGLE:
// A toggle is sent to the server first. Only when the server accepts it is
// the local copy changed: a provisional Like (negative ID) is appended, or
// our own Like is filtered out. After the reconcile delay the whole resource
// is fetched again and replaces the local copy, so the count always settles
// on the server's truth. Only one toggle may be outstanding per view; the
// in-flight flag is held until that re-fetch finishes.
//
// STALE RESPONSES:
// Every Load bumps a generation counter. A response that arrives for an older
// generation, or after Close, is dropped without touching the view.
type ResourceDetail struct {
	resolver  Resolver
	resources repository.ResourceRepository
	likes     repository.LikeRepository
	comments  repository.CommentRepository
	logger    *slog.Logger
	delay     time.Duration
	observer  func(DetailSnapshot)

	// life is cancelled by Close and parents every reconciliation.
	life   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.Mutex
	state         DetailState
	resource      *model.Resource
	liked         bool
	provisional   bool
	identity      Identity
	identityReady bool
	notice        string
	errMsg        string
	inFlight      bool
	reconciled    chan struct{}
	generation    uint64
	nextFakeID    int64
	closed        bool
}

// NewResourceDetail creates an unloaded view. Call Load to populate it and
// Close when the view goes away.
func NewResourceDetail(
	resolver Resolver,
	resources repository.ResourceRepository,
	likes repository.LikeRepository,
	comments repository.CommentRepository,
	logger *slog.Logger,
	opts ...DetailOption,
) *ResourceDetail {
	life, cancel := context.WithCancel(context.Background())
	v := &ResourceDetail{
		resolver:  resolver,
		resources: resources,
		likes:     likes,
		comments:  comments,
		logger:    logger,
		delay:     DefaultReconcileDelay,
		life:      life,
		cancel:    cancel,
		state:     StateLoading,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Load resolves the viewer (once per view) and then fetches resource id.
// Calling it again re-fetches; the previous content is replaced, never merged.
func (v *ResourceDetail) Load(ctx context.Context, id int64) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	v.generation++
	gen := v.generation
	v.state = StateLoading
	v.notice, v.errMsg = "", ""
	v.mu.Unlock()
	v.changed()

	// The viewer must be known before liked is computed, so the identity
	// lookup strictly precedes the fetch.
	ident := v.resolveIdentity(ctx)

	r, err := v.resources.GetByID(ctx, id)

	v.mu.Lock()
	if v.closed || gen != v.generation {
		v.mu.Unlock()
		v.logger.Debug("discarding stale resource load", slog.Int64("resource_id", id))
		return nil
	}
	if err != nil {
		v.state = StateErrored
		v.errMsg = err.Error()
		v.resource = nil
		v.liked = false
		v.mu.Unlock()
		v.changed()
		v.logger.Warn("resource load failed",
			slog.Int64("resource_id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("service/detail: loading resource %d: %w", id, err)
	}
	v.resource = r.Clone()
	v.liked = likedBy(ident, r)
	v.provisional = false
	v.state = StateReady
	v.settleLocked()
	v.mu.Unlock()
	v.changed()
	return nil
}

func (v *ResourceDetail) resolveIdentity(ctx context.Context) Identity {
	v.mu.Lock()
	if v.identityReady {
		ident := v.identity
		v.mu.Unlock()
		return ident
	}
	v.mu.Unlock()

	ident := v.resolver.Resolve(ctx)
	if ident.Err != nil {
		v.logger.Warn("viewer identity unknown, interactions disabled",
			slog.String("error", ident.Err.Error()),
		)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.identityReady {
		v.identity = ident
		// A lookup cut short by its caller says nothing about the user;
		// the next Load resolves again.
		v.identityReady = !isContextErr(ident.Err)
	}
	return v.identity
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// ToggleLike likes the resource if the viewer hasn't, and unlikes it
// otherwise. It returns once the server has answered the toggle itself;
// reconciliation continues in the background.
func (v *ResourceDetail) ToggleLike(ctx context.Context) error {
	v.mu.Lock()
	if err := v.readyLocked(); err != nil {
		v.mu.Unlock()
		return err
	}
	if err := v.requireViewerLocked(); err != nil {
		v.notice = err.Error()
		v.mu.Unlock()
		v.changed()
		return err
	}
	if v.inFlight {
		v.notice = NoticeLikeInFlight
		v.mu.Unlock()
		v.changed()
		return apperror.InFlight(NoticeLikeInFlight)
	}
	wasLiked := v.liked
	resourceID := v.resource.ID
	viewer := *v.identity.User
	gen := v.generation
	v.inFlight = true
	v.state = StateLikeInFlight
	v.notice = ""
	v.mu.Unlock()
	v.changed()

	var err error
	if wasLiked {
		err = v.likes.Unlike(ctx, resourceID)
	} else {
		err = v.likes.Like(ctx, resourceID)
	}

	v.mu.Lock()
	if err != nil {
		v.inFlight = false
		if !v.closed && gen == v.generation {
			v.notice = err.Error()
			v.settleLocked()
		}
		v.mu.Unlock()
		v.changed()
		v.logger.Warn("like toggle rejected",
			slog.Int64("resource_id", resourceID),
			slog.Bool("unlike", wasLiked),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("service/detail: toggling like on %d: %w", resourceID, err)
	}
	if v.closed || gen != v.generation || v.resource == nil {
		// A newer Load already shows the server's state.
		v.inFlight = false
		v.settleLocked()
		v.mu.Unlock()
		return nil
	}

	if wasLiked {
		kept := v.resource.Likes[:0]
		for _, l := range v.resource.Likes {
			if l.User.ID != viewer.ID {
				kept = append(kept, l)
			}
		}
		v.resource.Likes = kept
	} else {
		v.nextFakeID--
		v.resource.Likes = append(v.resource.Likes, model.Like{
			ID:        v.nextFakeID,
			CreatedAt: time.Now(),
			User:      viewer,
		})
	}
	v.liked = !wasLiked
	v.provisional = true

	done := make(chan struct{})
	v.reconciled = done
	v.wg.Add(1)
	v.mu.Unlock()
	v.changed()

	go v.reconcile(gen, resourceID, done)
	return nil
}

// reconcile waits out the delay, then replaces the resource with the
// server's copy. It always clears the in-flight flag.
func (v *ResourceDetail) reconcile(gen uint64, resourceID int64, done chan struct{}) {
	defer v.wg.Done()
	defer close(done)

	timer := time.NewTimer(v.delay)
	defer timer.Stop()

	select {
	case <-v.life.Done():
		v.mu.Lock()
		v.inFlight = false
		v.mu.Unlock()
		return
	case <-timer.C:
	}

	ctx, cancel := context.WithTimeout(v.life, reconcileTimeout)
	defer cancel()
	r, err := v.resources.GetByID(ctx, resourceID)

	v.mu.Lock()
	v.inFlight = false
	if v.closed || gen != v.generation {
		v.settleLocked()
		v.mu.Unlock()
		return
	}
	v.provisional = false
	if err != nil {
		// The optimistic count can't be confirmed. Showing it any longer
		// would let it drift from the server, so the view gives up.
		v.state = StateErrored
		v.errMsg = err.Error()
		v.resource = nil
		v.liked = false
		v.mu.Unlock()
		v.changed()
		v.logger.Warn("like reconciliation failed",
			slog.Int64("resource_id", resourceID),
			slog.String("error", err.Error()),
		)
		return
	}
	v.resource = r.Clone()
	v.liked = likedBy(v.identity, r)
	v.settleLocked()
	v.mu.Unlock()
	v.changed()
}

// WaitReconciled blocks until the most recent like toggle has been
// reconciled, or ctx ends. It returns immediately when nothing is pending.
func (v *ResourceDetail) WaitReconciled(ctx context.Context) error {
	v.mu.Lock()
	done := v.reconciled
	v.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddComment posts text as a new comment. The server's comment is appended
// as returned.
func (v *ResourceDetail) AddComment(ctx context.Context, text string) (*model.Comment, error) {
	v.mu.Lock()
	if err := v.readyLocked(); err != nil {
		v.mu.Unlock()
		return nil, err
	}
	if err := v.requireViewerLocked(); err != nil {
		v.notice = err.Error()
		v.mu.Unlock()
		v.changed()
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		err := apperror.ValidationFailed("text", "Comment text is required.")
		v.notice = err.Message
		v.mu.Unlock()
		v.changed()
		return nil, err
	}
	resourceID := v.resource.ID
	gen := v.generation
	v.mu.Unlock()

	c, err := v.comments.AddComment(ctx, resourceID, text)

	v.mu.Lock()
	if err != nil {
		if !v.closed && gen == v.generation {
			v.notice = err.Error()
		}
		v.mu.Unlock()
		v.changed()
		return nil, fmt.Errorf("service/detail: commenting on %d: %w", resourceID, err)
	}
	if !v.closed && gen == v.generation && v.resource != nil {
		v.resource.Comments = append(v.resource.Comments, *c)
		v.notice = ""
	}
	v.mu.Unlock()
	v.changed()

	v.logger.Info("comment added",
		slog.Int64("resource_id", resourceID),
		slog.Int64("comment_id", c.ID),
	)
	return c, nil
}

// DeleteComment removes one of the viewer's own comments.
func (v *ResourceDetail) DeleteComment(ctx context.Context, commentID int64) error {
	v.mu.Lock()
	if err := v.readyLocked(); err != nil {
		v.mu.Unlock()
		return err
	}
	if err := v.requireViewerLocked(); err != nil {
		v.notice = err.Error()
		v.mu.Unlock()
		v.changed()
		return err
	}
	idx := -1
	for i, c := range v.resource.Comments {
		if c.ID == commentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		v.mu.Unlock()
		return apperror.NotFound("comment", fmt.Sprint(commentID))
	}
	if v.resource.Comments[idx].Author.ID != v.identity.User.ID {
		v.notice = noticeNotCommentAuthor
		v.mu.Unlock()
		v.changed()
		return apperror.Forbidden(noticeNotCommentAuthor)
	}
	gen := v.generation
	v.mu.Unlock()

	if err := v.comments.DeleteComment(ctx, commentID); err != nil {
		v.mu.Lock()
		if !v.closed && gen == v.generation {
			v.notice = err.Error()
		}
		v.mu.Unlock()
		v.changed()
		return fmt.Errorf("service/detail: deleting comment %d: %w", commentID, err)
	}

	v.mu.Lock()
	if !v.closed && gen == v.generation && v.resource != nil {
		kept := v.resource.Comments[:0]
		for _, c := range v.resource.Comments {
			if c.ID != commentID {
				kept = append(kept, c)
			}
		}
		v.resource.Comments = kept
		v.notice = ""
	}
	v.mu.Unlock()
	v.changed()
	return nil
}

// Snapshot returns a copy of the current view state.
func (v *ResourceDetail) Snapshot() DetailSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := DetailSnapshot{
		State:       v.state,
		Liked:       v.liked,
		Provisional: v.provisional,
		Identity:    v.identity.Source,
		CanInteract: v.identity.Known(),
		Notice:      v.notice,
		Error:       v.errMsg,
	}
	if v.resource != nil {
		s.Resource = v.resource.Clone()
		s.LikeCount = len(v.resource.Likes)
	}
	if v.identity.User != nil {
		u := *v.identity.User
		s.Viewer = &u
	}
	return s
}

// Close unmounts the view. Pending reconciliation is cancelled and Close
// waits for it to exit. Later responses are ignored.
func (v *ResourceDetail) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.mu.Unlock()

	v.cancel()
	v.wg.Wait()
}

// readyLocked refuses actions on a view without a loaded resource.
func (v *ResourceDetail) readyLocked() error {
	if v.closed {
		return ErrViewClosed
	}
	if v.resource == nil || v.state == StateLoading || v.state == StateErrored {
		return apperror.Conflict(noticeNotLoaded)
	}
	return nil
}

// requireViewerLocked refuses interactions without a known viewer. An
// unresolved identity is never replaced by a guessed user.
func (v *ResourceDetail) requireViewerLocked() error {
	switch {
	case v.identity.Source == SourceAnonymous:
		return apperror.Unauthenticated(NoticeMustLogIn)
	case !v.identity.Known():
		return apperror.Unauthenticated(NoticeUnknownIdentity)
	}
	return nil
}

// settleLocked moves a ready view between Ready and LikeInFlight to match
// the in-flight flag. Loading and Errored are left alone.
func (v *ResourceDetail) settleLocked() {
	if v.state != StateReady && v.state != StateLikeInFlight {
		return
	}
	if v.inFlight {
		v.state = StateLikeInFlight
		return
	}
	v.state = StateReady
}

func (v *ResourceDetail) changed() {
	if v.observer != nil {
		v.observer(v.Snapshot())
	}
}

func likedBy(ident Identity, r *model.Resource) bool {
	if ident.User == nil {
		return false
	}
	return r.LikedBy(ident.User.ID)
}
