// Package blogs implements blog publishing, listing, author-only updates,
// sharing and the word-count leaderboard.
package blogs

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/campusconnect/backend/internal/apperror"
	"github.com/campusconnect/backend/internal/cache"
	"github.com/campusconnect/backend/internal/storage"
	"go.uber.org/zap"
)

var errMissingStore = errors.New("blogs: store is required")

// Notifier receives fan-out triggers. Implementations are fire-and-forget:
// they log their own failures and never propagate them into the triggering
// operation.
type Notifier interface {
	BlogPublished(ctx context.Context, authorID string, blog storage.Blog)
	BlogShared(ctx context.Context, senderID string, blog storage.Blog)
}

// ServiceConfig describes the dependencies of the blog service.
type ServiceConfig struct {
	Store    storage.Store
	Notifier Notifier
	Cache    *cache.Cache
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service manages blogs and the derived leaderboard.
type Service struct {
	store    storage.Store
	notifier Notifier
	cache    *cache.Cache
	clock    func() time.Time
	logger   *zap.Logger
}

// NewService constructs the blog service. Notifier and Cache are optional.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    cfg.Store,
		notifier: cfg.Notifier,
		cache:    cfg.Cache,
		clock:    clock,
		logger:   logger,
	}, nil
}

// View is the caller-facing blog payload. AuthorName is resolved best-effort
// and absent when the author cannot be found.
type View struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName,omitempty"`
	Essential  bool      `json:"essential"`
	Mood       string    `json:"mood"`
	Draft      bool      `json:"draft"`
	CreatedAt  time.Time `json:"createdAt"`
	ShareURL   string    `json:"shareUrl"`
}

// PublishRequest carries a new blog post.
type PublishRequest struct {
	Title     string
	Content   string
	Essential bool
	Mood      string
	Draft     bool
}

// UpdateRequest replaces title and content; Essential and Mood are patched
// only when present.
type UpdateRequest struct {
	Title     string
	Content   string
	Essential *bool
	Mood      *string
}

// Publish persists a blog and fans a notification out to every other user.
// Drafts fan out too; the draft flag only hides a post from public listings.
func (s *Service) Publish(ctx context.Context, authorID string, request PublishRequest) (View, error) {
	if strings.TrimSpace(request.Title) == "" || strings.TrimSpace(request.Content) == "" {
		return View{}, apperror.Validation("title and content required")
	}

	blog, err := s.store.CreateBlog(ctx, storage.Blog{
		Title:     request.Title,
		Content:   request.Content,
		AuthorID:  authorID,
		Essential: request.Essential,
		Mood:      request.Mood,
		Draft:     request.Draft,
		CreatedAt: s.clock().UTC(),
	})
	if err != nil {
		s.logger.Error("blog creation failed", zap.String("author_id", authorID), zap.Error(err))
		return View{}, apperror.Server(err)
	}

	if s.notifier != nil {
		s.notifier.BlogPublished(ctx, authorID, blog)
	}
	s.invalidateLeaderboard(ctx)

	return viewOf(blog, ""), nil
}

// List returns blogs newest first with author names attached. When publicOnly
// is set, drafts are excluded.
func (s *Service) List(ctx context.Context, publicOnly bool) ([]View, error) {
	blogs, err := s.store.ListBlogs(ctx, storage.BlogFilter{PublicOnly: publicOnly})
	if err != nil {
		s.logger.Error("blog listing failed", zap.Error(err))
		return nil, apperror.Server(err)
	}
	return s.viewsOf(ctx, blogs), nil
}

// ListByAuthor returns the author's blogs, drafts included, newest first.
func (s *Service) ListByAuthor(ctx context.Context, authorID string) ([]View, error) {
	blogs, err := s.store.ListBlogs(ctx, storage.BlogFilter{AuthorID: authorID})
	if err != nil {
		s.logger.Error("blog listing failed", zap.String("author_id", authorID), zap.Error(err))
		return nil, apperror.Server(err)
	}
	return s.viewsOf(ctx, blogs), nil
}

// Get fetches a single blog by id. Drafts are returned; the draft flag never
// filters direct fetches.
func (s *Service) Get(ctx context.Context, id string) (View, error) {
	blog, err := s.blogByID(ctx, id)
	if err != nil {
		return View{}, err
	}
	return viewOf(blog, s.authorName(ctx, blog.AuthorID)), nil
}

// Update replaces title and content and optionally patches essential/mood.
// Only the author may update a blog.
func (s *Service) Update(ctx context.Context, requesterID, id string, request UpdateRequest) (View, error) {
	if strings.TrimSpace(request.Title) == "" || strings.TrimSpace(request.Content) == "" {
		return View{}, apperror.Validation("title and content required")
	}

	blog, err := s.blogByID(ctx, id)
	if err != nil {
		return View{}, err
	}
	if blog.AuthorID != requesterID {
		return View{}, apperror.Forbidden("Not allowed")
	}

	blog.Title = request.Title
	blog.Content = request.Content
	if request.Essential != nil {
		blog.Essential = *request.Essential
	}
	if request.Mood != nil {
		blog.Mood = *request.Mood
	}

	updated, err := s.store.UpdateBlog(ctx, blog)
	if err != nil {
		s.logger.Error("blog update failed", zap.String("blog_id", id), zap.Error(err))
		return View{}, apperror.Server(err)
	}
	s.invalidateLeaderboard(ctx)

	return viewOf(updated, ""), nil
}

// Share notifies the blog's author that the requester shared their post.
// Sharing one's own blog succeeds without producing a notification.
func (s *Service) Share(ctx context.Context, requesterID, id string) error {
	blog, err := s.blogByID(ctx, id)
	if err != nil {
		return err
	}
	if blog.AuthorID == requesterID {
		return nil
	}
	if s.notifier != nil {
		s.notifier.BlogShared(ctx, requesterID, blog)
	}
	return nil
}

func (s *Service) blogByID(ctx context.Context, id string) (storage.Blog, error) {
	blog, err := s.store.BlogByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Blog{}, apperror.NotFound("Not found")
	}
	if err != nil {
		s.logger.Error("blog lookup failed", zap.String("blog_id", id), zap.Error(err))
		return storage.Blog{}, apperror.Server(err)
	}
	return blog, nil
}

// viewsOf resolves author names in one pass. Resolution failures degrade to
// nameless views rather than failing the listing.
func (s *Service) viewsOf(ctx context.Context, blogs []storage.Blog) []View {
	names := map[string]string{}
	if users, err := s.store.ListUsers(ctx); err == nil {
		for _, user := range users {
			names[user.ID] = user.Name
		}
	} else {
		s.logger.Warn("author name resolution failed", zap.Error(err))
	}

	views := make([]View, 0, len(blogs))
	for _, blog := range blogs {
		views = append(views, viewOf(blog, names[blog.AuthorID]))
	}
	return views
}

func (s *Service) authorName(ctx context.Context, authorID string) string {
	user, err := s.store.UserByID(ctx, authorID)
	if err != nil {
		return ""
	}
	return user.Name
}

func viewOf(blog storage.Blog, authorName string) View {
	return View{
		ID:         blog.ID,
		Title:      blog.Title,
		Content:    blog.Content,
		AuthorID:   blog.AuthorID,
		AuthorName: authorName,
		Essential:  blog.Essential,
		Mood:       blog.Mood,
		Draft:      blog.Draft,
		CreatedAt:  blog.CreatedAt,
		ShareURL:   "/blog.html#" + blog.ID,
	}
}
