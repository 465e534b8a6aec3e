// Package users implements account, profile and bookmark operations.
package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/campusconnect/backend/internal/apperror"
	"github.com/campusconnect/backend/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	errMissingStore       = errors.New("users: store is required")
	errMissingTokenIssuer = errors.New("users: token issuer is required")
)

// TokenIssuer mints a signed session token bound to a user identifier.
type TokenIssuer interface {
	IssueToken(userID string) (string, error)
}

// ServiceConfig describes the dependencies of the user service.
type ServiceConfig struct {
	Store  storage.Store
	Tokens TokenIssuer
	Clock  func() time.Time
	Logger *zap.Logger
}

// Service manages accounts, sessions, profiles and bookmarks.
type Service struct {
	store  storage.Store
	tokens TokenIssuer
	clock  func() time.Time
	logger *zap.Logger
}

// NewService constructs the user service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	if cfg.Tokens == nil {
		return nil, errMissingTokenIssuer
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: cfg.Store, tokens: cfg.Tokens, clock: clock, logger: logger}, nil
}

// Account is the caller-facing view of a user returned by signup and login.
type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Profile is the owner's full view of their account. UnreadNotifications is
// populated in file mode only.
type Profile struct {
	ID                  string             `json:"id"`
	Name                string             `json:"name"`
	Email               string             `json:"email"`
	Bio                 string             `json:"bio"`
	Bookmarks           []storage.Bookmark `json:"bookmarks"`
	BookmarksEnabled    bool               `json:"bookmarksEnabled"`
	UnreadNotifications *int               `json:"unreadNotifications,omitempty"`
	CreatedAt           time.Time          `json:"createdAt"`
}

// PublicProfile exposes only what any user may see about another. It never
// carries email, password material or bookmarks.
type PublicProfile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Bio       string    `json:"bio"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProfilePatch applies partial profile updates; nil fields are untouched.
type ProfilePatch struct {
	Name                 *string
	Bio                  *string
	BookmarksEnabled     *bool
	DisableNotifications *bool
}

// NewBookmark is the caller-supplied bookmark payload.
type NewBookmark struct {
	ID     string
	Title  string
	Href   string
	Pinned bool
}

// SignUp registers a new account and returns it with a session token.
func (s *Service) SignUp(ctx context.Context, name, email, password string) (Account, string, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return Account{}, "", apperror.Validation("name, email and password required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, "", apperror.Server(err)
	}

	user, err := s.store.CreateUser(ctx, storage.User{
		Name:                 name,
		Email:                email,
		PasswordHash:         string(hash),
		Bookmarks:            []storage.Bookmark{},
		BookmarksEnabled:     true,
		NotificationsEnabled: true,
		CreatedAt:            s.clock().UTC(),
	})
	if errors.Is(err, storage.ErrDuplicateEmail) {
		return Account{}, "", apperror.DuplicateEmail()
	}
	if err != nil {
		s.logger.Error("signup failed", zap.Error(err))
		return Account{}, "", apperror.Server(err)
	}

	token, err := s.tokens.IssueToken(user.ID)
	if err != nil {
		s.logger.Error("token issuance failed", zap.String("user_id", user.ID), zap.Error(err))
		return Account{}, "", apperror.Server(err)
	}
	return accountOf(user), token, nil
}

// LogIn verifies credentials and returns the account with a session token.
func (s *Service) LogIn(ctx context.Context, email, password string) (Account, string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Account{}, "", apperror.Validation("email and password required")
	}

	user, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return Account{}, "", apperror.InvalidCredentials()
	}
	if err != nil {
		s.logger.Error("login lookup failed", zap.Error(err))
		return Account{}, "", apperror.Server(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return Account{}, "", apperror.InvalidCredentials()
	}

	token, err := s.tokens.IssueToken(user.ID)
	if err != nil {
		s.logger.Error("token issuance failed", zap.String("user_id", user.ID), zap.Error(err))
		return Account{}, "", apperror.Server(err)
	}
	return accountOf(user), token, nil
}

// Profile returns the owner's full profile. In file mode it also carries the
// unread notification count; the document backend omits it.
func (s *Service) Profile(ctx context.Context, userID string) (Profile, error) {
	user, err := s.userByID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	profile := profileOf(user)

	if s.store.Kind() == storage.KindFile {
		unread, err := s.store.CountUnreadNotifications(ctx, userID)
		if err != nil {
			s.logger.Error("unread count failed", zap.String("user_id", userID), zap.Error(err))
			return Profile{}, apperror.Server(err)
		}
		profile.UnreadNotifications = &unread
	}
	return profile, nil
}

// PublicProfile returns the public subset of a user's profile.
func (s *Service) PublicProfile(ctx context.Context, userID string) (PublicProfile, error) {
	user, err := s.userByID(ctx, userID)
	if err != nil {
		return PublicProfile{}, err
	}
	return PublicProfile{
		ID:        user.ID,
		Name:      user.Name,
		Bio:       user.Bio,
		CreatedAt: user.CreatedAt,
	}, nil
}

// UpdateProfile applies the present patch fields and returns the updated
// profile.
func (s *Service) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (Profile, error) {
	user, err := s.userByID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}

	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.Bio != nil {
		user.Bio = *patch.Bio
	}
	if patch.BookmarksEnabled != nil {
		user.BookmarksEnabled = *patch.BookmarksEnabled
	}
	if patch.DisableNotifications != nil {
		user.NotificationsEnabled = !*patch.DisableNotifications
	}

	updated, err := s.store.UpdateUser(ctx, user)
	if err != nil {
		s.logger.Error("profile update failed", zap.String("user_id", userID), zap.Error(err))
		return Profile{}, apperror.Server(err)
	}
	return profileOf(updated), nil
}

// Bookmarks returns the user's bookmark list, newest additions first.
func (s *Service) Bookmarks(ctx context.Context, userID string) ([]storage.Bookmark, error) {
	user, err := s.userByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return bookmarksOf(user), nil
}

// AddBookmark prepends a bookmark. Adding an id that already exists for the
// user is a silent no-op and returns the unchanged list.
func (s *Service) AddBookmark(ctx context.Context, userID string, bookmark NewBookmark) ([]storage.Bookmark, error) {
	if strings.TrimSpace(bookmark.ID) == "" || strings.TrimSpace(bookmark.Title) == "" {
		return nil, apperror.Validation("id and title required")
	}
	user, err := s.userByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, existing := range user.Bookmarks {
		if existing.ID == bookmark.ID {
			return bookmarksOf(user), nil
		}
	}

	href := bookmark.Href
	if href == "" {
		href = "#"
	}
	entry := storage.Bookmark{
		ID:        bookmark.ID,
		Title:     bookmark.Title,
		Href:      href,
		Pinned:    bookmark.Pinned,
		CreatedAt: s.clock().UTC(),
	}
	user.Bookmarks = append([]storage.Bookmark{entry}, user.Bookmarks...)

	updated, err := s.store.UpdateUser(ctx, user)
	if err != nil {
		s.logger.Error("bookmark add failed", zap.String("user_id", userID), zap.Error(err))
		return nil, apperror.Server(err)
	}
	return bookmarksOf(updated), nil
}

// UpdateBookmark patches the pinned flag of the matching bookmark. A missing
// bookmark id is not an error: the unchanged list is returned.
func (s *Service) UpdateBookmark(ctx context.Context, userID, bookmarkID string, pinned *bool) ([]storage.Bookmark, error) {
	if strings.TrimSpace(bookmarkID) == "" {
		return nil, apperror.Validation("bookmark id required")
	}
	user, err := s.userByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	for index := range user.Bookmarks {
		if user.Bookmarks[index].ID == bookmarkID && pinned != nil {
			user.Bookmarks[index].Pinned = *pinned
		}
	}

	updated, err := s.store.UpdateUser(ctx, user)
	if err != nil {
		s.logger.Error("bookmark update failed", zap.String("user_id", userID), zap.Error(err))
		return nil, apperror.Server(err)
	}
	return bookmarksOf(updated), nil
}

// RemoveBookmark filters the bookmark out. Removing a non-existent id is a
// no-op.
func (s *Service) RemoveBookmark(ctx context.Context, userID, bookmarkID string) ([]storage.Bookmark, error) {
	if strings.TrimSpace(bookmarkID) == "" {
		return nil, apperror.Validation("bookmark id required")
	}
	user, err := s.userByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	kept := make([]storage.Bookmark, 0, len(user.Bookmarks))
	for _, bookmark := range user.Bookmarks {
		if bookmark.ID != bookmarkID {
			kept = append(kept, bookmark)
		}
	}
	user.Bookmarks = kept

	updated, err := s.store.UpdateUser(ctx, user)
	if err != nil {
		s.logger.Error("bookmark removal failed", zap.String("user_id", userID), zap.Error(err))
		return nil, apperror.Server(err)
	}
	return bookmarksOf(updated), nil
}

func (s *Service) userByID(ctx context.Context, userID string) (storage.User, error) {
	user, err := s.store.UserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.User{}, apperror.NotFound("User not found")
	}
	if err != nil {
		s.logger.Error("user lookup failed", zap.String("user_id", userID), zap.Error(err))
		return storage.User{}, apperror.Server(err)
	}
	return user, nil
}

func accountOf(user storage.User) Account {
	return Account{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}

func profileOf(user storage.User) Profile {
	return Profile{
		ID:               user.ID,
		Name:             user.Name,
		Email:            user.Email,
		Bio:              user.Bio,
		Bookmarks:        bookmarksOf(user),
		BookmarksEnabled: user.BookmarksEnabled,
		CreatedAt:        user.CreatedAt,
	}
}

func bookmarksOf(user storage.User) []storage.Bookmark {
	if user.Bookmarks == nil {
		return []storage.Bookmark{}
	}
	return user.Bookmarks
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
