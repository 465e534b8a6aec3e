// Package filestore persists every collection inside a single JSON document
// on disk. Each operation loads the full document, mutates it in memory and
// rewrites the file. A process-wide mutex serializes writers, so the store is
// last-write-wins within one process; concurrent processes sharing the same
// file can still lose updates, which is an accepted limitation of this mode.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/campusconnect/backend/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type document struct {
	Users         []storage.User         `json:"users"`
	Blogs         []storage.Blog         `json:"blogs"`
	Challenges    []storage.Challenge    `json:"challenges"`
	Notifications []storage.Notification `json:"notifications"`
}

func emptyDocument() document {
	return document{
		Users:         []storage.User{},
		Blogs:         []storage.Blog{},
		Challenges:    []storage.Challenge{},
		Notifications: []storage.Notification{},
	}
}

// Store implements storage.Store on top of a single JSON file.
type Store struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

// New constructs the store and self-heals the backing file: a missing or
// unparsable file is replaced with an empty document.
func New(path string, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("filestore: data path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	store := &Store{path: path, logger: logger}

	store.mu.Lock()
	defer store.mu.Unlock()
	if _, err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

// Kind reports the active backend mode.
func (s *Store) Kind() storage.Kind {
	return storage.KindFile
}

// Close is a no-op for the file backend.
func (s *Store) Close(context.Context) error {
	return nil
}

// load must be called with the mutex held.
func (s *Store) load() (document, error) {
	raw, err := os.ReadFile(s.path)
	if err == nil {
		var doc document
		if jsonErr := json.Unmarshal(raw, &doc); jsonErr == nil {
			return doc, nil
		}
		s.logger.Warn("filestore: unparsable data file, reinitializing", zap.String("path", s.path))
	}

	doc := emptyDocument()
	if err := s.save(doc); err != nil {
		return document{}, err
	}
	return doc, nil
}

// save must be called with the mutex held. The document is rewritten
// wholesale; there are no partial updates.
func (s *Store) save(doc document) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o644)
}

func (s *Store) CreateUser(_ context.Context, user storage.User) (storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return storage.User{}, err
	}
	for _, existing := range doc.Users {
		if strings.EqualFold(existing.Email, user.Email) {
			return storage.User{}, storage.ErrDuplicateEmail
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	doc.Users = append(doc.Users, user)
	if err := s.save(doc); err != nil {
		return storage.User{}, err
	}
	return user, nil
}

func (s *Store) UserByID(_ context.Context, id string) (storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return storage.User{}, err
	}
	for _, user := range doc.Users {
		if user.ID == id {
			return user, nil
		}
	}
	return storage.User{}, storage.ErrNotFound
}

func (s *Store) UserByEmail(_ context.Context, email string) (storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return storage.User{}, err
	}
	for _, user := range doc.Users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return storage.User{}, storage.ErrNotFound
}

func (s *Store) ListUsers(_ context.Context) ([]storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Users, nil
}

func (s *Store) UpdateUser(_ context.Context, user storage.User) (storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return storage.User{}, err
	}
	for index := range doc.Users {
		if doc.Users[index].ID == user.ID {
			doc.Users[index] = user
			if err := s.save(doc); err != nil {
				return storage.User{}, err
			}
			return user, nil
		}
	}
	return storage.User{}, storage.ErrNotFound
}

func (s *Store) CreateBlog(_ context.Context, blog storage.Blog) (storage.Blog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return storage.Blog{}, err
	}
	if blog.ID == "" {
		blog.ID = uuid.NewString()
	}
	doc.Blogs = append(doc.Blogs, blog)
	if err := s.save(doc); err != nil {
		return storage.Blog{}, err
	}
	return blog, nil
}

func (s *Store) BlogByID(_ context.Context, id string) (storage.Blog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return storage.Blog{}, err
	}
	for _, blog := range doc.Blogs {
		if blog.ID == id {
			return blog, nil
		}
	}
	return storage.Blog{}, storage.ErrNotFound
}

func (s *Store) ListBlogs(_ context.Context, filter storage.BlogFilter) ([]storage.Blog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	blogs := make([]storage.Blog, 0, len(doc.Blogs))
	for _, blog := range doc.Blogs {
		if filter.PublicOnly && blog.Draft {
			continue
		}
		if filter.AuthorID != "" && blog.AuthorID != filter.AuthorID {
			continue
		}
		blogs = append(blogs, blog)
	}
	sortNewestFirst(blogs, func(blog storage.Blog) int64 { return blog.CreatedAt.UnixNano() })
	return blogs, nil
}

func (s *Store) UpdateBlog(_ context.Context, blog storage.Blog) (storage.Blog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return storage.Blog{}, err
	}
	for index := range doc.Blogs {
		if doc.Blogs[index].ID == blog.ID {
			doc.Blogs[index] = blog
			if err := s.save(doc); err != nil {
				return storage.Blog{}, err
			}
			return blog, nil
		}
	}
	return storage.Blog{}, storage.ErrNotFound
}

func (s *Store) CreateChallenge(_ context.Context, challenge storage.Challenge) (storage.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return storage.Challenge{}, err
	}
	if challenge.ID == "" {
		challenge.ID = uuid.NewString()
	}
	if challenge.Participants == nil {
		challenge.Participants = []string{}
	}
	doc.Challenges = append(doc.Challenges, challenge)
	if err := s.save(doc); err != nil {
		return storage.Challenge{}, err
	}
	return challenge, nil
}

func (s *Store) ChallengeByID(_ context.Context, id string) (storage.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return storage.Challenge{}, err
	}
	for _, challenge := range doc.Challenges {
		if challenge.ID == id {
			return challenge, nil
		}
	}
	return storage.Challenge{}, storage.ErrNotFound
}

func (s *Store) ListChallenges(_ context.Context) ([]storage.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	challenges := append([]storage.Challenge{}, doc.Challenges...)
	sortNewestFirst(challenges, func(challenge storage.Challenge) int64 { return challenge.CreatedAt.UnixNano() })
	return challenges, nil
}

func (s *Store) UpdateChallenge(_ context.Context, challenge storage.Challenge) (storage.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return storage.Challenge{}, err
	}
	for index := range doc.Challenges {
		if doc.Challenges[index].ID == challenge.ID {
			doc.Challenges[index] = challenge
			if err := s.save(doc); err != nil {
				return storage.Challenge{}, err
			}
			return challenge, nil
		}
	}
	return storage.Challenge{}, storage.ErrNotFound
}

func (s *Store) CreateNotification(_ context.Context, notification storage.Notification) (storage.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return storage.Notification{}, err
	}
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	doc.Notifications = append(doc.Notifications, notification)
	if err := s.save(doc); err != nil {
		return storage.Notification{}, err
	}
	return notification, nil
}

func (s *Store) NotificationsForRecipient(_ context.Context, recipientID string) ([]storage.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	notifications := make([]storage.Notification, 0)
	for _, notification := range doc.Notifications {
		if notification.RecipientID == recipientID {
			notifications = append(notifications, notification)
		}
	}
	sortNewestFirst(notifications, func(notification storage.Notification) int64 { return notification.CreatedAt.UnixNano() })
	return notifications, nil
}

func (s *Store) DeleteNotification(_ context.Context, recipientID, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	for index, notification := range doc.Notifications {
		if notification.ID == notificationID && notification.RecipientID == recipientID {
			doc.Notifications = append(doc.Notifications[:index], doc.Notifications[index+1:]...)
			return s.save(doc)
		}
	}
	return storage.ErrNotFound
}

func (s *Store) CountUnreadNotifications(_ context.Context, recipientID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, notification := range doc.Notifications {
		if notification.RecipientID == recipientID && !notification.Read {
			count++
		}
	}
	return count, nil
}

func sortNewestFirst[T any](items []T, createdAt func(T) int64) {
	sort.SliceStable(items, func(i, j int) bool {
		return createdAt(items[i]) > createdAt(items[j])
	})
}

var _ storage.Store = (*Store)(nil)
