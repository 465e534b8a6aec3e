// Package storage defines the persistence surface shared by the document and
// flat-file backends. Services are written against Store and never branch on
// the active backend except where the two modes intentionally diverge, in
// which case they consult Kind.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the entity does not exist, or the identifier is
	// malformed for the active backend's identifier format.
	ErrNotFound = errors.New("storage: not found")
	// ErrDuplicateEmail indicates another user already owns the email address.
	ErrDuplicateEmail = errors.New("storage: duplicate email")
)

// Kind identifies which backend is active.
type Kind string

const (
	// KindFile is the single-JSON-document backend.
	KindFile Kind = "file"
	// KindDocument is the MongoDB-backed document backend.
	KindDocument Kind = "document"
)

// Bookmark is embedded in a user. Identifiers are caller supplied and unique
// per user.
type Bookmark struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Href      string    `json:"href"`
	Pinned    bool      `json:"pinned"`
	CreatedAt time.Time `json:"createdAt"`
}

// User is a registered account. Email is stored lowercased and unique.
type User struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Email                string     `json:"email"`
	PasswordHash         string     `json:"passwordHash"`
	Bio                  string     `json:"bio"`
	Bookmarks            []Bookmark `json:"bookmarks"`
	BookmarksEnabled     bool       `json:"bookmarksEnabled"`
	NotificationsEnabled bool       `json:"notificationsEnabled"`
	CreatedAt            time.Time  `json:"createdAt"`
}

// Blog is a published post. AuthorID is a weak reference to a user.
type Blog struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"authorId"`
	Essential bool      `json:"essential"`
	Mood      string    `json:"mood"`
	Draft     bool      `json:"draft"`
	CreatedAt time.Time `json:"createdAt"`
}

// Challenge is a campus challenge with a duplicate-free participant set.
type Challenge struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	AuthorID     string    `json:"authorId"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Notification is addressed to a single recipient.
type Notification struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipientId"`
	SenderID    string    `json:"senderId"`
	Message     string    `json:"message"`
	URL         string    `json:"url"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"createdAt"`
}

// BlogFilter narrows ListBlogs. Zero value lists everything.
type BlogFilter struct {
	// PublicOnly excludes drafts.
	PublicOnly bool
	// AuthorID, when set, restricts to a single author.
	AuthorID string
}

// Store is the uniform persistence surface. Identifiers are opaque strings in
// both modes: UUIDs in file mode, stringified ObjectIDs in document mode.
// Create methods assign the identifier and return the stored entity. Update
// methods replace the stored entity wholesale; read-modify-write cycles are
// last-write-wins.
type Store interface {
	Kind() Kind
	Close(ctx context.Context) error

	CreateUser(ctx context.Context, user User) (User, error)
	UserByID(ctx context.Context, id string) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, user User) (User, error)

	CreateBlog(ctx context.Context, blog Blog) (Blog, error)
	BlogByID(ctx context.Context, id string) (Blog, error)
	ListBlogs(ctx context.Context, filter BlogFilter) ([]Blog, error)
	UpdateBlog(ctx context.Context, blog Blog) (Blog, error)

	CreateChallenge(ctx context.Context, challenge Challenge) (Challenge, error)
	ChallengeByID(ctx context.Context, id string) (Challenge, error)
	ListChallenges(ctx context.Context) ([]Challenge, error)
	UpdateChallenge(ctx context.Context, challenge Challenge) (Challenge, error)

	CreateNotification(ctx context.Context, notification Notification) (Notification, error)
	NotificationsForRecipient(ctx context.Context, recipientID string) ([]Notification, error)
	// DeleteNotification removes the notification only when it belongs to the
	// recipient; it returns ErrNotFound otherwise.
	DeleteNotification(ctx context.Context, recipientID, notificationID string) error
	CountUnreadNotifications(ctx context.Context, recipientID string) (int, error)
}
