package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/campusconnect/backend/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "data.json"), nil)
	if err != nil {
		t.Fatalf("unexpected store error: %v", err)
	}
	return store
}

func TestNewSelfHealsMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if _, err := New(path, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected data file to be created: %v", err)
	}
}

func TestNewSelfHealsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}

	store, err := New(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	users, err := store.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("expected empty store after reinitialization, got %d users", len(users))
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.CreateUser(ctx, storage.User{Name: "Ada", Email: "ada@campus.edu"}); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	_, err := store.CreateUser(ctx, storage.User{Name: "Imposter", Email: "ADA@campus.edu"})
	if !errors.Is(err, storage.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	users, err := store.ListUsers(ctx)
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected exactly one user, got %d", len(users))
	}
}

func TestUserPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	ctx := context.Background()

	first, err := New(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	created, err := first.CreateUser(ctx, storage.User{Name: "Ada", Email: "ada@campus.edu"})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected a generated identifier")
	}

	second, err := New(path, nil)
	if err != nil {
		t.Fatalf("unexpected reopen error: %v", err)
	}
	loaded, err := second.UserByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("unexpected lookup error: %v", err)
	}
	if loaded.Email != "ada@campus.edu" {
		t.Fatalf("unexpected email %q", loaded.Email)
	}
}

func TestListBlogsFiltersAndSorts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Unix(1700000000, 0).UTC()

	mustCreateBlog(t, store, storage.Blog{Title: "old", AuthorID: "a", CreatedAt: base})
	mustCreateBlog(t, store, storage.Blog{Title: "hidden", AuthorID: "a", Draft: true, CreatedAt: base.Add(time.Second)})
	mustCreateBlog(t, store, storage.Blog{Title: "new", AuthorID: "b", CreatedAt: base.Add(2 * time.Second)})

	public, err := store.ListBlogs(ctx, storage.BlogFilter{PublicOnly: true})
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(public) != 2 {
		t.Fatalf("expected 2 public blogs, got %d", len(public))
	}
	if public[0].Title != "new" || public[1].Title != "old" {
		t.Fatalf("expected newest-first order, got %q then %q", public[0].Title, public[1].Title)
	}

	all, err := store.ListBlogs(ctx, storage.BlogFilter{})
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected all 3 blogs, got %d", len(all))
	}

	byAuthor, err := store.ListBlogs(ctx, storage.BlogFilter{AuthorID: "b"})
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(byAuthor) != 1 || byAuthor[0].Title != "new" {
		t.Fatalf("unexpected author filter result: %#v", byAuthor)
	}
}

func TestUpdateBlogMissingReturnsNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.UpdateBlog(context.Background(), storage.Blog{ID: "missing"})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteNotificationScopedToRecipient(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.CreateNotification(ctx, storage.Notification{
		RecipientID: "alice",
		SenderID:    "bob",
		Message:     "bob shared your blog: Hello",
	})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	if err := store.DeleteNotification(ctx, "bob", created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for cross-user delete, got %v", err)
	}
	remaining, err := store.NotificationsForRecipient(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("notification should survive a cross-user delete, got %d", len(remaining))
	}

	if err := store.DeleteNotification(ctx, "alice", created.ID); err != nil {
		t.Fatalf("unexpected owner delete error: %v", err)
	}
	remaining, err = store.NotificationsForRecipient(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected empty list after owner delete, got %d", len(remaining))
	}
}

func TestCountUnreadNotifications(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, notification := range []storage.Notification{
		{RecipientID: "alice", Read: false},
		{RecipientID: "alice", Read: true},
		{RecipientID: "bob", Read: false},
	} {
		if _, err := store.CreateNotification(ctx, notification); err != nil {
			t.Fatalf("unexpected create error: %v", err)
		}
	}

	count, err := store.CountUnreadNotifications(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected count error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 unread notification, got %d", count)
	}
}

func mustCreateBlog(t *testing.T, store *Store, blog storage.Blog) storage.Blog {
	t.Helper()
	created, err := store.CreateBlog(context.Background(), blog)
	if err != nil {
		t.Fatalf("unexpected blog create error: %v", err)
	}
	return created
}
