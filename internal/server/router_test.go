package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/campusconnect/backend/internal/auth"
	"github.com/campusconnect/backend/internal/blogs"
	"github.com/campusconnect/backend/internal/challenges"
	"github.com/campusconnect/backend/internal/notifications"
	"github.com/campusconnect/backend/internal/storage/filestore"
	"github.com/campusconnect/backend/internal/users"
	"github.com/gin-gonic/gin"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := filestore.New(filepath.Join(t.TempDir(), "data.json"), nil)
	if err != nil {
		t.Fatalf("unexpected store error: %v", err)
	}
	issuer := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte("test-secret"),
		Issuer:        "campus-auth",
		Audience:      "campus-api",
	})

	notificationService, err := notifications.NewService(notifications.ServiceConfig{Store: store})
	if err != nil {
		t.Fatalf("unexpected notifier error: %v", err)
	}
	userService, err := users.NewService(users.ServiceConfig{Store: store, Tokens: issuer})
	if err != nil {
		t.Fatalf("unexpected user service error: %v", err)
	}
	blogService, err := blogs.NewService(blogs.ServiceConfig{Store: store, Notifier: notificationService})
	if err != nil {
		t.Fatalf("unexpected blog service error: %v", err)
	}
	challengeService, err := challenges.NewService(challenges.ServiceConfig{Store: store})
	if err != nil {
		t.Fatalf("unexpected challenge service error: %v", err)
	}

	handler, err := NewHTTPHandler(Dependencies{
		Tokens:        issuer,
		Users:         userService,
		Blogs:         blogService,
		Challenges:    challengeService,
		Notifications: notificationService,
	})
	if err != nil {
		t.Fatalf("unexpected handler error: %v", err)
	}
	return handler
}

func performRequest(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("unexpected marshal error: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("unexpected decode error: %v (body %q)", err, recorder.Body.String())
	}
}

func signUp(t *testing.T, handler http.Handler, name, email string) (string, string) {
	t.Helper()
	recorder := performRequest(t, handler, http.MethodPost, "/api/signup", "", map[string]string{
		"name":     name,
		"email":    email,
		"password": "hunter22",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected signup status %d: %s", recorder.Code, recorder.Body.String())
	}
	var response struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		Token string `json:"token"`
	}
	decodeBody(t, recorder, &response)
	if response.Token == "" || response.User.ID == "" {
		t.Fatalf("expected user and token in signup response: %s", recorder.Body.String())
	}
	return response.User.ID, response.Token
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestHandler(t)
	recorder := performRequest(t, handler, http.MethodGet, "/api/health", "", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", recorder.Code)
	}
}

func TestSignUpAndLogIn(t *testing.T) {
	handler := newTestHandler(t)
	signUp(t, handler, "Ada", "ada@campus.edu")

	recorder := performRequest(t, handler, http.MethodPost, "/api/login", "", map[string]string{
		"email":    "ada@campus.edu",
		"password": "hunter22",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected login status %d: %s", recorder.Code, recorder.Body.String())
	}

	recorder = performRequest(t, handler, http.MethodPost, "/api/login", "", map[string]string{
		"email":    "ada@campus.edu",
		"password": "wrong",
	})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad credentials, got %d", recorder.Code)
	}
	var errorResponse struct {
		Error string `json:"error"`
	}
	decodeBody(t, recorder, &errorResponse)
	if errorResponse.Error != "Invalid credentials" {
		t.Fatalf("unexpected error message %q", errorResponse.Error)
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	handler := newTestHandler(t)
	signUp(t, handler, "Ada", "ada@campus.edu")

	recorder := performRequest(t, handler, http.MethodPost, "/api/signup", "", map[string]string{
		"name":     "Imposter",
		"email":    "ADA@campus.edu",
		"password": "other",
	})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate email, got %d", recorder.Code)
	}
	var errorResponse struct {
		Error string `json:"error"`
	}
	decodeBody(t, recorder, &errorResponse)
	if errorResponse.Error != "Email already registered" {
		t.Fatalf("unexpected error message %q", errorResponse.Error)
	}
}

func TestProtectedRoutesRequireBearerToken(t *testing.T) {
	handler := newTestHandler(t)

	recorder := performRequest(t, handler, http.MethodGet, "/api/profile", "", nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", recorder.Code)
	}

	recorder = performRequest(t, handler, http.MethodGet, "/api/profile", "not-a-token", nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", recorder.Code)
	}
}

func TestPublishListAndNotifications(t *testing.T) {
	handler := newTestHandler(t)
	_, adaToken := signUp(t, handler, "Ada", "ada@campus.edu")
	_, bobToken := signUp(t, handler, "Bob", "bob@campus.edu")

	recorder := performRequest(t, handler, http.MethodPost, "/api/blogs", adaToken, map[string]any{
		"title":   "Hello",
		"content": "one two three",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected publish status %d: %s", recorder.Code, recorder.Body.String())
	}

	recorder = performRequest(t, handler, http.MethodGet, "/api/blogs", "", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected list status %d", recorder.Code)
	}
	var listed []struct {
		Title      string `json:"title"`
		AuthorName string `json:"authorName"`
		ShareURL   string `json:"shareUrl"`
	}
	decodeBody(t, recorder, &listed)
	if len(listed) != 1 || listed[0].Title != "Hello" || listed[0].AuthorName != "Ada" {
		t.Fatalf("unexpected listing: %s", recorder.Body.String())
	}
	if listed[0].ShareURL == "" {
		t.Fatalf("expected a share url in the listing")
	}

	recorder = performRequest(t, handler, http.MethodGet, "/api/notifications", bobToken, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected notifications status %d", recorder.Code)
	}
	var inbox struct {
		Notifications []struct {
			ID      string `json:"id"`
			Message string `json:"message"`
		} `json:"notifications"`
	}
	decodeBody(t, recorder, &inbox)
	if len(inbox.Notifications) != 1 {
		t.Fatalf("expected 1 notification for bob: %s", recorder.Body.String())
	}

	recorder = performRequest(t, handler, http.MethodDelete, "/api/notifications/"+inbox.Notifications[0].ID, bobToken, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected dismissal status %d: %s", recorder.Code, recorder.Body.String())
	}
}

func TestUpdateBlogByNonAuthorReturnsForbidden(t *testing.T) {
	handler := newTestHandler(t)
	_, adaToken := signUp(t, handler, "Ada", "ada@campus.edu")
	_, bobToken := signUp(t, handler, "Bob", "bob@campus.edu")

	recorder := performRequest(t, handler, http.MethodPost, "/api/blogs", adaToken, map[string]any{
		"title":   "Hello",
		"content": "body",
	})
	var published struct {
		ID string `json:"id"`
	}
	decodeBody(t, recorder, &published)

	recorder = performRequest(t, handler, http.MethodPut, "/api/blogs/"+published.ID, bobToken, map[string]any{
		"title":   "Hijack",
		"content": "nope",
	})
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var errorResponse struct {
		Error string `json:"error"`
	}
	decodeBody(t, recorder, &errorResponse)
	if errorResponse.Error != "Not allowed" {
		t.Fatalf("unexpected error message %q", errorResponse.Error)
	}
}

func TestChallengeJoinFlow(t *testing.T) {
	handler := newTestHandler(t)
	_, adaToken := signUp(t, handler, "Ada", "ada@campus.edu")
	_, bobToken := signUp(t, handler, "Bob", "bob@campus.edu")

	recorder := performRequest(t, handler, http.MethodPost, "/api/challenges", adaToken, map[string]string{
		"title":       "Read more",
		"description": "A book a week",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected create status %d: %s", recorder.Code, recorder.Body.String())
	}
	var challenge struct {
		ID string `json:"id"`
	}
	decodeBody(t, recorder, &challenge)

	recorder = performRequest(t, handler, http.MethodPost, "/api/challenges/"+challenge.ID+"/join", bobToken, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected join status %d: %s", recorder.Code, recorder.Body.String())
	}
	var joined struct {
		Joined       bool   `json:"joined"`
		Participants int    `json:"participants"`
		Message      string `json:"message"`
	}
	decodeBody(t, recorder, &joined)
	if !joined.Joined || joined.Participants != 1 {
		t.Fatalf("unexpected join result: %s", recorder.Body.String())
	}

	recorder = performRequest(t, handler, http.MethodPost, "/api/challenges/"+challenge.ID+"/join", bobToken, nil)
	decodeBody(t, recorder, &joined)
	if joined.Joined || joined.Message != "Already joined" {
		t.Fatalf("unexpected repeat join result: %s", recorder.Body.String())
	}

	recorder = performRequest(t, handler, http.MethodPost, "/api/challenges/missing/join", bobToken, nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing challenge, got %d", recorder.Code)
	}
}

func TestBookmarkRoutes(t *testing.T) {
	handler := newTestHandler(t)
	_, token := signUp(t, handler, "Ada", "ada@campus.edu")

	recorder := performRequest(t, handler, http.MethodPost, "/api/bookmarks", token, map[string]any{
		"id":    "bm-1",
		"title": "Library",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected add status %d: %s", recorder.Code, recorder.Body.String())
	}

	recorder = performRequest(t, handler, http.MethodPut, "/api/bookmarks/bm-1", token, map[string]any{"pinned": true})
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected update status %d: %s", recorder.Code, recorder.Body.String())
	}
	var listResponse struct {
		Bookmarks []struct {
			ID     string `json:"id"`
			Pinned bool   `json:"pinned"`
		} `json:"bookmarks"`
	}
	decodeBody(t, recorder, &listResponse)
	if len(listResponse.Bookmarks) != 1 || !listResponse.Bookmarks[0].Pinned {
		t.Fatalf("unexpected bookmark list: %s", recorder.Body.String())
	}

	recorder = performRequest(t, handler, http.MethodDelete, "/api/bookmarks/bm-1", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected remove status %d: %s", recorder.Code, recorder.Body.String())
	}
	decodeBody(t, recorder, &listResponse)
	if len(listResponse.Bookmarks) != 0 {
		t.Fatalf("expected empty list after removal: %s", recorder.Body.String())
	}
}

func TestLeaderboardEndpoint(t *testing.T) {
	handler := newTestHandler(t)
	_, token := signUp(t, handler, "Ada", "ada@campus.edu")

	recorder := performRequest(t, handler, http.MethodPost, "/api/blogs", token, map[string]any{
		"title":   "Hello",
		"content": "one two three",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected publish status %d: %s", recorder.Code, recorder.Body.String())
	}

	recorder = performRequest(t, handler, http.MethodGet, "/api/leaderboard", "", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected leaderboard status %d", recorder.Code)
	}
	var entries []struct {
		Name  string  `json:"name"`
		Words int     `json:"words"`
		Score float64 `json:"score"`
	}
	decodeBody(t, recorder, &entries)
	if len(entries) != 1 || entries[0].Words != 3 || entries[0].Score != 1 {
		t.Fatalf("unexpected leaderboard: %s", recorder.Body.String())
	}
}

func TestProfileRoundTrip(t *testing.T) {
	handler := newTestHandler(t)
	userID, token := signUp(t, handler, "Ada", "ada@campus.edu")

	recorder := performRequest(t, handler, http.MethodPut, "/api/profile", token, map[string]any{
		"bio": "systems student",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected update status %d: %s", recorder.Code, recorder.Body.String())
	}

	recorder = performRequest(t, handler, http.MethodGet, "/api/profile", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected profile status %d", recorder.Code)
	}
	var profileResponse struct {
		User struct {
			ID                  string `json:"id"`
			Bio                 string `json:"bio"`
			Email               string `json:"email"`
			UnreadNotifications *int   `json:"unreadNotifications"`
		} `json:"user"`
	}
	decodeBody(t, recorder, &profileResponse)
	if profileResponse.User.ID != userID || profileResponse.User.Bio != "systems student" {
		t.Fatalf("unexpected profile: %s", recorder.Body.String())
	}
	if profileResponse.User.UnreadNotifications == nil {
		t.Fatalf("file mode profile must carry the unread count")
	}

	recorder = performRequest(t, handler, http.MethodGet, "/api/users/"+userID, "", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected public profile status %d", recorder.Code)
	}
	if bytes.Contains(recorder.Body.Bytes(), []byte("ada@campus.edu")) {
		t.Fatalf("public profile must not expose the email: %s", recorder.Body.String())
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	handler := newTestHandler(t)

	past := time.Now().Add(-48 * time.Hour)
	staleIssuer := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte("test-secret"),
		Issuer:        "campus-auth",
		Audience:      "campus-api",
		TokenTTL:      time.Hour,
		Clock:         func() time.Time { return past },
	})
	token, err := staleIssuer.IssueToken("user-123")
	if err != nil {
		t.Fatalf("unexpected issue error: %v", err)
	}

	recorder := performRequest(t, handler, http.MethodGet, "/api/profile", token, nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", recorder.Code)
	}
}
