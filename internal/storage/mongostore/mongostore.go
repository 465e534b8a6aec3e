// Package mongostore maps the logical entities onto MongoDB collections.
// Identifier generation and the unique email index are delegated to the
// store; ObjectIDs are stringified so callers see the same opaque identifier
// contract as the file backend.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campusconnect/backend/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	databaseName   = "campusconnect"
	connectTimeout = 10 * time.Second
)

// Store implements storage.Store on top of MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// Connect establishes a MongoDB connection with a bounded attempt and ensures
// the unique email index. Callers treat a returned error as a signal to fall
// back to the file backend.
func Connect(ctx context.Context, uri string, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, fmt.Errorf("mongostore: connection uri is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}

	store := &Store{
		client: client,
		db:     client.Database(databaseName),
		logger: logger,
	}

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := store.users().Indexes().CreateOne(connectCtx, indexModel); err != nil {
		logger.Warn("mongostore: email index creation failed", zap.Error(err))
	}

	return store, nil
}

// Kind reports the active backend mode.
func (s *Store) Kind() storage.Kind {
	return storage.KindDocument
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) users() *mongo.Collection         { return s.db.Collection("users") }
func (s *Store) blogs() *mongo.Collection         { return s.db.Collection("blogs") }
func (s *Store) challenges() *mongo.Collection    { return s.db.Collection("challenges") }
func (s *Store) notifications() *mongo.Collection { return s.db.Collection("notifications") }

type bookmarkDoc struct {
	ID        string    `bson:"id"`
	Title     string    `bson:"title"`
	Href      string    `bson:"href"`
	Pinned    bool      `bson:"pinned"`
	CreatedAt time.Time `bson:"createdAt"`
}

type userDoc struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty"`
	Name                 string             `bson:"name"`
	Email                string             `bson:"email"`
	PasswordHash         string             `bson:"passwordHash"`
	Bio                  string             `bson:"bio"`
	Bookmarks            []bookmarkDoc      `bson:"bookmarks"`
	BookmarksEnabled     bool               `bson:"bookmarksEnabled"`
	NotificationsEnabled bool               `bson:"notificationsEnabled"`
	CreatedAt            time.Time          `bson:"createdAt"`
}

type blogDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	Content   string             `bson:"content"`
	AuthorID  string             `bson:"authorId"`
	Essential bool               `bson:"essential"`
	Mood      string             `bson:"mood"`
	Draft     bool               `bson:"draft"`
	CreatedAt time.Time          `bson:"createdAt"`
}

type challengeDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Title        string             `bson:"title"`
	Description  string             `bson:"description"`
	AuthorID     string             `bson:"authorId"`
	Participants []string           `bson:"participants"`
	CreatedAt    time.Time          `bson:"createdAt"`
}

type notificationDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	RecipientID string             `bson:"recipientId"`
	SenderID    string             `bson:"senderId"`
	Message     string             `bson:"message"`
	URL         string             `bson:"url"`
	Read        bool               `bson:"read"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

func toUserDoc(user storage.User) userDoc {
	bookmarks := make([]bookmarkDoc, 0, len(user.Bookmarks))
	for _, bookmark := range user.Bookmarks {
		bookmarks = append(bookmarks, bookmarkDoc(bookmark))
	}
	return userDoc{
		Name:                 user.Name,
		Email:                user.Email,
		PasswordHash:         user.PasswordHash,
		Bio:                  user.Bio,
		Bookmarks:            bookmarks,
		BookmarksEnabled:     user.BookmarksEnabled,
		NotificationsEnabled: user.NotificationsEnabled,
		CreatedAt:            user.CreatedAt,
	}
}

func fromUserDoc(doc userDoc) storage.User {
	bookmarks := make([]storage.Bookmark, 0, len(doc.Bookmarks))
	for _, bookmark := range doc.Bookmarks {
		bookmarks = append(bookmarks, storage.Bookmark(bookmark))
	}
	return storage.User{
		ID:                   doc.ID.Hex(),
		Name:                 doc.Name,
		Email:                doc.Email,
		PasswordHash:         doc.PasswordHash,
		Bio:                  doc.Bio,
		Bookmarks:            bookmarks,
		BookmarksEnabled:     doc.BookmarksEnabled,
		NotificationsEnabled: doc.NotificationsEnabled,
		CreatedAt:            doc.CreatedAt,
	}
}

func fromBlogDoc(doc blogDoc) storage.Blog {
	return storage.Blog{
		ID:        doc.ID.Hex(),
		Title:     doc.Title,
		Content:   doc.Content,
		AuthorID:  doc.AuthorID,
		Essential: doc.Essential,
		Mood:      doc.Mood,
		Draft:     doc.Draft,
		CreatedAt: doc.CreatedAt,
	}
}

func fromChallengeDoc(doc challengeDoc) storage.Challenge {
	participants := doc.Participants
	if participants == nil {
		participants = []string{}
	}
	return storage.Challenge{
		ID:           doc.ID.Hex(),
		Title:        doc.Title,
		Description:  doc.Description,
		AuthorID:     doc.AuthorID,
		Participants: participants,
		CreatedAt:    doc.CreatedAt,
	}
}

func fromNotificationDoc(doc notificationDoc) storage.Notification {
	return storage.Notification{
		ID:          doc.ID.Hex(),
		RecipientID: doc.RecipientID,
		SenderID:    doc.SenderID,
		Message:     doc.Message,
		URL:         doc.URL,
		Read:        doc.Read,
		CreatedAt:   doc.CreatedAt,
	}
}

// objectID parses an opaque identifier; malformed values map to ErrNotFound
// because no document can carry them.
func objectID(id string) (primitive.ObjectID, error) {
	parsed, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, storage.ErrNotFound
	}
	return parsed, nil
}

var newestFirst = options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

func (s *Store) CreateUser(ctx context.Context, user storage.User) (storage.User, error) {
	existingErr := s.users().FindOne(ctx, bson.M{"email": user.Email}).Err()
	if existingErr == nil {
		return storage.User{}, storage.ErrDuplicateEmail
	}
	if !errors.Is(existingErr, mongo.ErrNoDocuments) {
		return storage.User{}, existingErr
	}

	result, err := s.users().InsertOne(ctx, toUserDoc(user))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return storage.User{}, storage.ErrDuplicateEmail
		}
		return storage.User{}, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return storage.User{}, fmt.Errorf("mongostore: unexpected inserted id type %T", result.InsertedID)
	}
	user.ID = insertedID.Hex()
	return user, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (storage.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return storage.User{}, err
	}
	var doc userDoc
	if err := s.users().FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return storage.User{}, storage.ErrNotFound
		}
		return storage.User{}, err
	}
	return fromUserDoc(doc), nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (storage.User, error) {
	var doc userDoc
	if err := s.users().FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return storage.User{}, storage.ErrNotFound
		}
		return storage.User{}, err
	}
	return fromUserDoc(doc), nil
}

func (s *Store) ListUsers(ctx context.Context) ([]storage.User, error) {
	cursor, err := s.users().Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	users := make([]storage.User, 0, len(docs))
	for _, doc := range docs {
		users = append(users, fromUserDoc(doc))
	}
	return users, nil
}

func (s *Store) UpdateUser(ctx context.Context, user storage.User) (storage.User, error) {
	oid, err := objectID(user.ID)
	if err != nil {
		return storage.User{}, err
	}
	doc := toUserDoc(user)
	doc.ID = oid
	result, err := s.users().ReplaceOne(ctx, bson.M{"_id": oid}, doc)
	if err != nil {
		return storage.User{}, err
	}
	if result.MatchedCount == 0 {
		return storage.User{}, storage.ErrNotFound
	}
	return user, nil
}

func (s *Store) CreateBlog(ctx context.Context, blog storage.Blog) (storage.Blog, error) {
	doc := blogDoc{
		Title:     blog.Title,
		Content:   blog.Content,
		AuthorID:  blog.AuthorID,
		Essential: blog.Essential,
		Mood:      blog.Mood,
		Draft:     blog.Draft,
		CreatedAt: blog.CreatedAt,
	}
	result, err := s.blogs().InsertOne(ctx, doc)
	if err != nil {
		return storage.Blog{}, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return storage.Blog{}, fmt.Errorf("mongostore: unexpected inserted id type %T", result.InsertedID)
	}
	blog.ID = insertedID.Hex()
	return blog, nil
}

func (s *Store) BlogByID(ctx context.Context, id string) (storage.Blog, error) {
	oid, err := objectID(id)
	if err != nil {
		return storage.Blog{}, err
	}
	var doc blogDoc
	if err := s.blogs().FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return storage.Blog{}, storage.ErrNotFound
		}
		return storage.Blog{}, err
	}
	return fromBlogDoc(doc), nil
}

func (s *Store) ListBlogs(ctx context.Context, filter storage.BlogFilter) ([]storage.Blog, error) {
	query := bson.M{}
	if filter.PublicOnly {
		query["draft"] = bson.M{"$ne": true}
	}
	if filter.AuthorID != "" {
		query["authorId"] = filter.AuthorID
	}
	cursor, err := s.blogs().Find(ctx, query, newestFirst)
	if err != nil {
		return nil, err
	}
	var docs []blogDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	blogs := make([]storage.Blog, 0, len(docs))
	for _, doc := range docs {
		blogs = append(blogs, fromBlogDoc(doc))
	}
	return blogs, nil
}

func (s *Store) UpdateBlog(ctx context.Context, blog storage.Blog) (storage.Blog, error) {
	oid, err := objectID(blog.ID)
	if err != nil {
		return storage.Blog{}, err
	}
	doc := blogDoc{
		ID:        oid,
		Title:     blog.Title,
		Content:   blog.Content,
		AuthorID:  blog.AuthorID,
		Essential: blog.Essential,
		Mood:      blog.Mood,
		Draft:     blog.Draft,
		CreatedAt: blog.CreatedAt,
	}
	result, err := s.blogs().ReplaceOne(ctx, bson.M{"_id": oid}, doc)
	if err != nil {
		return storage.Blog{}, err
	}
	if result.MatchedCount == 0 {
		return storage.Blog{}, storage.ErrNotFound
	}
	return blog, nil
}

func (s *Store) CreateChallenge(ctx context.Context, challenge storage.Challenge) (storage.Challenge, error) {
	participants := challenge.Participants
	if participants == nil {
		participants = []string{}
	}
	doc := challengeDoc{
		Title:        challenge.Title,
		Description:  challenge.Description,
		AuthorID:     challenge.AuthorID,
		Participants: participants,
		CreatedAt:    challenge.CreatedAt,
	}
	result, err := s.challenges().InsertOne(ctx, doc)
	if err != nil {
		return storage.Challenge{}, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return storage.Challenge{}, fmt.Errorf("mongostore: unexpected inserted id type %T", result.InsertedID)
	}
	challenge.ID = insertedID.Hex()
	challenge.Participants = participants
	return challenge, nil
}

func (s *Store) ChallengeByID(ctx context.Context, id string) (storage.Challenge, error) {
	oid, err := objectID(id)
	if err != nil {
		return storage.Challenge{}, err
	}
	var doc challengeDoc
	if err := s.challenges().FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return storage.Challenge{}, storage.ErrNotFound
		}
		return storage.Challenge{}, err
	}
	return fromChallengeDoc(doc), nil
}

func (s *Store) ListChallenges(ctx context.Context) ([]storage.Challenge, error) {
	cursor, err := s.challenges().Find(ctx, bson.M{}, newestFirst)
	if err != nil {
		return nil, err
	}
	var docs []challengeDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	challenges := make([]storage.Challenge, 0, len(docs))
	for _, doc := range docs {
		challenges = append(challenges, fromChallengeDoc(doc))
	}
	return challenges, nil
}

func (s *Store) UpdateChallenge(ctx context.Context, challenge storage.Challenge) (storage.Challenge, error) {
	oid, err := objectID(challenge.ID)
	if err != nil {
		return storage.Challenge{}, err
	}
	doc := challengeDoc{
		ID:           oid,
		Title:        challenge.Title,
		Description:  challenge.Description,
		AuthorID:     challenge.AuthorID,
		Participants: challenge.Participants,
		CreatedAt:    challenge.CreatedAt,
	}
	result, err := s.challenges().ReplaceOne(ctx, bson.M{"_id": oid}, doc)
	if err != nil {
		return storage.Challenge{}, err
	}
	if result.MatchedCount == 0 {
		return storage.Challenge{}, storage.ErrNotFound
	}
	return challenge, nil
}

func (s *Store) CreateNotification(ctx context.Context, notification storage.Notification) (storage.Notification, error) {
	doc := notificationDoc{
		RecipientID: notification.RecipientID,
		SenderID:    notification.SenderID,
		Message:     notification.Message,
		URL:         notification.URL,
		Read:        notification.Read,
		CreatedAt:   notification.CreatedAt,
	}
	result, err := s.notifications().InsertOne(ctx, doc)
	if err != nil {
		return storage.Notification{}, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return storage.Notification{}, fmt.Errorf("mongostore: unexpected inserted id type %T", result.InsertedID)
	}
	notification.ID = insertedID.Hex()
	return notification, nil
}

func (s *Store) NotificationsForRecipient(ctx context.Context, recipientID string) ([]storage.Notification, error) {
	cursor, err := s.notifications().Find(ctx, bson.M{"recipientId": recipientID}, newestFirst)
	if err != nil {
		return nil, err
	}
	var docs []notificationDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	notifications := make([]storage.Notification, 0, len(docs))
	for _, doc := range docs {
		notifications = append(notifications, fromNotificationDoc(doc))
	}
	return notifications, nil
}

func (s *Store) DeleteNotification(ctx context.Context, recipientID, notificationID string) error {
	oid, err := objectID(notificationID)
	if err != nil {
		return err
	}
	result, err := s.notifications().DeleteOne(ctx, bson.M{"_id": oid, "recipientId": recipientID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) CountUnreadNotifications(ctx context.Context, recipientID string) (int, error) {
	count, err := s.notifications().CountDocuments(ctx, bson.M{"recipientId": recipientID, "read": false})
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

var _ storage.Store = (*Store)(nil)
