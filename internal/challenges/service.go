// Package challenges implements campus challenges and idempotent joins.
package challenges

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/campusconnect/backend/internal/apperror"
	"github.com/campusconnect/backend/internal/storage"
	"go.uber.org/zap"
)

var errMissingStore = errors.New("challenges: store is required")

// ServiceConfig describes the dependencies of the challenge service.
type ServiceConfig struct {
	Store  storage.Store
	Clock  func() time.Time
	Logger *zap.Logger
}

// Service manages challenges.
type Service struct {
	store  storage.Store
	clock  func() time.Time
	logger *zap.Logger
}

// NewService constructs the challenge service.
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
	return &Service{store: cfg.Store, clock: clock, logger: logger}, nil
}

// JoinResult reports the outcome of a join attempt. A repeat join carries
// Joined=false with an informational message and leaves the participant set
// unchanged.
type JoinResult struct {
	Joined       bool   `json:"joined"`
	Message      string `json:"message,omitempty"`
	Participants int    `json:"participants,omitempty"`
}

// Create persists a challenge with an empty participant set.
func (s *Service) Create(ctx context.Context, authorID, title, description string) (storage.Challenge, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(description) == "" {
		return storage.Challenge{}, apperror.Validation("title and description required")
	}

	challenge, err := s.store.CreateChallenge(ctx, storage.Challenge{
		Title:        title,
		Description:  description,
		AuthorID:     authorID,
		Participants: []string{},
		CreatedAt:    s.clock().UTC(),
	})
	if err != nil {
		s.logger.Error("challenge creation failed", zap.String("author_id", authorID), zap.Error(err))
		return storage.Challenge{}, apperror.Server(err)
	}
	return challenge, nil
}

// List returns all challenges, newest first.
func (s *Service) List(ctx context.Context) ([]storage.Challenge, error) {
	challenges, err := s.store.ListChallenges(ctx)
	if err != nil {
		s.logger.Error("challenge listing failed", zap.Error(err))
		return nil, apperror.Server(err)
	}
	return challenges, nil
}

// Join adds the user to the challenge's participant set. Joining twice is a
// no-op that reports "Already joined".
func (s *Service) Join(ctx context.Context, userID, challengeID string) (JoinResult, error) {
	challenge, err := s.store.ChallengeByID(ctx, challengeID)
	if errors.Is(err, storage.ErrNotFound) {
		return JoinResult{}, apperror.NotFound("Challenge not found")
	}
	if err != nil {
		s.logger.Error("challenge lookup failed", zap.String("challenge_id", challengeID), zap.Error(err))
		return JoinResult{}, apperror.Server(err)
	}

	for _, participant := range challenge.Participants {
		if participant == userID {
			return JoinResult{Joined: false, Message: "Already joined"}, nil
		}
	}

	challenge.Participants = append(challenge.Participants, userID)
	updated, err := s.store.UpdateChallenge(ctx, challenge)
	if err != nil {
		s.logger.Error("challenge join failed", zap.String("challenge_id", challengeID), zap.Error(err))
		return JoinResult{}, apperror.Server(err)
	}
	return JoinResult{Joined: true, Participants: len(updated.Participants)}, nil
}
