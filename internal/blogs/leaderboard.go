package blogs

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/campusconnect/backend/internal/apperror"
	"github.com/campusconnect/backend/internal/storage"
	"go.uber.org/zap"
)

const (
	leaderboardCacheKey = "leaderboard"
	leaderboardCacheTTL = 30 * time.Second
)

// LeaderboardEntry is one row of the word-count leaderboard. Score is the
// author's share of all words across all blogs.
type LeaderboardEntry struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Words int     `json:"words"`
	Score float64 `json:"score"`
}

// Leaderboard recomputes the leaderboard from the full blog corpus. The redis
// cache, when attached, is a pure optimization: entries are recomputed on
// miss and the key is dropped whenever a blog is created or updated.
func (s *Service) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	var cached []LeaderboardEntry
	if hit, err := s.cache.GetJSON(ctx, leaderboardCacheKey, &cached); err == nil && hit {
		return cached, nil
	}

	entries, err := s.computeLeaderboard(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, leaderboardCacheKey, entries, leaderboardCacheTTL); err != nil {
		s.logger.Warn("leaderboard cache write failed", zap.Error(err))
	}
	return entries, nil
}

func (s *Service) computeLeaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	blogs, err := s.store.ListBlogs(ctx, storage.BlogFilter{})
	if err != nil {
		s.logger.Error("leaderboard blog scan failed", zap.Error(err))
		return nil, apperror.Server(err)
	}

	totalWords := 0
	wordsByAuthor := map[string]int{}
	authorOrder := []string{}
	for _, blog := range blogs {
		words := countWords(blog.Content)
		totalWords += words
		if _, seen := wordsByAuthor[blog.AuthorID]; !seen {
			authorOrder = append(authorOrder, blog.AuthorID)
		}
		wordsByAuthor[blog.AuthorID] += words
	}

	names := map[string]string{}
	if users, err := s.store.ListUsers(ctx); err == nil {
		for _, user := range users {
			names[user.ID] = user.Name
		}
	} else {
		s.logger.Warn("leaderboard name resolution failed", zap.Error(err))
	}

	entries := make([]LeaderboardEntry, 0, len(authorOrder))
	for _, authorID := range authorOrder {
		words := wordsByAuthor[authorID]
		score := 0.0
		if totalWords > 0 {
			score = float64(words) / float64(totalWords)
		}
		name := names[authorID]
		if name == "" {
			name = authorID
		}
		entries = append(entries, LeaderboardEntry{
			ID:    authorID,
			Name:  name,
			Words: words,
			Score: score,
		})
	}

	// Tie order is implementation-defined: the stable sort preserves the
	// per-author accumulation order.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return entries, nil
}

func (s *Service) invalidateLeaderboard(ctx context.Context) {
	if err := s.cache.Delete(ctx, leaderboardCacheKey); err != nil {
		s.logger.Warn("leaderboard cache invalidation failed", zap.Error(err))
	}
}

// countWords tokenizes content by whitespace runs; blank content yields zero.
func countWords(content string) int {
	return len(strings.Fields(content))
}
