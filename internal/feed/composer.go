// ABOUTME: Tweet composer that validates text, posts it, and invalidates cached timelines.
// ABOUTME: A new tweet forces every timeline query to refetch from the first page.
package feed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/2389-research/chirp/internal/auth"
	"github.com/2389-research/chirp/internal/models"
	"github.com/2389-research/chirp/internal/querycache"
)

// Composer creates tweets.
type Composer struct {
	api   API
	cache *querycache.Cache
	auth  auth.Provider
	log   *zap.Logger
}

// NewComposer creates a composer. provider and log may be nil.
func NewComposer(api API, cache *querycache.Cache, provider auth.Provider, log *zap.Logger) *Composer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Composer{api: api, cache: cache, auth: provider, log: log}
}

// Create validates and posts text. Validation errors are returned before any
// network call.
func (c *Composer) Create(ctx context.Context, text string) (*models.Tweet, error) {
	if err := models.ValidateTweetText(text); err != nil {
		return nil, err
	}
	if err := auth.Require(c.auth); err != nil {
		return nil, err
	}

	tweet, err := c.api.CreateTweet(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create tweet: %w", err)
	}

	n := c.cache.Invalidate(TimelineQuery)
	c.log.Debug("invalidated timelines after new tweet",
		zap.String("tweet_id", tweet.ID),
		zap.Int("entries", n),
	)
	return tweet, nil
}
