// ABOUTME: Interface definition for tweet storage.
// ABOUTME: Defines the contract for users, tweets, likes, and cursor-paginated timelines.
package storage

import (
	"context"
	"errors"

	"github.com/2389-research/chirp/internal/models"
)

// ErrNotFound is returned when a tweet or user doesn't exist.
var ErrNotFound = errors.New("not found")

// MaxTimelineLimit caps the page size of a timeline request.
const MaxTimelineLimit = 100

// TweetStore defines operations for tweet persistence.
type TweetStore interface {
	// EnsureUser returns the user with the given name, creating it if needed.
	EnsureUser(ctx context.Context, name string) (*models.User, error)

	// CreateTweet persists a tweet. The author must exist.
	CreateTweet(ctx context.Context, tweet *models.Tweet) error

	// GetTweet returns a tweet as seen by viewerID (which may be empty).
	GetTweet(ctx context.Context, tweetID, viewerID string) (*models.Tweet, error)

	// Like records that userID likes tweetID. Liking twice is a no-op.
	Like(ctx context.Context, tweetID, userID string) error

	// Unlike removes userID's like of tweetID, if any.
	Unlike(ctx context.Context, tweetID, userID string) error

	// Timeline returns one page of tweets, newest first, as seen by viewerID.
	// An empty cursor starts from the newest tweet.
	Timeline(ctx context.Context, viewerID string, input models.TimelineInput, cursor string) (models.TimelinePage, error)

	// Close releases any resources held by the store.
	Close() error
}

// clampLimit normalizes a requested page size.
func clampLimit(limit int) int {
	if limit <= 0 {
		return models.DefaultTimelineLimit
	}
	if limit > MaxTimelineLimit {
		return MaxTimelineLimit
	}
	return limit
}
