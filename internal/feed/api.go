// ABOUTME: Contract of the tweet API consumed by the feed client.
// ABOUTME: Implemented by the HTTP remote client and the local-first store adapter.
package feed

import (
	"context"

	"github.com/2389-research/chirp/internal/models"
)

// API is the remote procedure surface the client talks to.
type API interface {
	// CreateTweet posts text as the signed-in user.
	CreateTweet(ctx context.Context, text string) (*models.Tweet, error)

	// LikeTweet records a like by the signed-in user.
	LikeTweet(ctx context.Context, tweetID string) (models.LikeResult, error)

	// UnlikeTweet removes the signed-in user's like.
	UnlikeTweet(ctx context.Context, tweetID string) (models.LikeResult, error)

	// FetchTimeline returns one page. An empty cursor requests the first page.
	FetchTimeline(ctx context.Context, input models.TimelineInput, cursor string) (models.TimelinePage, error)
}
