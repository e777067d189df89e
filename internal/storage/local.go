// ABOUTME: Local-first tweet API that talks straight to a TweetStore.
// ABOUTME: Acts as the signed-in identity when no remote API is configured.
package storage

import (
	"context"
	"fmt"

	"github.com/2389-research/chirp/internal/auth"
	"github.com/2389-research/chirp/internal/models"
)

// LocalAPI serves the tweet API from a local store on behalf of the signed-in user.
type LocalAPI struct {
	store      TweetStore
	identities auth.IdentitySource
}

// NewLocalAPI binds store to the identity returned by identities.
func NewLocalAPI(store TweetStore, identities auth.IdentitySource) *LocalAPI {
	return &LocalAPI{store: store, identities: identities}
}

// viewer resolves the signed-in user. It returns nil when signed out.
func (a *LocalAPI) viewer(ctx context.Context) (*models.User, error) {
	name, err := a.identities.GetIdentity()
	if err != nil {
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	if name == "" {
		return nil, nil
	}
	return a.store.EnsureUser(ctx, name)
}

func (a *LocalAPI) requireViewer(ctx context.Context) (*models.User, error) {
	u, err := a.viewer(ctx)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, auth.ErrNotSignedIn
	}
	return u, nil
}

// CreateTweet stores a new tweet by the signed-in user.
func (a *LocalAPI) CreateTweet(ctx context.Context, text string) (*models.Tweet, error) {
	if err := models.ValidateTweetText(text); err != nil {
		return nil, err
	}
	u, err := a.requireViewer(ctx)
	if err != nil {
		return nil, err
	}

	tweet := models.NewTweet(*u, text)
	if err := a.store.CreateTweet(ctx, tweet); err != nil {
		return nil, err
	}
	return tweet, nil
}

// LikeTweet likes tweetID as the signed-in user.
func (a *LocalAPI) LikeTweet(ctx context.Context, tweetID string) (models.LikeResult, error) {
	u, err := a.requireViewer(ctx)
	if err != nil {
		return models.LikeResult{}, err
	}
	if err := a.store.Like(ctx, tweetID, u.ID); err != nil {
		return models.LikeResult{}, err
	}
	return models.LikeResult{TweetID: tweetID, UserID: u.ID}, nil
}

// UnlikeTweet removes the signed-in user's like of tweetID.
func (a *LocalAPI) UnlikeTweet(ctx context.Context, tweetID string) (models.LikeResult, error) {
	u, err := a.requireViewer(ctx)
	if err != nil {
		return models.LikeResult{}, err
	}
	if err := a.store.Unlike(ctx, tweetID, u.ID); err != nil {
		return models.LikeResult{}, err
	}
	return models.LikeResult{TweetID: tweetID, UserID: u.ID}, nil
}

// FetchTimeline returns a page as seen by the signed-in user, or anonymously.
func (a *LocalAPI) FetchTimeline(ctx context.Context, input models.TimelineInput, cursor string) (models.TimelinePage, error) {
	u, err := a.viewer(ctx)
	if err != nil {
		return models.TimelinePage{}, err
	}
	viewerID := ""
	if u != nil {
		viewerID = u.ID
	}
	return a.store.Timeline(ctx, viewerID, input, cursor)
}
