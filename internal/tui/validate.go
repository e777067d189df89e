// ABOUTME: Sign-in checks run by the setup wizard for local and remote modes.
// ABOUTME: Each one signs the handle in and returns a short preview of the timeline.
package tui

import (
	"context"
	"fmt"

	"github.com/2389-research/chirp/internal/models"
	"github.com/2389-research/chirp/internal/storage"
)

type fixedName string

func (n fixedName) GetIdentity() (string, error) { return string(n), nil }

// CheckRemote validates the server connection for conn and fetches a preview
// page as conn.UserName.
func CheckRemote(ctx context.Context, conn Connection) ([]models.Tweet, error) {
	client := storage.NewRemoteClient(conn.APIURL, conn.APIKey, fixedName(conn.UserName))
	if err := client.ValidateConnection(ctx); err != nil {
		return nil, err
	}
	page, err := client.FetchTimeline(ctx, models.TimelineInput{Limit: previewSize}, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load timeline: %w", err)
	}
	return page.Tweets, nil
}

// CheckLocal returns a check that creates the user in store and previews
// the local timeline as that user.
func CheckLocal(store storage.TweetStore) CheckFn {
	return func(ctx context.Context, conn Connection) ([]models.Tweet, error) {
		user, err := store.EnsureUser(ctx, conn.UserName)
		if err != nil {
			return nil, fmt.Errorf("failed to sign in: %w", err)
		}
		page, err := store.Timeline(ctx, user.ID, models.TimelineInput{Limit: previewSize}, "")
		if err != nil {
			return nil, fmt.Errorf("failed to load timeline: %w", err)
		}
		return page.Tweets, nil
	}
}

// Check dispatches to CheckRemote or to the local check over store.
func Check(store storage.TweetStore) CheckFn {
	local := CheckLocal(store)
	return func(ctx context.Context, conn Connection) ([]models.Tweet, error) {
		if conn.Mode == ModeRemote {
			return CheckRemote(ctx, conn)
		}
		return local(ctx, conn)
	}
}
