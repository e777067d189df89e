// ABOUTME: Tests for SQLite tweet storage and the local-first API adapter.
// ABOUTME: Covers users, likes, keyset pagination, author filters, and cursor handling.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/2389-research/chirp/internal/auth"
	"github.com/2389-research/chirp/internal/feed"
	"github.com/2389-research/chirp/internal/models"
)

var (
	_ TweetStore = (*SQLiteStore)(nil)
	_ feed.API   = (*LocalAPI)(nil)
	_ feed.API   = (*RemoteClient)(nil)
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "chirp.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// seedTweets creates n tweets by author, one second apart, oldest first.
func seedTweets(t *testing.T, store *SQLiteStore, author *models.User, n int) []*models.Tweet {
	t.Helper()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	var out []*models.Tweet
	for i := 0; i < n; i++ {
		tw := models.NewTweet(*author, fmt.Sprintf("tweet number %02d", i))
		tw.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := store.CreateTweet(context.Background(), tw); err != nil {
			t.Fatalf("CreateTweet error: %v", err)
		}
		out = append(out, tw)
	}
	return out
}

func TestEnsureUserIdempotent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	a, err := store.EnsureUser(ctx, "gecko")
	if err != nil {
		t.Fatalf("EnsureUser error: %v", err)
	}
	b, err := store.EnsureUser(ctx, "gecko")
	if err != nil {
		t.Fatalf("EnsureUser error: %v", err)
	}
	if a.ID != b.ID {
		t.Errorf("expected same user, got %s and %s", a.ID, b.ID)
	}

	if _, err := store.EnsureUser(ctx, ""); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestCreateTweetUnknownAuthor(t *testing.T) {
	store := testStore(t)
	tw := models.NewTweet(models.User{ID: "ghost"}, "nobody wrote this")
	err := store.CreateTweet(context.Background(), tw)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTimelinePaginates(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	author, _ := store.EnsureUser(ctx, "gecko")
	seeded := seedTweets(t, store, author, 25)

	var (
		got    []models.Tweet
		cursor string
		pages  int
	)
	for {
		page, err := store.Timeline(ctx, "", models.TimelineInput{Limit: 10}, cursor)
		if err != nil {
			t.Fatalf("Timeline error: %v", err)
		}
		pages++
		got = append(got, page.Tweets...)
		if page.NextCursor == nil {
			break
		}
		cursor = *page.NextCursor
	}

	if pages != 3 {
		t.Errorf("expected 3 pages, got %d", pages)
	}
	if len(got) != 25 {
		t.Fatalf("expected 25 tweets, got %d", len(got))
	}
	// newest first
	for i, tw := range got {
		want := seeded[len(seeded)-1-i]
		if tw.ID != want.ID {
			t.Fatalf("position %d: got %s, want %s", i, tw.ID, want.ID)
		}
	}
	if got[0].Author.Name != "gecko" {
		t.Errorf("expected author gecko, got %q", got[0].Author.Name)
	}
	if !got[0].CreatedAt.Equal(seeded[24].CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got[0].CreatedAt, seeded[24].CreatedAt)
	}
}

func TestTimelineExactPageHasNoCursor(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	author, _ := store.EnsureUser(ctx, "gecko")
	seedTweets(t, store, author, 10)

	page, err := store.Timeline(ctx, "", models.TimelineInput{Limit: 10}, "")
	if err != nil {
		t.Fatalf("Timeline error: %v", err)
	}
	if len(page.Tweets) != 10 {
		t.Errorf("expected 10 tweets, got %d", len(page.Tweets))
	}
	if page.NextCursor != nil {
		t.Error("expected no next cursor when the page is exactly full")
	}
}

func TestTimelineSameTimestampTieBreak(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	author, _ := store.EnsureUser(ctx, "gecko")

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		tw := models.NewTweet(*author, "same instant tweet")
		tw.CreatedAt = at
		if err := store.CreateTweet(ctx, tw); err != nil {
			t.Fatal(err)
		}
	}

	seen := map[string]bool{}
	cursor := ""
	for {
		page, err := store.Timeline(ctx, "", models.TimelineInput{Limit: 2}, cursor)
		if err != nil {
			t.Fatalf("Timeline error: %v", err)
		}
		for _, tw := range page.Tweets {
			if seen[tw.ID] {
				t.Fatalf("tweet %s returned twice", tw.ID)
			}
			seen[tw.ID] = true
		}
		if page.NextCursor == nil {
			break
		}
		cursor = *page.NextCursor
	}
	if len(seen) != 5 {
		t.Errorf("expected 5 distinct tweets, got %d", len(seen))
	}
}

func TestTimelineAuthorFilter(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	a, _ := store.EnsureUser(ctx, "agent_a")
	b, _ := store.EnsureUser(ctx, "agent_b")
	seedTweets(t, store, a, 3)
	seedTweets(t, store, b, 2)

	page, err := store.Timeline(ctx, "", models.TimelineInput{Where: models.TimelineWhere{AuthorName: "agent_b"}}, "")
	if err != nil {
		t.Fatalf("Timeline error: %v", err)
	}
	if len(page.Tweets) != 2 {
		t.Fatalf("expected 2 tweets, got %d", len(page.Tweets))
	}
	for _, tw := range page.Tweets {
		if tw.Author.Name != "agent_b" {
			t.Errorf("unexpected author %q", tw.Author.Name)
		}
	}
}

func TestTimelineInvalidCursor(t *testing.T) {
	store := testStore(t)
	_, err := store.Timeline(context.Background(), "", models.TimelineInput{}, "%%%")
	if !errors.Is(err, ErrInvalidCursor) {
		t.Errorf("expected ErrInvalidCursor, got %v", err)
	}
}

func TestLikesPerViewer(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	author, _ := store.EnsureUser(ctx, "author")
	viewer, _ := store.EnsureUser(ctx, "viewer")
	other, _ := store.EnsureUser(ctx, "other")
	tw := seedTweets(t, store, author, 1)[0]

	if err := store.Like(ctx, tw.ID, viewer.ID); err != nil {
		t.Fatalf("Like error: %v", err)
	}
	if err := store.Like(ctx, tw.ID, viewer.ID); err != nil {
		t.Fatalf("second Like error: %v", err)
	}
	if err := store.Like(ctx, tw.ID, other.ID); err != nil {
		t.Fatalf("Like error: %v", err)
	}

	got, err := store.GetTweet(ctx, tw.ID, viewer.ID)
	if err != nil {
		t.Fatalf("GetTweet error: %v", err)
	}
	if got.LikeCount != 2 {
		t.Errorf("LikeCount = %d, want 2", got.LikeCount)
	}
	if len(got.Likes) != 1 || got.Likes[0] != viewer.ID {
		t.Errorf("Likes = %v, want [%s]", got.Likes, viewer.ID)
	}

	anon, _ := store.GetTweet(ctx, tw.ID, "")
	if len(anon.Likes) != 0 {
		t.Errorf("anonymous viewer should see no likes, got %v", anon.Likes)
	}

	if err := store.Unlike(ctx, tw.ID, viewer.ID); err != nil {
		t.Fatalf("Unlike error: %v", err)
	}
	got, _ = store.GetTweet(ctx, tw.ID, viewer.ID)
	if got.LikeCount != 1 || got.HasLiked() {
		t.Errorf("after unlike: count=%d liked=%v", got.LikeCount, got.HasLiked())
	}
}

func TestLikeMissingTweet(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	u, _ := store.EnsureUser(ctx, "viewer")

	if err := store.Like(ctx, "missing", u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Like: expected ErrNotFound, got %v", err)
	}
	if err := store.Unlike(ctx, "missing", u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Unlike: expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetTweet(ctx, "missing", u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTweet: expected ErrNotFound, got %v", err)
	}
}

func TestCursorRoundtrip(t *testing.T) {
	at := time.Date(2024, 5, 6, 7, 8, 9, 123456789, time.UTC)
	c := EncodeCursor(at, "abc-123")

	gotAt, gotID, err := DecodeCursor(c)
	if err != nil {
		t.Fatalf("DecodeCursor error: %v", err)
	}
	if !gotAt.Equal(at) || gotID != "abc-123" {
		t.Errorf("got (%v, %q), want (%v, %q)", gotAt, gotID, at, "abc-123")
	}

	for _, bad := range []string{"", "!!", EncodeCursor(at, "")} {
		if _, _, err := DecodeCursor(bad); !errors.Is(err, ErrInvalidCursor) {
			t.Errorf("DecodeCursor(%q): expected ErrInvalidCursor, got %v", bad, err)
		}
	}
}

func TestLocalAPI(t *testing.T) {
	store := testStore(t)
	ids := NewIdentityStore(t.TempDir())
	api := NewLocalAPI(store, ids)
	ctx := context.Background()

	if _, err := api.CreateTweet(ctx, "signed out tweet text"); !errors.Is(err, auth.ErrNotSignedIn) {
		t.Errorf("expected ErrNotSignedIn, got %v", err)
	}
	if _, err := api.LikeTweet(ctx, "x"); !errors.Is(err, auth.ErrNotSignedIn) {
		t.Errorf("expected ErrNotSignedIn, got %v", err)
	}

	if err := ids.SetIdentity("turbo_gecko"); err != nil {
		t.Fatal(err)
	}

	tw, err := api.CreateTweet(ctx, "hello from the local api")
	if err != nil {
		t.Fatalf("CreateTweet error: %v", err)
	}
	if tw.Author.Name != "turbo_gecko" {
		t.Errorf("author = %q", tw.Author.Name)
	}

	res, err := api.LikeTweet(ctx, tw.ID)
	if err != nil {
		t.Fatalf("LikeTweet error: %v", err)
	}
	if res.TweetID != tw.ID || res.UserID != tw.Author.ID {
		t.Errorf("unexpected like result %+v", res)
	}

	page, err := api.FetchTimeline(ctx, models.TimelineInput{}, "")
	if err != nil {
		t.Fatalf("FetchTimeline error: %v", err)
	}
	if len(page.Tweets) != 1 || page.Tweets[0].LikeCount != 1 || !page.Tweets[0].HasLiked() {
		t.Errorf("unexpected page %+v", page)
	}

	if _, err := api.UnlikeTweet(ctx, tw.ID); err != nil {
		t.Fatalf("UnlikeTweet error: %v", err)
	}

	var ve *models.ValidationError
	if _, err := api.CreateTweet(ctx, "tiny"); !errors.As(err, &ve) {
		t.Errorf("expected validation error, got %v", err)
	}
}
