// ABOUTME: Tests for the remote tweet API client using httptest servers.
// ABOUTME: Covers requests, headers, decoding, status mapping, and timeline retries.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/2389-research/chirp/internal/auth"
	"github.com/2389-research/chirp/internal/models"
)

type staticIdentity string

func (s staticIdentity) GetIdentity() (string, error) { return string(s), nil }

func testRemote(url string) *RemoteClient {
	c := NewRemoteClient(url+"/", "test-api-key", staticIdentity("turbo_gecko"))
	c.retryDelay = time.Millisecond
	return c
}

func TestRemoteClientCreateTweet(t *testing.T) {
	var (
		receivedBody        []byte
		receivedKey         string
		receivedUser        string
		receivedContentType string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tweets" {
			t.Errorf("expected path /tweets, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		receivedKey = r.Header.Get(HeaderAPIKey)
		receivedUser = r.Header.Get(HeaderUser)
		receivedContentType = r.Header.Get("Content-Type")
		receivedBody, _ = io.ReadAll(r.Body)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(models.Tweet{
			ID:     "00000000-0000-0000-0000-000000000001",
			Text:   "Hello remote timeline!",
			Author: models.User{ID: "u1", Name: "turbo_gecko"},
			Likes:  []string{},
		})
	}))
	defer server.Close()

	tweet, err := testRemote(server.URL).CreateTweet(context.Background(), "Hello remote timeline!")
	if err != nil {
		t.Fatalf("CreateTweet error: %v", err)
	}

	if receivedKey != "test-api-key" {
		t.Errorf("expected 'test-api-key', got %q", receivedKey)
	}
	if receivedUser != "turbo_gecko" {
		t.Errorf("expected user 'turbo_gecko', got %q", receivedUser)
	}
	if receivedContentType != "application/json" {
		t.Errorf("expected 'application/json', got %q", receivedContentType)
	}

	var payload remoteCreatePayload
	if err := json.Unmarshal(receivedBody, &payload); err != nil {
		t.Fatalf("failed to unmarshal request body: %v", err)
	}
	if payload.Text != "Hello remote timeline!" {
		t.Errorf("expected text 'Hello remote timeline!', got %q", payload.Text)
	}
	if tweet.Author.Name != "turbo_gecko" {
		t.Errorf("expected author 'turbo_gecko', got %q", tweet.Author.Name)
	}
}

func TestRemoteClientLikeUnlike(t *testing.T) {
	var methods []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tweets/t1/like" {
			t.Errorf("expected path /tweets/t1/like, got %s", r.URL.Path)
		}
		methods = append(methods, r.Method)
		_ = json.NewEncoder(w).Encode(models.LikeResult{TweetID: "t1", UserID: "u1"})
	}))
	defer server.Close()

	client := testRemote(server.URL)
	res, err := client.LikeTweet(context.Background(), "t1")
	if err != nil {
		t.Fatalf("LikeTweet error: %v", err)
	}
	if res.TweetID != "t1" || res.UserID != "u1" {
		t.Errorf("unexpected result %+v", res)
	}
	if _, err := client.UnlikeTweet(context.Background(), "t1"); err != nil {
		t.Fatalf("UnlikeTweet error: %v", err)
	}

	if len(methods) != 2 || methods[0] != http.MethodPost || methods[1] != http.MethodDelete {
		t.Errorf("unexpected methods %v", methods)
	}
}

func TestRemoteClientFetchTimeline(t *testing.T) {
	var receivedQuery map[string][]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/timeline" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		receivedQuery = r.URL.Query()

		next := "cursor-2"
		resp := models.TimelinePage{
			Tweets: []models.Tweet{
				{ID: "t1", Text: "Post 1", LikeCount: 3, Likes: []string{"u1"}, CreatedAt: time.Unix(1700000000, 0).UTC()},
				{ID: "t2", Text: "Post 2", Likes: []string{}, CreatedAt: time.Unix(1700000100, 0).UTC()},
			},
			NextCursor: &next,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	page, err := testRemote(server.URL).FetchTimeline(context.Background(), models.TimelineInput{
		Where: models.TimelineWhere{AuthorName: "agent1"},
		Limit: 5,
	}, "cursor-1")
	if err != nil {
		t.Fatalf("FetchTimeline error: %v", err)
	}

	if got := receivedQuery["limit"]; len(got) != 1 || got[0] != "5" {
		t.Errorf("limit param = %v", got)
	}
	if got := receivedQuery["author"]; len(got) != 1 || got[0] != "agent1" {
		t.Errorf("author param = %v", got)
	}
	if got := receivedQuery["cursor"]; len(got) != 1 || got[0] != "cursor-1" {
		t.Errorf("cursor param = %v", got)
	}

	if len(page.Tweets) != 2 {
		t.Fatalf("expected 2 tweets, got %d", len(page.Tweets))
	}
	if !page.Tweets[0].HasLiked() || page.Tweets[0].LikeCount != 3 {
		t.Errorf("unexpected first tweet %+v", page.Tweets[0])
	}
	if page.NextCursor == nil || *page.NextCursor != "cursor-2" {
		t.Errorf("unexpected next cursor %v", page.NextCursor)
	}
}

func TestRemoteClientTimelineRetries5xx(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(models.TimelinePage{})
	}))
	defer server.Close()

	page, err := testRemote(server.URL).FetchTimeline(context.Background(), models.TimelineInput{}, "")
	if err != nil {
		t.Fatalf("FetchTimeline error: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
	if page.Tweets == nil {
		t.Error("expected non-nil tweets slice")
	}
}

func TestRemoteClientTimelineGivesUp(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal error"))
	}))
	defer server.Close()

	_, err := testRemote(server.URL).FetchTimeline(context.Background(), models.TimelineInput{}, "")
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestRemoteClientTimelineNoRetryOn4xx(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid cursor"}`))
	}))
	defer server.Close()

	_, err := testRemote(server.URL).FetchTimeline(context.Background(), models.TimelineInput{}, "junk")
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 attempt, got %d", calls.Load())
	}
}

func TestRemoteClientStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"invalid text", http.StatusBadRequest, `{"error":"tweet must contain at least 10 characters","code":"invalid_text"}`, func(err error) bool {
			var ve *models.ValidationError
			return errors.As(err, &ve) && ve.Field == "text" && ve.Message == "tweet must contain at least 10 characters"
		}},
		{"invalid cursor", http.StatusBadRequest, `{"error":"invalid cursor","code":"invalid_cursor"}`, func(err error) bool {
			var ve *models.ValidationError
			return errors.Is(err, ErrInvalidCursor) && !errors.As(err, &ve)
		}},
		{"other bad request", http.StatusBadRequest, `{"error":"limit must be a non-negative integer","code":"bad_request"}`, func(err error) bool {
			var ve *models.ValidationError
			var se *statusError
			return !errors.As(err, &ve) && errors.As(err, &se) && se.Code == http.StatusBadRequest
		}},
		{"unauthorized", http.StatusUnauthorized, `{"error":"sign in"}`, func(err error) bool {
			return errors.Is(err, auth.ErrNotSignedIn)
		}},
		{"not found", http.StatusNotFound, `{"error":"tweet t9 not found"}`, func(err error) bool {
			return errors.Is(err, ErrNotFound)
		}},
		{"server error", http.StatusBadGateway, "upstream down", func(err error) bool {
			var se *statusError
			return errors.As(err, &se) && se.Code == http.StatusBadGateway
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := testRemote(server.URL).LikeTweet(context.Background(), "t9")
			if err == nil || !tt.check(err) {
				t.Errorf("unexpected error %v", err)
			}
		})
	}
}

func TestRemoteClientValidateConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "1" {
			t.Errorf("expected limit=1, got %q", r.URL.Query().Get("limit"))
		}
		_ = json.NewEncoder(w).Encode(models.TimelinePage{})
	}))
	defer server.Close()

	if err := testRemote(server.URL).ValidateConnection(context.Background()); err != nil {
		t.Errorf("ValidateConnection error: %v", err)
	}

	server.Close()
	if err := testRemote(server.URL).ValidateConnection(context.Background()); err == nil {
		t.Error("expected error for closed server")
	}
}
