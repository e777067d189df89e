// ABOUTME: Infinite timeline query over the tweet API backed by the client query cache.
// ABOUTME: Loads pages on demand, flattens them for display, and patches likes in place.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/2389-research/chirp/internal/auth"
	"github.com/2389-research/chirp/internal/models"
	"github.com/2389-research/chirp/internal/querycache"
)

// ErrUnknownTweet is returned when toggling a like on a tweet that isn't loaded.
var ErrUnknownTweet = errors.New("tweet is not in the loaded timeline")

// scrollThreshold is the scroll percentage past which the next page loads.
const scrollThreshold = 90

// Timeline is one subscription to an infinite timeline query.
type Timeline struct {
	api   API
	cache *querycache.Cache
	input models.TimelineInput
	key   querycache.Key
	auth  auth.Provider
	log   *zap.Logger

	group    singleflight.Group
	inflight atomic.Int32
	gen      atomic.Uint64
}

// TimelineOption configures optional Timeline dependencies.
type TimelineOption func(*Timeline)

// WithAuth gates like and unlike behind the given provider.
func WithAuth(p auth.Provider) TimelineOption {
	return func(t *Timeline) {
		t.auth = p
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) TimelineOption {
	return func(t *Timeline) {
		t.log = log
	}
}

// NewTimeline subscribes to the timeline for input. Nothing is fetched until
// FetchNextPage is called.
func NewTimeline(api API, cache *querycache.Cache, input models.TimelineInput, opts ...TimelineOption) *Timeline {
	input = input.WithDefaults()
	t := &Timeline{
		api:   api,
		cache: cache,
		input: input,
		key:   TimelineKey(input),
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Key returns the cache key of this timeline.
func (t *Timeline) Key() querycache.Key {
	return t.key
}

// Input returns the normalized query input.
func (t *Timeline) Input() models.TimelineInput {
	return t.input
}

func (t *Timeline) data() (InfiniteData, bool) {
	return querycache.GetQueryData[InfiniteData](t.cache, t.key)
}

// Loaded reports whether at least one page is cached.
func (t *Timeline) Loaded() bool {
	d, ok := t.data()
	return ok && len(d.Pages) > 0
}

// Pages returns the cached pages.
func (t *Timeline) Pages() []models.TimelinePage {
	d, _ := t.data()
	return d.Pages
}

// Tweets returns all loaded tweets in display order.
func (t *Timeline) Tweets() []models.Tweet {
	d, _ := t.data()
	return d.Tweets()
}

// HasNextPage reports whether the last loaded page has a next cursor.
func (t *Timeline) HasNextPage() bool {
	d, ok := t.data()
	return ok && d.NextCursor() != nil
}

// IsFetching reports whether a page request is in flight.
func (t *Timeline) IsFetching() bool {
	return t.inflight.Load() > 0
}

// ShouldFetchMore reports whether a scroll position warrants loading the next page.
func (t *Timeline) ShouldFetchMore(scrollPercent float64) bool {
	return scrollPercent > scrollThreshold && t.HasNextPage() && !t.IsFetching()
}

// FetchNextPage loads the first page, or the page after the last loaded one.
// Concurrent calls for the same cursor share one request. It is a no-op when
// there are no more pages.
func (t *Timeline) FetchNextPage(ctx context.Context) error {
	param, more := t.nextParam()
	if !more {
		return nil
	}
	gen := t.gen.Load()
	flight := fmt.Sprintf("%d:first", gen)
	if param != nil {
		flight = fmt.Sprintf("%d:next:%s", gen, *param)
	}
	_, err, _ := t.group.Do(flight, func() (any, error) {
		return nil, t.fetchPage(ctx, gen, param)
	})
	return err
}

// nextParam returns the cursor of the page to load next, nil for the first
// page. more is false when the last loaded page has no next cursor.
func (t *Timeline) nextParam() (param *string, more bool) {
	d, ok := t.data()
	if !ok || len(d.Pages) == 0 {
		return nil, true
	}
	next := d.NextCursor()
	return next, next != nil
}

func sameParam(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (t *Timeline) fetchPage(ctx context.Context, gen uint64, param *string) error {
	t.inflight.Add(1)
	defer t.inflight.Add(-1)

	// A caller that queued behind a finished flight finds the page already loaded.
	if current, more := t.nextParam(); !more || !sameParam(current, param) {
		return nil
	}

	cursor := ""
	if param != nil {
		cursor = *param
	}

	page, err := t.api.FetchTimeline(ctx, t.input, cursor)
	if err != nil {
		return fmt.Errorf("failed to fetch timeline: %w", err)
	}

	wrote := querycache.SetQueryData(t.cache, t.key, func(old InfiniteData, found bool) (InfiniteData, bool) {
		// The entry may have been invalidated or refetched while the request was out.
		if t.gen.Load() != gen {
			return old, false
		}
		if param == nil {
			if found && len(old.Pages) > 0 {
				return old, false
			}
			return InfiniteData{
				Pages:      []models.TimelinePage{page},
				PageParams: []*string{nil},
			}, true
		}
		if !found || !sameParam(old.NextCursor(), param) {
			return old, false
		}

		pages := make([]models.TimelinePage, len(old.Pages), len(old.Pages)+1)
		copy(pages, old.Pages)
		params := make([]*string, len(old.PageParams), len(old.PageParams)+1)
		copy(params, old.PageParams)

		return InfiniteData{
			Pages:      append(pages, page),
			PageParams: append(params, param),
		}, true
	})
	if !wrote {
		t.log.Debug("discarded stale timeline page", zap.String("cursor", cursor))
	}
	return nil
}

// Refetch drops the cached pages and loads the first page again. Pages still
// in flight from before the drop are discarded.
func (t *Timeline) Refetch(ctx context.Context) error {
	t.gen.Add(1)
	t.cache.Remove(t.key)
	return t.FetchNextPage(ctx)
}

// Close tears the query down and removes its cache entry.
func (t *Timeline) Close() {
	t.cache.Remove(t.key)
}

// Like likes tweetID and patches this timeline once the API confirms.
func (t *Timeline) Like(ctx context.Context, tweetID string) error {
	return t.act(ctx, tweetID, models.ActionLike)
}

// Unlike unlikes tweetID and patches this timeline once the API confirms.
func (t *Timeline) Unlike(ctx context.Context, tweetID string) error {
	return t.act(ctx, tweetID, models.ActionUnlike)
}

// ToggleLike unlikes a liked tweet and likes an unliked one. It returns the
// action that was performed.
func (t *Timeline) ToggleLike(ctx context.Context, tweetID string) (models.ActionKind, error) {
	for _, tweet := range t.Tweets() {
		if tweet.ID != tweetID {
			continue
		}
		kind := models.ActionLike
		if tweet.HasLiked() {
			kind = models.ActionUnlike
		}
		return kind, t.act(ctx, tweetID, kind)
	}
	return "", ErrUnknownTweet
}

func (t *Timeline) act(ctx context.Context, tweetID string, kind models.ActionKind) error {
	if err := auth.Require(t.auth); err != nil {
		return err
	}

	var (
		res models.LikeResult
		err error
	)
	if kind == models.ActionLike {
		res, err = t.api.LikeTweet(ctx, tweetID)
	} else {
		res, err = t.api.UnlikeTweet(ctx, tweetID)
	}
	if err != nil {
		return fmt.Errorf("failed to %s tweet: %w", kind, err)
	}

	if res.TweetID == "" {
		res.TweetID = tweetID
	}
	if !ApplyLikeAction(t.cache, t.key, res.Action(kind)) {
		t.log.Debug("like action matched no cached tweet",
			zap.String("tweet_id", res.TweetID),
			zap.String("action", string(kind)),
		)
	}
	return nil
}

// ScrollPercent converts a scroll offset into the percentage scrolled.
// Content that fits in the viewport counts as fully scrolled.
func ScrollPercent(offset, contentHeight, viewportHeight int) float64 {
	height := contentHeight - viewportHeight
	if height <= 0 {
		return 100
	}
	return float64(offset) / float64(height) * 100
}
