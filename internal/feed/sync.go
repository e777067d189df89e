// ABOUTME: Applies like/unlike results to cached, multi-page timeline queries in place.
// ABOUTME: Rewrites only the touched tweet and page so pagination state survives without a refetch.
package feed

import (
	"github.com/2389-research/chirp/internal/models"
	"github.com/2389-research/chirp/internal/querycache"
)

// Query identity of the timeline in the client cache.
const (
	TimelineQuery = "tweet.timeline"
	InfiniteKind  = "infinite"
)

// InfiniteData is the cached value of an infinite timeline query: the pages
// loaded so far and the cursor each page was fetched with.
type InfiniteData struct {
	Pages      []models.TimelinePage
	PageParams []*string
}

// NextCursor returns the cursor of the last loaded page, nil when there is none.
func (d InfiniteData) NextCursor() *string {
	if len(d.Pages) == 0 {
		return nil
	}
	return d.Pages[len(d.Pages)-1].NextCursor
}

// Tweets flattens all pages in load order.
func (d InfiniteData) Tweets() []models.Tweet {
	var n int
	for _, p := range d.Pages {
		n += len(p.Tweets)
	}
	out := make([]models.Tweet, 0, n)
	for _, p := range d.Pages {
		out = append(out, p.Tweets...)
	}
	return out
}

// TimelineKey returns the cache key for an infinite timeline with the given input.
func TimelineKey(input models.TimelineInput) querycache.Key {
	return querycache.Key{Name: TimelineQuery, Kind: InfiniteKind, Input: input.WithDefaults()}
}

// Cache is the part of the query cache the synchronizer needs.
type Cache interface {
	Set(key querycache.Key, fn querycache.Updater) bool
}

// ApplyLikeAction patches the timeline cached under key with action. Missing
// entries and missing tweets are left alone; it reports whether it wrote.
func ApplyLikeAction(c Cache, key querycache.Key, action models.LikeAction) bool {
	return c.Set(key, func(old any, found bool) (any, bool) {
		if !found {
			return nil, false
		}
		data, ok := old.(InfiniteData)
		if !ok {
			return nil, false
		}
		next, changed := PatchLikeAction(data, action)
		return next, changed
	})
}

// PatchLikeAction returns data with action applied to the first page holding
// the target tweet. Untouched pages keep their tweet slices.
func PatchLikeAction(data InfiniteData, action models.LikeAction) (InfiniteData, bool) {
	if action.Kind != models.ActionLike && action.Kind != models.ActionUnlike {
		return data, false
	}
	for i, page := range data.Pages {
		for j, tweet := range page.Tweets {
			if tweet.ID != action.TweetID {
				continue
			}

			tweets := make([]models.Tweet, len(page.Tweets))
			copy(tweets, page.Tweets)
			tweets[j] = applyAction(tweet, action)

			pages := make([]models.TimelinePage, len(data.Pages))
			copy(pages, data.Pages)
			pages[i] = models.TimelinePage{Tweets: tweets, NextCursor: page.NextCursor}

			return InfiniteData{Pages: pages, PageParams: data.PageParams}, true
		}
	}
	return data, false
}

func applyAction(t models.Tweet, action models.LikeAction) models.Tweet {
	switch action.Kind {
	case models.ActionLike:
		t.LikeCount++
		t.Likes = []string{action.UserID}
	case models.ActionUnlike:
		if t.LikeCount > 0 {
			t.LikeCount--
		}
		t.Likes = []string{}
	}
	return t
}
