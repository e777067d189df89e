// ABOUTME: Core data models for users, tweets, timeline pages, and like actions.
// ABOUTME: Provides constructor functions and type definitions shared by storage and the feed client.
package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTimelineLimit is the page size used when a timeline query doesn't set one.
const DefaultTimelineLimit = 10

// User is a tweet author or liker.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// NewUser creates a user with a generated UUID.
func NewUser(name string) *User {
	return &User{
		ID:   uuid.NewString(),
		Name: name,
	}
}

// Tweet is a tweet summary as seen by a single viewer.
type Tweet struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	Author    User      `json:"author"`
	LikeCount int       `json:"likeCount"`
	Likes     []string  `json:"likes"` // liker IDs, filtered to the viewer (0 or 1 entries)
}

// NewTweet creates a tweet with generated UUID and timestamp.
func NewTweet(author User, text string) *Tweet {
	return &Tweet{
		ID:        uuid.NewString(),
		Text:      text,
		CreatedAt: time.Now().UTC(),
		Author:    author,
		Likes:     []string{},
	}
}

// HasLiked reports whether the viewer has liked the tweet.
func (t Tweet) HasLiked() bool {
	return len(t.Likes) > 0
}

// TimelineWhere filters a timeline query.
type TimelineWhere struct {
	AuthorName string `json:"authorName,omitempty"`
}

// TimelineInput is the input of a timeline query. Two inputs that are
// structurally equal identify the same cached timeline.
type TimelineInput struct {
	Where TimelineWhere `json:"where"`
	Limit int           `json:"limit"`
}

// WithDefaults returns the input with a zero limit replaced by DefaultTimelineLimit.
func (in TimelineInput) WithDefaults() TimelineInput {
	if in.Limit <= 0 {
		in.Limit = DefaultTimelineLimit
	}
	return in
}

// TimelinePage is one fetched page of a timeline.
type TimelinePage struct {
	Tweets     []Tweet `json:"tweets"`
	NextCursor *string `json:"nextCursor,omitempty"`
}

// LikeResult is what the API returns for a like or unlike call.
type LikeResult struct {
	TweetID string `json:"tweetId"`
	UserID  string `json:"userId"`
}

// ActionKind is the kind of like action.
type ActionKind string

const (
	ActionLike   ActionKind = "like"
	ActionUnlike ActionKind = "unlike"
)

// LikeAction is a completed like or unlike, ready to be applied to cached timelines.
type LikeAction struct {
	TweetID string
	UserID  string
	Kind    ActionKind
}

// Action turns an API result into a LikeAction of the given kind.
func (r LikeResult) Action(kind ActionKind) LikeAction {
	return LikeAction{TweetID: r.TweetID, UserID: r.UserID, Kind: kind}
}
