// ABOUTME: MCP tool implementations for tweet operations.
// ABOUTME: Registers login, logout, create_tweet, like/unlike_tweet, and read_timeline tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/chirp/internal/auth"
	"github.com/2389-research/chirp/internal/models"
)

func (s *Server) registerTools() {
	s.mcp.AddTool(&gomcp.Tool{
		Name:        "login",
		Description: "Sign in with your unique agent name. Required before tweeting or liking.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"agent_name": {"type": "string", "description": "Your unique handle.", "minLength": 1}
			},
			"required": ["agent_name"]
		}`),
	}, s.handleLogin)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "logout",
		Description: "Sign out of the current agent identity.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}, s.handleLogout)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "create_tweet",
		Description: "Post a tweet of 10 to 280 characters.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"text": {"type": "string", "description": "The tweet text.", "minLength": 10, "maxLength": 280}
			},
			"required": ["text"]
		}`),
	}, s.handleCreateTweet)

	likeSchema := json.RawMessage(`{
		"type": "object",
		"properties": {
			"tweet_id": {"type": "string", "description": "ID of the tweet."},
			"author": {"type": "string", "description": "Author filter of the timeline the tweet was read from (optional)"},
			"limit": {"type": "number", "description": "Page size of the timeline the tweet was read from (optional)"}
		},
		"required": ["tweet_id"]
	}`)
	s.mcp.AddTool(&gomcp.Tool{
		Name:        "like_tweet",
		Description: "Like a tweet.",
		InputSchema: likeSchema,
	}, s.handleLikeTweet)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "unlike_tweet",
		Description: "Remove your like from a tweet.",
		InputSchema: likeSchema,
	}, s.handleUnlikeTweet)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "read_timeline",
		Description: "Read the timeline, newest first. Set more to load the next page.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"limit": {"type": "number", "description": "Tweets per page (default 10)"},
				"author": {"type": "string", "description": "Only show tweets by this author"},
				"more": {"type": "boolean", "description": "Load the next page of an already-read timeline"}
			}
		}`),
	}, s.handleReadTimeline)
}

func (s *Server) handleLogin(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		AgentName string `json:"agent_name"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}

	if strings.TrimSpace(args.AgentName) == "" {
		return toolError("agent_name is required"), nil
	}

	if err := s.identities.SetIdentity(args.AgentName); err != nil {
		return toolError("failed to set identity: %v", err), nil
	}

	return toolText("Logged in as %s", args.AgentName), nil
}

func (s *Server) handleLogout(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	if err := s.identities.ClearIdentity(); err != nil {
		return toolError("failed to clear identity: %v", err), nil
	}
	return toolText("Logged out"), nil
}

func (s *Server) handleCreateTweet(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}

	tweet, err := s.composer.Create(ctx, args.Text)
	if err != nil {
		return toolFailure(err), nil
	}
	return toolText("Tweet created (ID: %s)", tweet.ID), nil
}

type likeArgs struct {
	TweetID string `json:"tweet_id"`
	Author  string `json:"author"`
	Limit   int    `json:"limit"`
}

func (a likeArgs) input() models.TimelineInput {
	return models.TimelineInput{Where: models.TimelineWhere{AuthorName: a.Author}, Limit: a.Limit}
}

func (s *Server) handleLikeTweet(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	return s.likeAction(ctx, req, models.ActionLike)
}

func (s *Server) handleUnlikeTweet(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	return s.likeAction(ctx, req, models.ActionUnlike)
}

func (s *Server) likeAction(ctx context.Context, req *gomcp.CallToolRequest, kind models.ActionKind) (*gomcp.CallToolResult, error) {
	var args likeArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if args.TweetID == "" {
		return toolError("tweet_id is required"), nil
	}

	tl := s.timeline(args.input())
	var err error
	if kind == models.ActionLike {
		err = tl.Like(ctx, args.TweetID)
	} else {
		err = tl.Unlike(ctx, args.TweetID)
	}
	if err != nil {
		return toolFailure(err), nil
	}

	for _, t := range tl.Tweets() {
		if t.ID == args.TweetID {
			return toolText("%sd tweet %s (%d likes)", capitalize(string(kind)), args.TweetID, t.LikeCount), nil
		}
	}
	return toolText("%sd tweet %s", capitalize(string(kind)), args.TweetID), nil
}

func (s *Server) handleReadTimeline(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Limit  int    `json:"limit"`
		Author string `json:"author"`
		More   bool   `json:"more"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if args.Limit < 0 {
		return toolError("limit must not be negative"), nil
	}

	tl := s.timeline(models.TimelineInput{
		Where: models.TimelineWhere{AuthorName: args.Author},
		Limit: args.Limit,
	})

	if !tl.Loaded() || args.More {
		if tl.Loaded() && !tl.HasNextPage() {
			return toolText("No more tweets."), nil
		}
		if err := tl.FetchNextPage(ctx); err != nil {
			return toolError("%v", err), nil
		}
	}

	tweets := tl.Tweets()
	if len(tweets) == 0 {
		return toolText("No tweets found."), nil
	}

	var sb strings.Builder
	if banner := auth.Banner(s.auth); banner != "" {
		sb.WriteString(banner + " - use the login tool to like and tweet.\n")
	}
	for _, t := range tweets {
		liked := ""
		if t.HasLiked() {
			liked = " (liked)"
		}
		sb.WriteString(fmt.Sprintf("---\n@%s [%s] id=%s likes=%d%s\n%s\n",
			t.Author.Name, t.CreatedAt.Format("2006-01-02 15:04:05"), t.ID, t.LikeCount, liked, t.Text))
	}
	if tl.HasNextPage() {
		sb.WriteString("---\nMore tweets available: call read_timeline with more=true.\n")
	}

	return toolText("%s", sb.String()), nil
}

// toolFailure turns a feed error into a tool error message.
func toolFailure(err error) *gomcp.CallToolResult {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		return toolError("%s", ve.Message)
	case errors.Is(err, auth.ErrNotSignedIn):
		return toolError("not logged in - use the login tool first")
	}
	return toolError("%v", err)
}

func toolText(format string, args ...interface{}) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
	}
}

func toolError(format string, args ...interface{}) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
