// ABOUTME: HTTP client for a remote chirp API server.
// ABOUTME: Implements the tweet API over JSON, retrying idempotent timeline reads.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"

	"github.com/2389-research/chirp/internal/auth"
	"github.com/2389-research/chirp/internal/models"
)

// Header names understood by the chirp API server.
const (
	HeaderAPIKey = "x-api-key"
	HeaderUser   = "x-user"
)

// Error codes carried in the server's JSON error envelope.
const (
	CodeInvalidText   = "invalid_text"
	CodeInvalidCursor = "invalid_cursor"
	CodeBadRequest    = "bad_request"
)

// RemoteClient talks to a chirp API server.
type RemoteClient struct {
	apiURL     string
	apiKey     string
	identities auth.IdentitySource
	client     *http.Client
	attempts   uint
	retryDelay time.Duration
}

// NewRemoteClient creates a remote client. Requests are made as the user
// returned by identities.
func NewRemoteClient(apiURL, apiKey string, identities auth.IdentitySource) *RemoteClient {
	apiURL = strings.TrimRight(apiURL, "/")
	return &RemoteClient{
		apiURL:     apiURL,
		apiKey:     apiKey,
		identities: identities,
		client:     &http.Client{Timeout: 30 * time.Second},
		attempts:   3,
		retryDelay: 200 * time.Millisecond,
	}
}

// remoteCreatePayload is the JSON body of POST /tweets.
type remoteCreatePayload struct {
	Text string `json:"text"`
}

// remoteErrorResponse is the JSON error envelope returned by the server.
type remoteErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// statusError is a non-2xx response.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("remote API returned %d: %s", e.Code, e.Body)
}

// transportError is a request that never got a response.
type transportError struct {
	err error
}

func (e *transportError) Error() string {
	return "remote API request failed: " + e.err.Error()
}

func (e *transportError) Unwrap() error {
	return e.err
}

func (r *RemoteClient) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.apiURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.apiKey != "" {
		req.Header.Set(HeaderAPIKey, r.apiKey)
	}
	if r.identities != nil {
		name, err := r.identities.GetIdentity()
		if err != nil {
			return nil, fmt.Errorf("failed to get identity: %w", err)
		}
		if name != "" {
			req.Header.Set(HeaderUser, name)
		}
	}
	return req, nil
}

// do sends req and decodes a JSON response into out when out is non-nil.
func (r *RemoteClient) do(req *http.Request, out any) error {
	resp, err := r.client.Do(req)
	if err != nil {
		return &transportError{err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return classifyStatus(resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// classifyStatus maps server error responses onto the errors local code checks for.
func classifyStatus(code int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var envelope remoteErrorResponse
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != "" {
		msg = envelope.Error
	}

	switch code {
	case http.StatusBadRequest:
		switch envelope.Code {
		case CodeInvalidText:
			return &models.ValidationError{Field: "text", Rule: "remote", Message: msg}
		case CodeInvalidCursor:
			return fmt.Errorf("%s: %w", msg, ErrInvalidCursor)
		}
	case http.StatusUnauthorized:
		return auth.ErrNotSignedIn
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	}
	return &statusError{Code: code, Body: msg}
}

// CreateTweet posts a tweet as the signed-in user.
func (r *RemoteClient) CreateTweet(ctx context.Context, text string) (*models.Tweet, error) {
	req, err := r.newRequest(ctx, http.MethodPost, "/tweets", remoteCreatePayload{Text: text})
	if err != nil {
		return nil, err
	}
	var tweet models.Tweet
	if err := r.do(req, &tweet); err != nil {
		return nil, err
	}
	return &tweet, nil
}

// LikeTweet likes a tweet as the signed-in user.
func (r *RemoteClient) LikeTweet(ctx context.Context, tweetID string) (models.LikeResult, error) {
	return r.likeRequest(ctx, http.MethodPost, tweetID)
}

// UnlikeTweet removes the signed-in user's like.
func (r *RemoteClient) UnlikeTweet(ctx context.Context, tweetID string) (models.LikeResult, error) {
	return r.likeRequest(ctx, http.MethodDelete, tweetID)
}

func (r *RemoteClient) likeRequest(ctx context.Context, method, tweetID string) (models.LikeResult, error) {
	req, err := r.newRequest(ctx, method, "/tweets/"+url.PathEscape(tweetID)+"/like", nil)
	if err != nil {
		return models.LikeResult{}, err
	}
	var res models.LikeResult
	if err := r.do(req, &res); err != nil {
		return models.LikeResult{}, err
	}
	return res, nil
}

func (r *RemoteClient) timelineRequest(ctx context.Context, input models.TimelineInput, cursor string) (*http.Request, error) {
	req, err := r.newRequest(ctx, http.MethodGet, "/timeline", nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	if input.Limit > 0 {
		q.Set("limit", strconv.Itoa(input.Limit))
	}
	if input.Where.AuthorName != "" {
		q.Set("author", input.Where.AuthorName)
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	req.URL.RawQuery = q.Encode()
	return req, nil
}

// FetchTimeline fetches one timeline page. Transport errors and 5xx responses
// are retried.
func (r *RemoteClient) FetchTimeline(ctx context.Context, input models.TimelineInput, cursor string) (models.TimelinePage, error) {
	var page models.TimelinePage
	err := retry.Do(
		func() error {
			req, err := r.timelineRequest(ctx, input, cursor)
			if err != nil {
				return err
			}
			page = models.TimelinePage{}
			return r.do(req, &page)
		},
		retry.Context(ctx),
		retry.Attempts(r.attempts),
		retry.Delay(r.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
	)
	if err != nil {
		return models.TimelinePage{}, err
	}
	if page.Tweets == nil {
		page.Tweets = []models.Tweet{}
	}
	return page, nil
}

// isRetryable reports whether a failed timeline read is worth repeating.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	var te *transportError
	return errors.As(err, &te)
}

// ValidateConnection checks that the server answers a one-tweet timeline read.
func (r *RemoteClient) ValidateConnection(ctx context.Context) error {
	req, err := r.timelineRequest(ctx, models.TimelineInput{Limit: 1}, "")
	if err != nil {
		return err
	}
	var page models.TimelinePage
	if err := r.do(req, &page); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	return nil
}
