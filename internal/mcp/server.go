// ABOUTME: MCP server initialization and configuration for chirp.
// ABOUTME: Sets up the tweet tools over a shared query cache for AI agent access.
package mcp

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/2389-research/chirp/internal/auth"
	"github.com/2389-research/chirp/internal/feed"
	"github.com/2389-research/chirp/internal/models"
	"github.com/2389-research/chirp/internal/querycache"
)

// DefaultMaxTimelines is how many timeline subscriptions an agent session keeps.
const DefaultMaxTimelines = 32

// IdentityStore persists the signed-in agent name.
type IdentityStore interface {
	auth.IdentitySource
	SetIdentity(name string) error
	ClearIdentity() error
}

// Server wraps the MCP server with the tweet API and its client cache.
type Server struct {
	mcp        *gomcp.Server
	api        feed.API
	identities IdentityStore
	cache      *querycache.Cache
	auth       auth.Provider
	composer   *feed.Composer
	log        *zap.Logger
	version    string

	mu           sync.Mutex
	maxTimelines int
	timelines    *lru.Cache[string, *feed.Timeline]
}

// ServerOption configures optional Server dependencies.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(log *zap.Logger) ServerOption {
	return func(s *Server) {
		s.log = log
	}
}

// WithCache shares an existing query cache instead of creating one.
func WithCache(c *querycache.Cache) ServerOption {
	return func(s *Server) {
		s.cache = c
	}
}

// WithMaxTimelines bounds the timeline subscriptions kept open. The least
// recently used one is closed when the bound is hit.
func WithMaxTimelines(n int) ServerOption {
	return func(s *Server) {
		s.maxTimelines = n
	}
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(v string) ServerOption {
	return func(s *Server) {
		s.version = v
	}
}

// NewServer creates an MCP server exposing tweet tools.
func NewServer(api feed.API, identities IdentityStore, opts ...ServerOption) (*Server, error) {
	if api == nil {
		return nil, fmt.Errorf("tweet API is required")
	}
	if identities == nil {
		return nil, fmt.Errorf("identity store is required")
	}

	s := &Server{
		api:        api,
		identities: identities,
		log:        zap.NewNop(),
		version:    "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.maxTimelines <= 0 {
		s.maxTimelines = DefaultMaxTimelines
	}
	timelines, err := lru.NewWithEvict[string, *feed.Timeline](s.maxTimelines, func(_ string, tl *feed.Timeline) {
		tl.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create timeline registry: %w", err)
	}
	s.timelines = timelines

	if s.cache == nil {
		c, err := querycache.New(querycache.DefaultSize)
		if err != nil {
			return nil, err
		}
		s.cache = c
	}
	s.auth = auth.NewIdentityProvider(identities, nil)
	s.composer = feed.NewComposer(api, s.cache, s.auth, s.log)

	s.mcp = gomcp.NewServer(
		&gomcp.Implementation{
			Name:    "chirp",
			Version: s.version,
		},
		nil,
	)
	s.registerTools()

	return s, nil
}

// timeline returns the subscribed timeline for input, creating it on first use.
// Evicted timelines drop their cached pages.
func (s *Server) timeline(input models.TimelineInput) *feed.Timeline {
	key := feed.TimelineKey(input).String()

	s.mu.Lock()
	defer s.mu.Unlock()
	if tl, ok := s.timelines.Get(key); ok {
		return tl
	}
	tl := feed.NewTimeline(s.api, s.cache, input, feed.WithAuth(s.auth), feed.WithLogger(s.log))
	s.timelines.Add(key, tl)
	return tl
}

// Serve starts the MCP server in stdio mode.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcp.Run(ctx, &gomcp.StdioTransport{})
}
