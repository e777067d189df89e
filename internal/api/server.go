// ABOUTME: HTTP API server exposing tweets, likes, and the paginated timeline.
// ABOUTME: Routes with gorilla/mux and logs every request through httpsnoop metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/2389-research/chirp/internal/auth"
	"github.com/2389-research/chirp/internal/models"
	"github.com/2389-research/chirp/internal/storage"
)

// Server serves the chirp API from a TweetStore.
type Server struct {
	store  storage.TweetStore
	apiKey string
	log    *zap.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithAPIKey requires every request to carry the given x-api-key header.
func WithAPIKey(key string) Option {
	return func(s *Server) { s.apiKey = key }
}

// WithLogger sets the request logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Server) { s.log = log }
}

// NewServer creates an API server backed by store.
func NewServer(store storage.TweetStore, opts ...Option) *Server {
	s := &Server{store: store, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type createRequest struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests, s.checkAPIKey)

	r.Methods(http.MethodGet).Path("/healthz").HandlerFunc(s.health)
	r.Methods(http.MethodPost).Path("/tweets").HandlerFunc(s.createTweet)
	r.Methods(http.MethodPost).Path("/tweets/{id}/like").HandlerFunc(s.likeTweet)
	r.Methods(http.MethodDelete).Path("/tweets/{id}/like").HandlerFunc(s.unlikeTweet)
	r.Methods(http.MethodGet).Path("/timeline").HandlerFunc(s.timeline)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		s.log.Info("handled",
			zap.String("method", r.Method),
			zap.String("url", r.URL.String()),
			zap.Duration("duration", m.Duration),
			zap.Int("status", m.Code),
			zap.Int64("bytes", m.Written),
		)
	})
}

func (s *Server) checkAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.URL.Path != "/healthz" && r.Header.Get(storage.HeaderAPIKey) != s.apiKey {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid api key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// viewer resolves the x-user header. It returns nil for anonymous requests.
func (s *Server) viewer(r *http.Request) (*models.User, error) {
	name := r.Header.Get(storage.HeaderUser)
	if name == "" {
		return nil, nil
	}
	return s.store.EnsureUser(r.Context(), name)
}

func (s *Server) requireViewer(r *http.Request) (*models.User, error) {
	u, err := s.viewer(r)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, auth.ErrNotSignedIn
	}
	return u, nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createTweet(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body", Code: storage.CodeBadRequest})
		return
	}
	if err := models.ValidateTweetText(req.Text); err != nil {
		s.writeError(w, err)
		return
	}
	u, err := s.requireViewer(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	tweet := models.NewTweet(*u, req.Text)
	if err := s.store.CreateTweet(r.Context(), tweet); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tweet)
}

func (s *Server) likeTweet(w http.ResponseWriter, r *http.Request) {
	s.like(w, r, models.ActionLike)
}

func (s *Server) unlikeTweet(w http.ResponseWriter, r *http.Request) {
	s.like(w, r, models.ActionUnlike)
}

func (s *Server) like(w http.ResponseWriter, r *http.Request, kind models.ActionKind) {
	u, err := s.requireViewer(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	tweetID := mux.Vars(r)["id"]

	if kind == models.ActionLike {
		err = s.store.Like(r.Context(), tweetID, u.ID)
	} else {
		err = s.store.Unlike(r.Context(), tweetID, u.ID)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.LikeResult{TweetID: tweetID, UserID: u.ID})
}

func (s *Server) timeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := models.TimelineInput{Where: models.TimelineWhere{AuthorName: q.Get("author")}}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer", Code: storage.CodeBadRequest})
			return
		}
		input.Limit = limit
	}

	u, err := s.viewer(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	viewerID := ""
	if u != nil {
		viewerID = u.ID
	}

	page, err := s.store.Timeline(r.Context(), viewerID, input, q.Get("cursor"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// writeError maps domain errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Message, Code: storage.CodeInvalidText})
	case errors.Is(err, storage.ErrInvalidCursor):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Code: storage.CodeInvalidCursor})
	case errors.Is(err, auth.ErrNotSignedIn):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "sign in required: send the x-user header"})
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		s.log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
