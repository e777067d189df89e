// ABOUTME: SQLite-backed tweet storage using modernc.org/sqlite.
// ABOUTME: Keeps users, tweets, and likes in one database file with keyset-paginated timelines.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/2389-research/chirp/internal/models"
)

// SQLiteStore stores tweets in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and creates if needed) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}
	// one connection serializes writers and avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL UNIQUE,
			image      TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tweets (
			id         TEXT PRIMARY KEY,
			author_id  TEXT NOT NULL REFERENCES users(id),
			text       TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_tweets_created ON tweets(created_at DESC, id DESC);
		CREATE INDEX IF NOT EXISTS idx_tweets_author ON tweets(author_id);

		CREATE TABLE IF NOT EXISTS likes (
			tweet_id   TEXT NOT NULL REFERENCES tweets(id),
			user_id    TEXT NOT NULL REFERENCES users(id),
			created_at INTEGER NOT NULL,
			PRIMARY KEY (tweet_id, user_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

// EnsureUser returns the named user, creating it on first use.
func (s *SQLiteStore) EnsureUser(ctx context.Context, name string) (*models.User, error) {
	if name == "" {
		return nil, fmt.Errorf("user name is required")
	}

	u := models.NewUser(name)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, image, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, u.ID, u.Name, u.Image, time.Now().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("creating user %s: %w", name, err)
	}

	var got models.User
	err = s.db.QueryRowContext(ctx, `SELECT id, name, image FROM users WHERE name = ?`, name).
		Scan(&got.ID, &got.Name, &got.Image)
	if err != nil {
		return nil, fmt.Errorf("loading user %s: %w", name, err)
	}
	return &got, nil
}

// CreateTweet persists a tweet.
func (s *SQLiteStore) CreateTweet(ctx context.Context, tweet *models.Tweet) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE id = ?`, tweet.Author.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking author: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("author %s: %w", tweet.Author.ID, ErrNotFound)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tweets (id, author_id, text, created_at) VALUES (?, ?, ?, ?)
	`, tweet.ID, tweet.Author.ID, tweet.Text, tweet.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("inserting tweet %s: %w", tweet.ID, err)
	}
	return nil
}

const tweetColumns = `
	t.id, t.text, t.created_at, u.id, u.name, u.image,
	(SELECT COUNT(*) FROM likes l WHERE l.tweet_id = t.id),
	EXISTS (SELECT 1 FROM likes l WHERE l.tweet_id = t.id AND l.user_id = ?)
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTweet(row rowScanner, viewerID string) (models.Tweet, error) {
	var (
		t       models.Tweet
		created int64
		liked   int
	)
	if err := row.Scan(&t.ID, &t.Text, &created, &t.Author.ID, &t.Author.Name, &t.Author.Image, &t.LikeCount, &liked); err != nil {
		return t, err
	}
	t.CreatedAt = time.Unix(0, created).UTC()
	t.Likes = []string{}
	if liked != 0 && viewerID != "" {
		t.Likes = []string{viewerID}
	}
	return t, nil
}

// GetTweet returns a single tweet as seen by viewerID.
func (s *SQLiteStore) GetTweet(ctx context.Context, tweetID, viewerID string) (*models.Tweet, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+tweetColumns+`
		FROM tweets t JOIN users u ON u.id = t.author_id
		WHERE t.id = ?
	`, viewerID, tweetID)

	t, err := scanTweet(row, viewerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tweet %s: %w", tweetID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading tweet %s: %w", tweetID, err)
	}
	return &t, nil
}

func (s *SQLiteStore) requireTweet(ctx context.Context, tweetID string) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tweets WHERE id = ?`, tweetID).Scan(&n); err != nil {
		return fmt.Errorf("checking tweet %s: %w", tweetID, err)
	}
	if n == 0 {
		return fmt.Errorf("tweet %s: %w", tweetID, ErrNotFound)
	}
	return nil
}

// Like records a like. Liking an already liked tweet changes nothing.
func (s *SQLiteStore) Like(ctx context.Context, tweetID, userID string) error {
	if err := s.requireTweet(ctx, tweetID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO likes (tweet_id, user_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT(tweet_id, user_id) DO NOTHING
	`, tweetID, userID, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("liking tweet %s: %w", tweetID, err)
	}
	return nil
}

// Unlike removes a like.
func (s *SQLiteStore) Unlike(ctx context.Context, tweetID, userID string) error {
	if err := s.requireTweet(ctx, tweetID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM likes WHERE tweet_id = ? AND user_id = ?`, tweetID, userID)
	if err != nil {
		return fmt.Errorf("unliking tweet %s: %w", tweetID, err)
	}
	return nil
}

// Timeline returns one page of tweets, newest first.
func (s *SQLiteStore) Timeline(ctx context.Context, viewerID string, input models.TimelineInput, cursor string) (models.TimelinePage, error) {
	limit := clampLimit(input.Limit)

	var (
		where []string
		args  = []any{viewerID}
	)

	if input.Where.AuthorName != "" {
		where = append(where, "u.name = ?")
		args = append(args, input.Where.AuthorName)
	}

	if cursor != "" {
		createdAt, id, err := DecodeCursor(cursor)
		if err != nil {
			return models.TimelinePage{}, err
		}
		n := createdAt.UnixNano()
		where = append(where, "(t.created_at < ? OR (t.created_at = ? AND t.id < ?))")
		args = append(args, n, n, id)
	}

	query := "SELECT " + tweetColumns + " FROM tweets t JOIN users u ON u.id = t.author_id"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY t.created_at DESC, t.id DESC LIMIT ?"
	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return models.TimelinePage{}, fmt.Errorf("querying timeline: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tweets := make([]models.Tweet, 0, limit+1)
	for rows.Next() {
		t, err := scanTweet(rows, viewerID)
		if err != nil {
			return models.TimelinePage{}, fmt.Errorf("scanning tweet: %w", err)
		}
		tweets = append(tweets, t)
	}
	if err := rows.Err(); err != nil {
		return models.TimelinePage{}, err
	}

	page := models.TimelinePage{Tweets: tweets}
	if len(tweets) > limit {
		page.Tweets = tweets[:limit]
		last := page.Tweets[limit-1]
		next := EncodeCursor(last.CreatedAt, last.ID)
		page.NextCursor = &next
	}
	return page, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
