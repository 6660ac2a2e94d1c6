// Package store persists the bot's polling state (app access tokens and the
// streams that have already been announced) in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"livebot/internal/config"
	"livebot/migrations"

	_ "modernc.org/sqlite"
)

type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// LiveStream is a stream that has been announced and is still live.
type LiveStream struct {
	Key         string
	StreamID    string
	Title       string
	URL         string
	AnnouncedAt time.Time
}

type tokenRow struct {
	Platform    string `db:"platform"`
	AccessToken string `db:"access_token"`
	ExpiresAt   int64  `db:"expires_at"`
}

type liveRow struct {
	Platform    string `db:"platform"`
	StreamKey   string `db:"stream_key"`
	StreamID    string `db:"stream_id"`
	Title       string `db:"title"`
	URL         string `db:"url"`
	AnnouncedAt int64  `db:"announced_at"`
}

type Store struct {
	db *sqlx.DB
}

// Open connects to the SQLite database at path and applies pending migrations.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyMigrations(db.DB); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			config.Logger.Errorw("Error closing database after migration failure", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	config.Logger.Infow("Database ready", "path", path)
	return &Store{db: db}, nil
}

func applyMigrations(db *sql.DB) error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// GetToken returns the stored token for platform. The bool is false when no
// token has been saved yet.
func (s *Store) GetToken(ctx context.Context, platform string) (Token, bool, error) {
	var row tokenRow
	err := s.db.GetContext(ctx, &row, "SELECT platform, access_token, expires_at FROM app_tokens WHERE platform = ?", platform)
	if errors.Is(err, sql.ErrNoRows) {
		return Token{}, false, nil
	}
	if err != nil {
		return Token{}, false, fmt.Errorf("failed to get %s token: %w", platform, err)
	}

	return Token{AccessToken: row.AccessToken, ExpiresAt: time.Unix(row.ExpiresAt, 0).UTC()}, true, nil
}

func (s *Store) SaveToken(ctx context.Context, platform string, token Token) error {
	row := tokenRow{Platform: platform, AccessToken: token.AccessToken, ExpiresAt: token.ExpiresAt.Unix()}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO app_tokens (platform, access_token, expires_at)
		VALUES (:platform, :access_token, :expires_at)
		ON CONFLICT (platform) DO UPDATE SET access_token = excluded.access_token, expires_at = excluded.expires_at`, &row)
	if err != nil {
		return fmt.Errorf("failed to save %s token: %w", platform, err)
	}
	return nil
}

func (s *Store) DeleteToken(ctx context.Context, platform string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM app_tokens WHERE platform = ?", platform); err != nil {
		return fmt.Errorf("failed to delete %s token: %w", platform, err)
	}
	return nil
}

func (s *Store) LiveKeys(ctx context.Context, platform string) ([]string, error) {
	var keys []string
	if err := s.db.SelectContext(ctx, &keys, "SELECT stream_key FROM live_streams WHERE platform = ?", platform); err != nil {
		return nil, fmt.Errorf("failed to list %s live keys: %w", platform, err)
	}
	return keys, nil
}

func (s *Store) ListLive(ctx context.Context, platform string) ([]LiveStream, error) {
	var rows []liveRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT platform, stream_key, stream_id, title, url, announced_at
		FROM live_streams WHERE platform = ? ORDER BY announced_at, stream_key`, platform)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s live streams: %w", platform, err)
	}

	streams := make([]LiveStream, 0, len(rows))
	for _, r := range rows {
		streams = append(streams, LiveStream{
			Key:         r.StreamKey,
			StreamID:    r.StreamID,
			Title:       r.Title,
			URL:         r.URL,
			AnnouncedAt: time.Unix(r.AnnouncedAt, 0).UTC(),
		})
	}
	return streams, nil
}

func (s *Store) AddLive(ctx context.Context, platform string, stream LiveStream) error {
	row := liveRow{
		Platform:    platform,
		StreamKey:   stream.Key,
		StreamID:    stream.StreamID,
		Title:       stream.Title,
		URL:         stream.URL,
		AnnouncedAt: stream.AnnouncedAt.Unix(),
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO live_streams (platform, stream_key, stream_id, title, url, announced_at)
		VALUES (:platform, :stream_key, :stream_id, :title, :url, :announced_at)`, &row)
	if err != nil {
		return fmt.Errorf("failed to add %s live stream %s: %w", platform, stream.Key, err)
	}
	return nil
}

func (s *Store) RemoveLive(ctx context.Context, platform string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	query, args, err := sqlx.In("DELETE FROM live_streams WHERE platform = ? AND stream_key IN (?)", platform, keys)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to remove %s live streams: %w", platform, err)
	}
	return nil
}
