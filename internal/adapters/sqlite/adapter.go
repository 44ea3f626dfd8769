// Package sqlite provides a SQLite-backed implementation of the repository
// and lease ports.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously

	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
	"github.com/ewilliams-labs/moodmix/backend/internal/core/ports"
)

var (
	_ ports.PlaylistRepository = (*Adapter)(nil)
	_ ports.LeaseStore         = (*Adapter)(nil)
)

// Adapter implements the repository port for SQLite
type Adapter struct {
	db  *sql.DB
	now func() time.Time
}

// NewAdapter creates a connection and runs the schema migration
func NewAdapter(storagePath string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	// one connection: ":memory:" databases are per connection and writers
	// serialize anyway
	db.SetMaxOpenConns(1)

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	adapter := &Adapter{db: db, now: time.Now}

	// Auto-migrate on startup
	if err := adapter.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return adapter, nil
}

// Close ensures the DB connection is closed gracefully
func (a *Adapter) Close() error {
	return a.db.Close()
}

const playlistColumns = `id, owner_id, name, mood, remote_id, remote_url, snapshot_id, public,
	remote_count, created_at, last_synced`

func (a *Adapter) GetByID(ctx context.Context, id string) (domain.Playlist, error) {
	row := a.db.QueryRowContext(ctx, "SELECT "+playlistColumns+" FROM playlists WHERE id = ?", id)
	playlist, err := scanPlaylist(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Playlist{}, domain.ErrNotFound
		}
		return domain.Playlist{}, fmt.Errorf("failed to load playlist: %w", err)
	}

	tracks, err := a.loadTracks(ctx, playlist.ID)
	if err != nil {
		return domain.Playlist{}, err
	}
	playlist.Tracks = tracks
	return playlist, nil
}

// ListByOwner returns the owner's playlists created at or after since, newest first.
func (a *Adapter) ListByOwner(ctx context.Context, ownerID string, since time.Time) ([]domain.Playlist, error) {
	var sinceNanos int64
	if !since.IsZero() {
		sinceNanos = since.UnixNano()
	}
	return a.queryPlaylists(ctx, "SELECT "+playlistColumns+`
		FROM playlists
		WHERE owner_id = ? AND created_at >= ?
		ORDER BY created_at DESC, id ASC`, ownerID, sinceNanos)
}

// ListPage returns limit playlists starting at offset, newest first, plus the
// owner's total count.
func (a *Adapter) ListPage(ctx context.Context, ownerID string, limit, offset int) ([]domain.Playlist, int, error) {
	var total int
	if err := a.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM playlists WHERE owner_id = ?", ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count playlists: %w", err)
	}
	if total == 0 || offset >= total {
		return nil, total, nil
	}
	playlists, err := a.queryPlaylists(ctx, "SELECT "+playlistColumns+`
		FROM playlists
		WHERE owner_id = ?
		ORDER BY created_at DESC, id ASC
		LIMIT ? OFFSET ?`, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return playlists, total, nil
}

func (a *Adapter) queryPlaylists(ctx context.Context, query string, args ...any) ([]domain.Playlist, error) {
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}

	var playlists []domain.Playlist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate playlists: %w", err)
	}
	// release the single connection before the track queries
	rows.Close()

	for i := range playlists {
		tracks, err := a.loadTracks(ctx, playlists[i].ID)
		if err != nil {
			return nil, err
		}
		playlists[i].Tracks = tracks
	}
	return playlists, nil
}

// Delete removes a playlist and its track positions. Shared track rows stay.
func (a *Adapter) Delete(ctx context.Context, id string) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM playlist_tracks WHERE playlist_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete playlist tracks: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM playlists WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}

func (a *Adapter) Save(ctx context.Context, p domain.Playlist) error {
	// 1. Start Transaction
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // auto-rollback if we error before commit

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = a.now()
	}

	// 2. Upsert Playlist
	queryPlaylist := `
		INSERT INTO playlists (id, owner_id, name, mood, remote_id, remote_url, snapshot_id, public, remote_count, created_at, last_synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name,
			mood=excluded.mood,
			remote_id=excluded.remote_id,
			remote_url=excluded.remote_url,
			snapshot_id=excluded.snapshot_id,
			public=excluded.public,
			remote_count=excluded.remote_count,
			last_synced=excluded.last_synced;
	`
	if _, err := tx.ExecContext(ctx, queryPlaylist,
		p.ID, p.OwnerID, p.Name, p.Mood, p.RemoteID, p.RemoteURL, p.SnapshotID,
		p.Public, p.RemoteCount, createdAt.UnixNano(), nullableTime(p.LastSynced),
	); err != nil {
		return fmt.Errorf("failed to save playlist metadata: %w", err)
	}

	// 3. Reset Links: Remove old track associations for this playlist
	if _, err := tx.ExecContext(ctx, "DELETE FROM playlist_tracks WHERE playlist_id = ?", p.ID); err != nil {
		return fmt.Errorf("failed to clear old tracks: %w", err)
	}

	// 4. Upsert Tracks & Re-link
	stmtTrack, err := tx.PrepareContext(ctx, `
		INSERT INTO tracks (
			id, title, primary_artist, artists, album, duration_ms, isrc, explicit,
			popularity, uri, preview_url, external_url
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title,
			primary_artist=excluded.primary_artist,
			artists=excluded.artists,
			album=excluded.album,
			duration_ms=excluded.duration_ms,
			isrc=excluded.isrc,
			explicit=excluded.explicit,
			popularity=excluded.popularity,
			uri=excluded.uri,
			preview_url=excluded.preview_url,
			external_url=excluded.external_url;
	`)
	if err != nil {
		return err
	}
	defer stmtTrack.Close()

	stmtLink, err := tx.PrepareContext(ctx, `
		INSERT INTO playlist_tracks (playlist_id, track_id, position)
		VALUES (?, ?, ?)
		ON CONFLICT(playlist_id, track_id) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer stmtLink.Close()

	for i, t := range p.Tracks {
		artists, err := json.Marshal(t.Artists)
		if err != nil {
			return fmt.Errorf("failed to encode artists of %s: %w", t.ID, err)
		}
		album, err := json.Marshal(t.Album)
		if err != nil {
			return fmt.Errorf("failed to encode album of %s: %w", t.ID, err)
		}
		if _, err := stmtTrack.ExecContext(ctx,
			t.ID, t.Title, t.PrimaryArtist(), string(artists), string(album), t.DurationMs,
			t.ISRC, t.Explicit, t.Popularity, t.URI, t.PreviewURL, t.ExternalURL,
		); err != nil {
			return fmt.Errorf("failed to save track %s: %w", t.ID, err)
		}
		if _, err := stmtLink.ExecContext(ctx, p.ID, t.ID, i); err != nil {
			return fmt.Errorf("failed to link track %s: %w", t.ID, err)
		}
	}

	// 5. Commit Transaction
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}

	return nil
}

// MarkSynced stores the remote state captured by a background refresh.
func (a *Adapter) MarkSynced(ctx context.Context, id string, info domain.SyncInfo) error {
	syncedAt := info.SyncedAt
	if syncedAt.IsZero() {
		syncedAt = a.now()
	}
	res, err := a.db.ExecContext(ctx, `
		UPDATE playlists
		SET
			name = CASE WHEN ? = '' THEN name ELSE ? END,
			snapshot_id = ?,
			public = ?,
			remote_count = ?,
			remote_url = CASE WHEN ? = '' THEN remote_url ELSE ? END,
			last_synced = ?
		WHERE id = ?
	`, info.Name, info.Name, info.SnapshotID, info.Public, info.TrackCount, info.URL, info.URL, syncedAt.UnixNano(), id)
	if err != nil {
		return fmt.Errorf("failed to mark playlist synced: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark playlist synced: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (a *Adapter) loadTracks(ctx context.Context, playlistID string) ([]domain.Track, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT t.id, t.title, t.artists, t.album, t.duration_ms, t.isrc, t.explicit,
			t.popularity, t.uri, t.preview_url, t.external_url
		FROM tracks t
		JOIN playlist_tracks pt ON pt.track_id = t.id
		WHERE pt.playlist_id = ?
		ORDER BY pt.position ASC
	`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to load playlist tracks: %w", err)
	}
	defer rows.Close()

	tracks := []domain.Track{}
	for rows.Next() {
		var track domain.Track
		var artists, album string
		var isrc, uri, previewURL, externalURL sql.NullString
		if err := rows.Scan(
			&track.ID,
			&track.Title,
			&artists,
			&album,
			&track.DurationMs,
			&isrc,
			&track.Explicit,
			&track.Popularity,
			&uri,
			&previewURL,
			&externalURL,
		); err != nil {
			return nil, fmt.Errorf("failed to scan playlist track: %w", err)
		}
		if err := json.Unmarshal([]byte(artists), &track.Artists); err != nil {
			return nil, fmt.Errorf("failed to decode artists of %s: %w", track.ID, err)
		}
		if album != "" {
			if err := json.Unmarshal([]byte(album), &track.Album); err != nil {
				return nil, fmt.Errorf("failed to decode album of %s: %w", track.ID, err)
			}
		}
		track.ISRC = isrc.String
		track.URI = uri.String
		track.PreviewURL = previewURL.String
		track.ExternalURL = externalURL.String
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate playlist tracks: %w", err)
	}
	return tracks, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlaylist(s rowScanner) (domain.Playlist, error) {
	var p domain.Playlist
	var createdAt int64
	var lastSynced sql.NullInt64
	if err := s.Scan(
		&p.ID, &p.OwnerID, &p.Name, &p.Mood, &p.RemoteID, &p.RemoteURL, &p.SnapshotID,
		&p.Public, &p.RemoteCount, &createdAt, &lastSynced,
	); err != nil {
		return domain.Playlist{}, err
	}
	p.CreatedAt = time.Unix(0, createdAt).UTC()
	if lastSynced.Valid {
		p.LastSynced = time.Unix(0, lastSynced.Int64).UTC()
	}
	p.Tracks = []domain.Track{}
	return p, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UnixNano()
}

// Acquire takes the user's plan-then-build lease, replacing an expired one.
func (a *Adapter) Acquire(ctx context.Context, userID string, ttl time.Duration) (domain.Lease, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Lease{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := a.now()
	var acquired, expires int64
	err = tx.QueryRowContext(ctx, "SELECT acquired_at, expires_at FROM leases WHERE user_id = ?", userID).Scan(&acquired, &expires)
	switch {
	case err == nil && expires > now.UnixNano():
		return domain.Lease{}, &domain.LeaseHeldError{
			UserID:       userID,
			PendingSince: time.Unix(0, acquired).UTC(),
			RetryAfter:   time.Unix(0, expires).Sub(now),
		}
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return domain.Lease{}, fmt.Errorf("failed to read lease: %w", err)
	}

	lease := domain.Lease{
		UserID:     userID,
		Token:      uuid.NewString(),
		AcquiredAt: now.UTC(),
		ExpiresAt:  now.Add(ttl).UTC(),
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO leases (user_id, token, acquired_at, expires_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			token=excluded.token,
			acquired_at=excluded.acquired_at,
			expires_at=excluded.expires_at
	`, userID, lease.Token, lease.AcquiredAt.UnixNano(), lease.ExpiresAt.UnixNano()); err != nil {
		return domain.Lease{}, fmt.Errorf("failed to write lease: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Lease{}, fmt.Errorf("transaction commit failed: %w", err)
	}
	return lease, nil
}

// Release drops the user's lease when it still carries token, or
// unconditionally for an empty token. Releasing a free or replaced lease is
// not an error.
func (a *Adapter) Release(ctx context.Context, userID, token string) error {
	if _, err := a.db.ExecContext(ctx,
		"DELETE FROM leases WHERE user_id = ? AND (? = '' OR token = ?)", userID, token, token); err != nil {
		return fmt.Errorf("failed to release lease: %w", err)
	}
	return nil
}

func (a *Adapter) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS tracks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		primary_artist TEXT NOT NULL DEFAULT '',
		artists TEXT NOT NULL DEFAULT '[]',
		album TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		isrc TEXT,
		explicit INTEGER NOT NULL DEFAULT 0,
		popularity INTEGER NOT NULL DEFAULT 0,
		uri TEXT,
		preview_url TEXT,
		external_url TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS playlists (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		mood TEXT NOT NULL DEFAULT '',
		remote_id TEXT NOT NULL DEFAULT '',
		remote_url TEXT NOT NULL DEFAULT '',
		snapshot_id TEXT NOT NULL DEFAULT '',
		public INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_playlists_owner_created ON playlists(owner_id, created_at);

	CREATE TABLE IF NOT EXISTS playlist_tracks (
		playlist_id TEXT,
		track_id TEXT,
		position INTEGER NOT NULL DEFAULT 0,
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (playlist_id, track_id),
		FOREIGN KEY(playlist_id) REFERENCES playlists(id) ON DELETE CASCADE,
		FOREIGN KEY(track_id) REFERENCES tracks(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS leases (
		user_id TEXT PRIMARY KEY,
		token TEXT NOT NULL,
		acquired_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);
	`
	if _, err := a.db.Exec(query); err != nil {
		return err
	}

	// columns added after the first release
	for _, stmt := range []string{
		"ALTER TABLE playlists ADD COLUMN remote_count INTEGER NOT NULL DEFAULT 0",
		"ALTER TABLE playlists ADD COLUMN last_synced INTEGER",
	} {
		if _, err := a.db.Exec(stmt); err != nil && !isDuplicateColumnError(err) {
			return err
		}
	}

	return nil
}

func isDuplicateColumnError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "duplicate column") || strings.Contains(err.Error(), "already exists"))
}
