package history

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"flixd/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore keeps the history list in a SQLite table. Save replaces the
// whole table inside one transaction, matching the Store contract.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, err
	}
	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load() ([]models.HistoryEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, title, media_type, poster_path, backdrop_path, vote_average,
		       overview, season, episode, progress, duration, played_at
		FROM watch_history
		ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		var playedAt int64
		if err := rows.Scan(&e.ID, &e.Title, &e.MediaType, &e.PosterPath, &e.BackdropPath,
			&e.VoteAverage, &e.Overview, &e.Season, &e.Episode, &e.Progress, &e.Duration, &playedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.PlayedAt = time.UnixMilli(playedAt).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) Save(entries []models.HistoryEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM watch_history`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO watch_history
			(position, id, title, media_type, poster_path, backdrop_path, vote_average,
			 overview, season, episode, progress, duration, played_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare history insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.Exec(i, e.ID, e.Title, string(e.MediaType), e.PosterPath, e.BackdropPath,
			e.VoteAverage, e.Overview, e.Season, e.Episode, e.Progress, e.Duration,
			e.PlayedAt.UnixMilli()); err != nil {
			return fmt.Errorf("insert history row: %w", err)
		}
	}
	return tx.Commit()
}
