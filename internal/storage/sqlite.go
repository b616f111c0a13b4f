package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"study-translate/internal/models"
)

type SQLiteStorage struct {
	db *sql.DB
	sq sq.StatementBuilderType
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	storage := &SQLiteStorage{db: db, sq: sq.StatementBuilder}
	if err := storage.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS translations (
		cache_key TEXT PRIMARY KEY,
		translated_text TEXT NOT NULL,
		model_used TEXT NOT NULL,
		source_lang TEXT DEFAULT '',
		target_lang TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_translations_target ON translations(target_lang);
	CREATE INDEX IF NOT EXISTS idx_translations_model ON translations(model_used);
	`
	_, err := s.db.Exec(query)
	return err
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Get retrieves a translation by its cache key
func (s *SQLiteStorage) Get(ctx context.Context, key string) (*models.CacheEntry, error) {
	q := s.sq.Select(
		"cache_key",
		"translated_text",
		"model_used",
		"source_lang",
		"target_lang",
		"created_at",
	).
		From("translations").
		Where(sq.Eq{"cache_key": key}).
		Limit(1)
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	var e models.CacheEntry
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&e.Key,
		&e.TranslatedText,
		&e.ModelUsed,
		&e.SourceLang,
		&e.TargetLang,
		&e.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Put inserts a translation. Existing entries are never overwritten.
func (s *SQLiteStorage) Put(ctx context.Context, entry *models.CacheEntry) error {
	created := entry.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	q := s.sq.
		Insert("translations").
		Columns(
			"cache_key",
			"translated_text",
			"model_used",
			"source_lang",
			"target_lang",
			"created_at",
		).
		Values(
			entry.Key,
			entry.TranslatedText,
			entry.ModelUsed,
			entry.SourceLang,
			entry.TargetLang,
			created,
		).
		Suffix("ON CONFLICT(cache_key) DO NOTHING")
	query, args, err := q.ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

// Stats returns storage statistics
func (s *SQLiteStorage) Stats(ctx context.Context) (Stats, error) {
	st := Stats{Backend: "sqlite"}
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM translations").Scan(&st.Entries)
	if err != nil {
		return st, err
	}

	query, args, err := s.sq.Select("COUNT(*)").
		From("translations").
		Where(sq.Eq{"model_used": models.ModelNone}).
		ToSql()
	if err != nil {
		return st, err
	}
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&st.Degraded)
	return st, err
}

// RecentEntries returns the most recently stored translations
func (s *SQLiteStorage) RecentEntries(ctx context.Context, limit int) ([]*models.CacheEntry, error) {
	query, args, err := s.sq.Select(
		"cache_key",
		"translated_text",
		"model_used",
		"source_lang",
		"target_lang",
		"created_at",
	).
		From("translations").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.CacheEntry
	for rows.Next() {
		var e models.CacheEntry
		if err := rows.Scan(
			&e.Key,
			&e.TranslatedText,
			&e.ModelUsed,
			&e.SourceLang,
			&e.TargetLang,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}
