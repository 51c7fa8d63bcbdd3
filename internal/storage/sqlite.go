//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"embryonic/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func newSQLiteStore(path string) (Store, error) {
	return NewSQLiteStore(path), nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) Reset(ctx context.Context) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		DELETE FROM embryos;
		DELETE FROM stories;
		DELETE FROM feedback;
	`)
	return err
}

func (s *SQLiteStore) SaveEmbryo(ctx context.Context, e model.Embryo) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeEmbryo(e)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO embryos (name, generation, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name, generation) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, e.Name, e.Generation, e.SchemaVersion, e.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetEmbryo(ctx context.Context, name string, generation int) (model.Embryo, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.Embryo{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `
		SELECT payload FROM embryos WHERE name = ? AND generation = ?
	`, name, generation).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Embryo{}, false, nil
		}
		return model.Embryo{}, false, err
	}

	e, err := DecodeEmbryo(payload)
	if err != nil {
		return model.Embryo{}, false, fmt.Errorf("decode embryo %s generation %d: %w", name, generation, err)
	}
	return e, true, nil
}

func (s *SQLiteStore) LatestEmbryo(ctx context.Context, name string) (model.Embryo, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.Embryo{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `
		SELECT payload FROM embryos WHERE name = ? ORDER BY generation DESC LIMIT 1
	`, name).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Embryo{}, false, nil
		}
		return model.Embryo{}, false, err
	}

	e, err := DecodeEmbryo(payload)
	if err != nil {
		return model.Embryo{}, false, fmt.Errorf("decode embryo %s: %w", name, err)
	}
	return e, true, nil
}

func (s *SQLiteStore) ListEmbryoNames(ctx context.Context) ([]string, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT DISTINCT name FROM embryos ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLiteStore) Lineage(ctx context.Context, name string) ([]model.Embryo, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT payload FROM embryos WHERE name = ? ORDER BY generation ASC
	`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lineage []model.Embryo
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		e, err := DecodeEmbryo(payload)
		if err != nil {
			return nil, fmt.Errorf("decode lineage entry for %s: %w", name, err)
		}
		lineage = append(lineage, e)
	}
	return lineage, rows.Err()
}

func (s *SQLiteStore) SaveStory(ctx context.Context, story model.StoryRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeStory(story)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO stories (id, embryo_name, created_at_utc, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			embryo_name = excluded.embryo_name,
			created_at_utc = excluded.created_at_utc,
			payload = excluded.payload
	`, story.ID, story.EmbryoName, story.CreatedAtUTC, payload)
	return err
}

func (s *SQLiteStore) GetStory(ctx context.Context, id string) (model.StoryRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.StoryRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM stories WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.StoryRecord{}, false, nil
		}
		return model.StoryRecord{}, false, err
	}

	story, err := DecodeStory(payload)
	if err != nil {
		return model.StoryRecord{}, false, fmt.Errorf("decode story %s: %w", id, err)
	}
	return story, true, nil
}

func (s *SQLiteStore) LatestStory(ctx context.Context, name string) (model.StoryRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.StoryRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `
		SELECT payload FROM stories
		WHERE embryo_name = ?
		ORDER BY created_at_utc DESC, rowid DESC
		LIMIT 1
	`, name).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.StoryRecord{}, false, nil
		}
		return model.StoryRecord{}, false, err
	}

	story, err := DecodeStory(payload)
	if err != nil {
		return model.StoryRecord{}, false, fmt.Errorf("decode latest story for %s: %w", name, err)
	}
	return story, true, nil
}

func (s *SQLiteStore) ListStories(ctx context.Context, name string, limit int) ([]model.StoryRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	query := `SELECT payload FROM stories ORDER BY created_at_utc DESC, rowid DESC`
	args := []any{}
	if name != "" {
		query = `SELECT payload FROM stories WHERE embryo_name = ? ORDER BY created_at_utc DESC, rowid DESC`
		args = append(args, name)
	}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stories []model.StoryRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		story, err := DecodeStory(payload)
		if err != nil {
			return nil, fmt.Errorf("decode story list entry: %w", err)
		}
		stories = append(stories, story)
	}
	return stories, rows.Err()
}

func (s *SQLiteStore) SaveFeedback(ctx context.Context, f model.FeedbackRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeFeedback(f)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO feedback (id, embryo_name, created_at_utc, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			embryo_name = excluded.embryo_name,
			created_at_utc = excluded.created_at_utc,
			payload = excluded.payload
	`, f.ID, f.EmbryoName, f.CreatedAtUTC, payload)
	return err
}

func (s *SQLiteStore) ListFeedback(ctx context.Context, name string, limit int) ([]model.FeedbackRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT payload FROM feedback
		WHERE embryo_name = ?
		ORDER BY created_at_utc DESC, rowid DESC
	`
	args := []any{name}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.FeedbackRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		f, err := DecodeFeedback(payload)
		if err != nil {
			return nil, fmt.Errorf("decode feedback entry: %w", err)
		}
		records = append(records, f)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS embryos (
			name TEXT NOT NULL,
			generation INTEGER NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (name, generation)
		);
		CREATE TABLE IF NOT EXISTS stories (
			id TEXT PRIMARY KEY,
			embryo_name TEXT NOT NULL,
			created_at_utc TEXT NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS feedback (
			id TEXT PRIMARY KEY,
			embryo_name TEXT NOT NULL,
			created_at_utc TEXT NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_stories_embryo ON stories(embryo_name, created_at_utc);
		CREATE INDEX IF NOT EXISTS idx_feedback_embryo ON feedback(embryo_name, created_at_utc);
	`)
	return err
}
