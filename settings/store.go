// Package settings persists per-business session context so callers can
// refer to it by id instead of resending it with every query.
package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"trendscout/logging"
	"trendscout/types"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite
const DriverName = "sqlite"

const table = "business_settings"

// ErrNotFound is returned for an unknown settings id
var ErrNotFound = errors.New("settings not found")

// Record is one stored business profile
type Record struct {
	ID        string               `json:"id"`
	Session   types.SessionContext `json:"session_context"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// Store reads and writes business settings
type Store interface {
	Get(ctx context.Context, id string) (Record, error)
	Put(ctx context.Context, id string, session types.SessionContext) (Record, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Record, error)
}

// SQLiteStore keeps settings in a single SQLite table
type SQLiteStore struct {
	db     *sql.DB
	now    func() time.Time
	logger *zap.Logger
}

const schema = `CREATE TABLE IF NOT EXISTS business_settings (
	id                 TEXT PRIMARY KEY,
	language_hint      TEXT NOT NULL DEFAULT '',
	business_domain    TEXT NOT NULL DEFAULT '',
	competitor_domains TEXT NOT NULL DEFAULT '[]',
	target_geographies TEXT NOT NULL DEFAULT '[]',
	category           TEXT NOT NULL DEFAULT '',
	updated_at         TIMESTAMP NOT NULL
)`

// OpenSQLite opens (and if needed creates) the settings database at path
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite allows one writer; in-memory databases exist per connection
	db.SetMaxOpenConns(1)

	s, err := NewSQLiteStore(ctx, db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an open database and applies the schema
func NewSQLiteStore(ctx context.Context, db *sql.DB, logger *zap.Logger) (*SQLiteStore, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create settings table: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now, logger: logging.OrNop(logger).Named("settings")}, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error { return s.db.Close() }

var columns = []string{"id", "language_hint", "business_domain", "competitor_domains", "target_geographies", "category", "updated_at"}

// Get implements Store
func (s *SQLiteStore) Get(ctx context.Context, id string) (Record, error) {
	query, args, err := sq.Select(columns...).From(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return Record{}, fmt.Errorf("build query: %w", err)
	}
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

// Put implements Store. Existing settings for id are replaced.
func (s *SQLiteStore) Put(ctx context.Context, id string, session types.SessionContext) (Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Record{}, errors.New("settings id is required")
	}
	competitors, err := json.Marshal(nonNil(session.CompetitorDomains))
	if err != nil {
		return Record{}, fmt.Errorf("encode competitor domains: %w", err)
	}
	geographies, err := json.Marshal(nonNil(session.TargetGeographies))
	if err != nil {
		return Record{}, fmt.Errorf("encode target geographies: %w", err)
	}
	rec := Record{ID: id, Session: session, UpdatedAt: s.now().UTC()}

	query, args, err := sq.Insert(table).
		Columns(columns...).
		Values(id, session.LanguageHint, session.BusinessDomain, string(competitors), string(geographies), session.Category, rec.UpdatedAt).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			language_hint = excluded.language_hint,
			business_domain = excluded.business_domain,
			competitor_domains = excluded.competitor_domains,
			target_geographies = excluded.target_geographies,
			category = excluded.category,
			updated_at = excluded.updated_at`).
		ToSql()
	if err != nil {
		return Record{}, fmt.Errorf("build upsert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return Record{}, fmt.Errorf("save settings %s: %w", id, err)
	}
	s.logger.Debug("settings saved", zap.String("id", id))
	return rec, nil
}

// Delete implements Store
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	query, args, err := sq.Delete(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete settings %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// List implements Store, ordered by id
func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	query, args, err := sq.Select(columns...).From(table).OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec                      Record
		competitors, geographies string
	)
	err := row.Scan(&rec.ID, &rec.Session.LanguageHint, &rec.Session.BusinessDomain,
		&competitors, &geographies, &rec.Session.Category, &rec.UpdatedAt)
	if err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal([]byte(competitors), &rec.Session.CompetitorDomains); err != nil {
		return Record{}, fmt.Errorf("decode competitor domains for %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(geographies), &rec.Session.TargetGeographies); err != nil {
		return Record{}, fmt.Errorf("decode target geographies for %s: %w", rec.ID, err)
	}
	return rec, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
