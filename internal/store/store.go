// Package store persists run mapping tables to PostgreSQL. The mapping is
// the only way to reverse anonymization; batch runs write their final
// mapping here when the store is enabled, and serve mode reads the run
// history back out.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/scmtools/textveil/internal/engine"
)

// Store handles mapping persistence with PostgreSQL
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// Config contains database configuration
type Config struct {
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// Row is one persisted mapping entry.
type Row struct {
	ID          int64     `db:"id" json:"id"`
	RunID       string    `db:"run_id" json:"run_id"`
	Original    string    `db:"original" json:"original"`
	Pseudonym   string    `db:"pseudonym" json:"pseudonym"`
	Kind        string    `db:"kind" json:"kind"`
	Occurrences int       `db:"occurrences" json:"occurrences"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS mapping_entries (
	id          BIGSERIAL PRIMARY KEY,
	run_id      TEXT NOT NULL,
	original    TEXT NOT NULL,
	pseudonym   TEXT NOT NULL,
	kind        TEXT NOT NULL,
	occurrences INTEGER NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS mapping_entries_run_id_idx ON mapping_entries (run_id);
`

// NewStore creates a new mapping store instance
func NewStore(config *Config, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	store := &Store{
		db:     db,
		logger: logger,
	}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	logger.Info("Mapping store initialized",
		zap.String("database_url", maskDatabaseURL(config.DatabaseURL)),
		zap.Int("max_open_conns", config.MaxOpenConns),
		zap.Int("max_idle_conns", config.MaxIdleConns))

	return store, nil
}

// initialize checks the connection and ensures the schema exists
func (s *Store) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	return nil
}

// SaveRun persists every entry of a run's final mapping in one transaction.
func (s *Store) SaveRun(ctx context.Context, runID string, entries []*engine.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO mapping_entries (run_id, original, pseudonym, kind, occurrences)
		VALUES ($1, $2, $3, $4, $5)`
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, query, runID, e.Original, e.Pseudonym, string(e.Kind), e.Occurrences); err != nil {
			return fmt.Errorf("failed to insert entry %q: %w", e.Original, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", runID, err)
	}

	s.logger.Info("Run mapping persisted",
		zap.String("run_id", runID),
		zap.Int("entries", len(entries)))

	return nil
}

// RecentRuns returns the distinct run IDs most recently written, newest
// first, with their entry counts.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunInfo, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT run_id, COUNT(*) AS entries, MIN(created_at) AS created_at
		FROM mapping_entries
		GROUP BY run_id
		ORDER BY MIN(created_at) DESC
		LIMIT $1`

	var runs []RunInfo
	if err := s.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// RunEntries returns every persisted entry for one run.
func (s *Store) RunEntries(ctx context.Context, runID string) ([]Row, error) {
	query := `
		SELECT id, run_id, original, pseudonym, kind, occurrences, created_at
		FROM mapping_entries
		WHERE run_id = $1
		ORDER BY id`

	var rows []Row
	if err := s.db.SelectContext(ctx, &rows, query, runID); err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	return rows, nil
}

// RunInfo summarizes one persisted run.
type RunInfo struct {
	RunID     string    `db:"run_id" json:"run_id"`
	Entries   int       `db:"entries" json:"entries"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// maskDatabaseURL hides credentials in the URL for logging
func maskDatabaseURL(url string) string {
	if at := strings.LastIndex(url, "@"); at != -1 {
		if scheme := strings.Index(url, "://"); scheme != -1 {
			return url[:scheme+3] + "***" + url[at:]
		}
	}
	return url
}
