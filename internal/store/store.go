// internal/store/store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cursortrail/internal/pathlib"
)

// ErrLibraryNotFound is returned when no library is stored under a name.
var ErrLibraryNotFound = errors.New("path library not found")

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// LibraryInfo describes a stored library without loading its paths.
type LibraryInfo struct {
	Name       string
	Version    int
	BuiltAt    time.Time
	EntryCount int
}

const (
	sqlCreateLibraries = `
        CREATE TABLE IF NOT EXISTS path_libraries (
            name        TEXT PRIMARY KEY,
            version     INTEGER NOT NULL,
            built_at    TIMESTAMPTZ NOT NULL,
            entry_count INTEGER NOT NULL
        );
    `
	sqlCreateEntries = `
        CREATE TABLE IF NOT EXISTS path_entries (
            library  TEXT NOT NULL REFERENCES path_libraries (name) ON DELETE CASCADE,
            distance INTEGER NOT NULL,
            angle    DOUBLE PRECISION NOT NULL,
            path     JSONB NOT NULL,
            PRIMARY KEY (library, distance)
        );
    `
	sqlUpsertLibrary = `
        INSERT INTO path_libraries (name, version, built_at, entry_count)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (name) DO UPDATE SET
            version = EXCLUDED.version,
            built_at = EXCLUDED.built_at,
            entry_count = EXCLUDED.entry_count;
    `
	sqlDeleteEntries = `DELETE FROM path_entries WHERE library = $1;`
	sqlGetLibrary    = `SELECT version, entry_count FROM path_libraries WHERE name = $1;`
	sqlGetEntries    = `
        SELECT distance, angle, path
        FROM path_entries
        WHERE library = $1
        ORDER BY distance ASC;
    `
	sqlListLibraries = `
        SELECT name, version, built_at, entry_count
        FROM path_libraries
        ORDER BY name ASC;
    `
)

var entryColumns = []string{"library", "distance", "angle", "path"}

// Store keeps built path libraries in PostgreSQL so several bot hosts can
// share one recording.
type Store struct {
	pool DBPool
	log  *zap.Logger
	now  func() time.Time
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
		now:  time.Now,
	}, nil
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{sqlCreateLibraries, sqlCreateEntries} {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// SaveLibrary replaces the library stored under name with lib in a single
// transaction. Readers never see a half written library.
func (s *Store) SaveLibrary(ctx context.Context, name string, lib *pathlib.Library) error {
	entries := lib.Entries()
	rows := make([][]any, len(entries))
	for i, e := range entries {
		path, err := json.Marshal(e.Path)
		if err != nil {
			return fmt.Errorf("failed to encode path at distance %d: %w", e.Summary.Distance, err)
		}
		rows[i] = []any{name, e.Summary.Distance, e.Summary.Angle, path}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	if _, err := tx.Exec(ctx, sqlUpsertLibrary, name, pathlib.FormatVersion, s.now().UTC(), len(entries)); err != nil {
		return fmt.Errorf("failed to upsert library %q: %w", name, err)
	}
	if _, err := tx.Exec(ctx, sqlDeleteEntries, name); err != nil {
		return fmt.Errorf("failed to clear entries of %q: %w", name, err)
	}

	if len(rows) > 0 {
		copyCount, err := tx.CopyFrom(ctx, pgx.Identifier{"path_entries"}, entryColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("failed to copy path entries: %w", err)
		}
		if int(copyCount) != len(rows) {
			return fmt.Errorf("mismatch in copied entries count: expected %d, got %d", len(rows), copyCount)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Info("Saved path library", zap.String("name", name), zap.Int("entries", len(entries)))
	return nil
}

// LoadLibrary reads the library stored under name and validates it.
func (s *Store) LoadLibrary(ctx context.Context, name string) (*pathlib.Library, error) {
	var version, count int
	err := s.pool.QueryRow(ctx, sqlGetLibrary, name).Scan(&version, &count)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrLibraryNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query library %q: %w", name, err)
	}
	if version != pathlib.FormatVersion {
		return nil, fmt.Errorf("%w: library %q has format version %d (want %d)", pathlib.ErrInvalidLibrary, name, version, pathlib.FormatVersion)
	}

	rows, err := s.pool.Query(ctx, sqlGetEntries, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries of %q: %w", name, err)
	}
	defer rows.Close()

	entries := make([]pathlib.Entry, 0, count)
	for rows.Next() {
		var e pathlib.Entry
		var path []byte
		if err := rows.Scan(&e.Summary.Distance, &e.Summary.Angle, &path); err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		if err := json.Unmarshal(path, &e.Path); err != nil {
			return nil, fmt.Errorf("failed to decode path at distance %d: %w", e.Summary.Distance, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	if len(entries) != count {
		return nil, fmt.Errorf("%w: library %q lists %d entries but has %d", pathlib.ErrInvalidLibrary, name, count, len(entries))
	}

	lib, err := pathlib.FromEntries(entries)
	if err != nil {
		return nil, fmt.Errorf("library %q: %w", name, err)
	}
	return lib, nil
}

// ListLibraries returns every stored library ordered by name.
func (s *Store) ListLibraries(ctx context.Context) ([]LibraryInfo, error) {
	rows, err := s.pool.Query(ctx, sqlListLibraries)
	if err != nil {
		return nil, fmt.Errorf("failed to query libraries: %w", err)
	}
	defer rows.Close()

	var out []LibraryInfo
	for rows.Next() {
		var info LibraryInfo
		if err := rows.Scan(&info.Name, &info.Version, &info.BuiltAt, &info.EntryCount); err != nil {
			return nil, fmt.Errorf("failed to scan library row: %w", err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return out, nil
}
