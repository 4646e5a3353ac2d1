package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5"
	json "github.com/json-iterator/go"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/cursortrail/internal/pathlib"
)

// flexibleSQLMatcher creates a regex that is insensitive to whitespace for more robust SQL mock testing.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

var builtAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testLibrary() *pathlib.Library {
	lib := pathlib.New()
	lib.Insert(pathlib.Path{{DX: 3, DY: 4}})
	lib.Insert(pathlib.Path{{DX: 6}, {DX: 4}})
	return lib
}

// newTestStore returns a store on a mock pool whose error logs are observed.
func newTestStore(t *testing.T) (*Store, pgxmock.PgxPoolIface, *observer.ObservedLogs) {
	t.Helper()
	mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	core, logs := observer.New(zapcore.ErrorLevel)
	mockPool.ExpectPing()
	s, err := New(context.Background(), mockPool, zap.New(core))
	require.NoError(t, err)
	s.now = func() time.Time { return builtAt }
	return s, mockPool, logs
}

// entryRows renders lib the way SaveLibrary writes it.
func entryRows(t *testing.T, lib *pathlib.Library) *pgxmock.Rows {
	t.Helper()
	rows := pgxmock.NewRows([]string{"distance", "angle", "path"})
	for _, e := range lib.Entries() {
		path, err := json.Marshal(e.Path)
		require.NoError(t, err)
		rows.AddRow(e.Summary.Distance, e.Summary.Angle, path)
	}
	return rows
}

func TestNewStore(t *testing.T) {
	mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockPool.Close()

	pingErr := errors.New("database unavailable")
	mockPool.ExpectPing().WillReturnError(pingErr)

	_, err = New(context.Background(), mockPool, zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, pingErr)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	s, mockPool, _ := newTestStore(t)

	mockPool.ExpectExec(flexibleSQLMatcher(sqlCreateLibraries)).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mockPool.ExpectExec(flexibleSQLMatcher(sqlCreateEntries)).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestSaveLibrary(t *testing.T) {
	ctx := context.Background()

	t.Run("writes header and entries in one transaction", func(t *testing.T) {
		s, mockPool, logs := newTestStore(t)

		mockPool.ExpectBegin()
		mockPool.ExpectExec(flexibleSQLMatcher(sqlUpsertLibrary)).
			WithArgs("main", pathlib.FormatVersion, builtAt, 2).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectExec(flexibleSQLMatcher(sqlDeleteEntries)).
			WithArgs("main").
			WillReturnResult(pgxmock.NewResult("DELETE", 3))
		mockPool.ExpectCopyFrom(pgx.Identifier{"path_entries"}, entryColumns).
			WillReturnResult(2)
		mockPool.ExpectCommit()
		mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

		require.NoError(t, s.SaveLibrary(ctx, "main", testLibrary()))
		assert.NoError(t, mockPool.ExpectationsWereMet())
		assert.Zero(t, logs.Len(), "a closed transaction must not be reported as a rollback failure")
	})

	t.Run("empty library skips the copy", func(t *testing.T) {
		s, mockPool, _ := newTestStore(t)

		mockPool.ExpectBegin()
		mockPool.ExpectExec(flexibleSQLMatcher(sqlUpsertLibrary)).
			WithArgs("empty", pathlib.FormatVersion, builtAt, 0).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectExec(flexibleSQLMatcher(sqlDeleteEntries)).
			WithArgs("empty").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mockPool.ExpectCommit()
		mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

		require.NoError(t, s.SaveLibrary(ctx, "empty", pathlib.New()))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("copy failure rolls back", func(t *testing.T) {
		s, mockPool, _ := newTestStore(t)
		copyErr := errors.New("disk full")

		mockPool.ExpectBegin()
		mockPool.ExpectExec(flexibleSQLMatcher(sqlUpsertLibrary)).
			WithArgs("main", pathlib.FormatVersion, builtAt, 2).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectExec(flexibleSQLMatcher(sqlDeleteEntries)).
			WithArgs("main").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mockPool.ExpectCopyFrom(pgx.Identifier{"path_entries"}, entryColumns).
			WillReturnError(copyErr)
		mockPool.ExpectRollback()

		err := s.SaveLibrary(ctx, "main", testLibrary())
		require.Error(t, err)
		assert.ErrorIs(t, err, copyErr)
		assert.Contains(t, err.Error(), "failed to copy path entries")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("short copy is an error", func(t *testing.T) {
		s, mockPool, _ := newTestStore(t)

		mockPool.ExpectBegin()
		mockPool.ExpectExec(flexibleSQLMatcher(sqlUpsertLibrary)).
			WithArgs("main", pathlib.FormatVersion, builtAt, 2).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectExec(flexibleSQLMatcher(sqlDeleteEntries)).
			WithArgs("main").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mockPool.ExpectCopyFrom(pgx.Identifier{"path_entries"}, entryColumns).
			WillReturnResult(1)
		mockPool.ExpectRollback()

		err := s.SaveLibrary(ctx, "main", testLibrary())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mismatch in copied entries count")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestLoadLibrary(t *testing.T) {
	ctx := context.Background()

	t.Run("round trips entries", func(t *testing.T) {
		s, mockPool, _ := newTestStore(t)
		want := testLibrary()

		mockPool.ExpectQuery(flexibleSQLMatcher(sqlGetLibrary)).
			WithArgs("main").
			WillReturnRows(pgxmock.NewRows([]string{"version", "entry_count"}).AddRow(pathlib.FormatVersion, 2))
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlGetEntries)).
			WithArgs("main").
			WillReturnRows(entryRows(t, want))

		got, err := s.LoadLibrary(ctx, "main")
		require.NoError(t, err)
		if diff := cmp.Diff(want.Entries(), got.Entries()); diff != "" {
			t.Errorf("loaded library mismatch (-want +got):\n%s", diff)
		}
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("unknown name", func(t *testing.T) {
		s, mockPool, _ := newTestStore(t)

		mockPool.ExpectQuery(flexibleSQLMatcher(sqlGetLibrary)).
			WithArgs("ghost").
			WillReturnError(pgx.ErrNoRows)

		_, err := s.LoadLibrary(ctx, "ghost")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrLibraryNotFound)
	})

	t.Run("unsupported version", func(t *testing.T) {
		s, mockPool, _ := newTestStore(t)

		mockPool.ExpectQuery(flexibleSQLMatcher(sqlGetLibrary)).
			WithArgs("main").
			WillReturnRows(pgxmock.NewRows([]string{"version", "entry_count"}).AddRow(99, 2))

		_, err := s.LoadLibrary(ctx, "main")
		require.Error(t, err)
		assert.ErrorIs(t, err, pathlib.ErrInvalidLibrary)
		assert.Contains(t, err.Error(), "format version 99")
	})

	t.Run("missing entries", func(t *testing.T) {
		s, mockPool, _ := newTestStore(t)

		mockPool.ExpectQuery(flexibleSQLMatcher(sqlGetLibrary)).
			WithArgs("main").
			WillReturnRows(pgxmock.NewRows([]string{"version", "entry_count"}).AddRow(pathlib.FormatVersion, 3))
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlGetEntries)).
			WithArgs("main").
			WillReturnRows(entryRows(t, testLibrary()))

		_, err := s.LoadLibrary(ctx, "main")
		require.Error(t, err)
		assert.ErrorIs(t, err, pathlib.ErrInvalidLibrary)
		assert.Contains(t, err.Error(), "lists 3 entries but has 2")
	})

	t.Run("tampered summary", func(t *testing.T) {
		s, mockPool, _ := newTestStore(t)

		mockPool.ExpectQuery(flexibleSQLMatcher(sqlGetLibrary)).
			WithArgs("main").
			WillReturnRows(pgxmock.NewRows([]string{"version", "entry_count"}).AddRow(pathlib.FormatVersion, 1))
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlGetEntries)).
			WithArgs("main").
			WillReturnRows(pgxmock.NewRows([]string{"distance", "angle", "path"}).
				AddRow(7, 0.0, []byte(`[{"dx":3,"dy":4}]`)))

		_, err := s.LoadLibrary(ctx, "main")
		require.Error(t, err)
		assert.ErrorIs(t, err, pathlib.ErrInvalidLibrary)
	})

	t.Run("query failure", func(t *testing.T) {
		s, mockPool, _ := newTestStore(t)
		queryErr := errors.New("connection reset")

		mockPool.ExpectQuery(flexibleSQLMatcher(sqlGetLibrary)).
			WithArgs("main").
			WillReturnError(queryErr)

		_, err := s.LoadLibrary(ctx, "main")
		require.Error(t, err)
		assert.ErrorIs(t, err, queryErr)
		assert.NotErrorIs(t, err, ErrLibraryNotFound)
	})
}

func TestListLibraries(t *testing.T) {
	s, mockPool, _ := newTestStore(t)
	later := builtAt.Add(time.Hour)

	mockPool.ExpectQuery(flexibleSQLMatcher(sqlListLibraries)).
		WillReturnRows(pgxmock.NewRows([]string{"name", "version", "built_at", "entry_count"}).
			AddRow("desktop", 1, builtAt, 812).
			AddRow("laptop", 1, later, 455))

	got, err := s.ListLibraries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []LibraryInfo{
		{Name: "desktop", Version: 1, BuiltAt: builtAt, EntryCount: 812},
		{Name: "laptop", Version: 1, BuiltAt: later, EntryCount: 455},
	}, got)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
