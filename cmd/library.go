package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cursortrail/internal/config"
	"github.com/xkilldash9x/cursortrail/internal/pathlib"
	"github.com/xkilldash9x/cursortrail/internal/store"
)

// openStore connects to the library store. The returned func closes the pool.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*store.Store, func(), error) {
	if cfg.Store.URL == "" {
		return nil, nil, fmt.Errorf("store.url is not set")
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Store.Timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Store.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	st, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return st, pool.Close, nil
}

// loadLibrary reads the replay library from the store when fromStore is set,
// otherwise from replay.library_file.
func loadLibrary(ctx context.Context, cfg *config.Config, fromStore bool, logger *zap.Logger) (*pathlib.Library, string, error) {
	if !fromStore {
		lib, err := pathlib.LoadFile(cfg.Replay.LibraryFile)
		return lib, cfg.Replay.LibraryFile, err
	}

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, "", err
	}
	defer closeStore()
	lib, err := st.LoadLibrary(ctx, cfg.Store.LibraryName)
	return lib, "store:" + cfg.Store.LibraryName, err
}
