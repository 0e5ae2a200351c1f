package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

func NewSQLiteStorage(ctx context.Context, path string, logger *zap.Logger) (*SQLStorage, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "error creating database dir %s", dir)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrapf(err, "error opening sqlite database %s", path)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "error enabling foreign keys")
	}

	storage := newSQLStorage(db, sq.Question, logger)
	if err := storage.migrate(ctx, "migrations/sqlite.sql"); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "error initializing database schema")
	}
	return storage, nil
}
