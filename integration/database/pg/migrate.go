package pg

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Migrate applies all pending goose migrations from fsys, which must be
// rooted at the directory holding the .sql files. It opens its own
// database/sql connection because goose does not speak pgx pools.
func Migrate(ctx context.Context, connURL string, fsys fs.FS) error {
	if connURL == "" {
		return ErrEmptyConnectionURL
	}

	db, err := sql.Open("pgx", connURL)
	if err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}
