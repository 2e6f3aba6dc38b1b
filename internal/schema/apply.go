package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// DriverName is the database/sql driver registered by pgx.
const DriverName = "pgx"

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// ApplyOptions controls Apply.
type ApplyOptions struct {
	// Reset drops the schema's tables and types before creating them.
	Reset  bool
	Logger *zap.Logger
}

// Apply creates the schema in one transaction.
func Apply(ctx context.Context, db *sql.DB, s Schema, opts ApplyOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	if opts.Reset {
		logger.Warn("dropping managed tables", zap.Int("tables", len(s.Tables)), zap.Int("enums", len(s.Enums)))

		if _, err := tx.ExecContext(ctx, s.DropDDL()); err != nil {
			return fmt.Errorf("drop schema: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, s.DDL()); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}

	logger.Info("schema applied", zap.Int("tables", len(s.Tables)), zap.Int("enums", len(s.Enums)))

	return nil
}

// ApplyDSN opens dsn, applies s and closes the connection.
func ApplyDSN(ctx context.Context, dsn string, s Schema, opts ApplyOptions) error {
	db, err := Open(ctx, dsn)
	if err != nil {
		return err
	}

	defer func() {
		_ = db.Close()
	}()

	return Apply(ctx, db, s, opts)
}
