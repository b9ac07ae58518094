package sqlitedb

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"
)

const (
	driverName = "sqlite"
)

//go:embed migration/*.sql
var Migrations embed.FS

func OpenDb(dbPath string) (*sql.DB, error) {
	dir := filepath.Dir(dbPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		err = os.MkdirAll(dir, 0755)
		if err != nil {
			return nil, fmt.Errorf("failed to create directory: %v", err)
		}
	}

	db, err := sql.Open(driverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	db.SetMaxOpenConns(1) // prevent concurrent writes

	return db, nil
}

func execTx(
	ctx context.Context,
	db *sql.DB,
	txBody func(*sql.Tx) error,
) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			rollbackErr := tx.Rollback()
			if rollbackErr != nil {
				err = fmt.Errorf("panic: %v, rollback error: %w", p, rollbackErr)
			}
			panic(p) // Re-throw after rollback
		} else if err != nil {
			rollbackErr := tx.Rollback()
			if rollbackErr != nil {
				err = fmt.Errorf("original error: %v, rollback error: %w", err, rollbackErr)
			}
		}
	}()

	if err = txBody(tx); err != nil {
		return fmt.Errorf("failed to execute transaction: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// amounts are stored as decimal text, sqlite integers are signed 64-bit
func formatAmount(amount uint64) string {
	return strconv.FormatUint(amount, 10)
}

func parseAmount(amount string) (uint64, error) {
	v, err := strconv.ParseUint(amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid stored amount %q: %w", amount, err)
	}
	return v, nil
}
