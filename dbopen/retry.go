package dbopen

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Busy retries: three attempts, waiting 50ms then 100ms.
const (
	attempts     = 3
	firstBackoff = 50 * time.Millisecond
)

// IsBusy reports whether err is a lock conflict worth retrying:
// SQLITE_BUSY or SQLITE_LOCKED, extended codes included. Errors from other
// drivers are recognised by message.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// withRetry runs fn until it succeeds, fails with a non-busy error, or the
// attempts run out. The backoff doubles after each busy failure.
func withRetry(ctx context.Context, op string, fn func() error) error {
	wait := firstBackoff
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !IsBusy(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("dbopen: %s: %w (last: %v)", op, ctx.Err(), err)
		case <-t.C:
		}
		wait *= 2
	}
	return fmt.Errorf("dbopen: %s: still busy after %d attempts: %w", op, attempts, err)
}

// RunTx runs fn in a transaction, committing on nil and rolling back
// otherwise. A busy database restarts the whole transaction.
func RunTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	return withRetry(ctx, "tx", func() error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("dbopen: begin: %w", err)
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("dbopen: commit: %w", err)
		}
		return nil
	})
}

// Exec is ExecContext with the same busy retry as RunTx.
func Exec(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := withRetry(ctx, "exec", func() error {
		var err error
		res, err = db.ExecContext(ctx, query, args...)
		return err
	})
	return res, err
}
