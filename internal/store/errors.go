package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// classify maps a database error to the store's error taxonomy. Errors that
// already carry a store sentinel pass through unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		common.ErrorNotFound,
		common.ErrStorageUnavailable,
		common.ErrWriteConflict,
		common.ErrTransactionFailure,
		common.ErrValidation,
	} {
		if errors.Is(err, known) {
			return err
		}
	}

	return fmt.Errorf("%s: %w: %w", op, kindOf(err), err)
}

func kindOf(err error) error {
	if errors.Is(err, sql.ErrConnDone) {
		return common.ErrStorageUnavailable
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return common.ErrTransactionFailure
	}

	var se *sqlite.Error
	if !errors.As(err, &se) {
		return common.ErrTransactionFailure
	}

	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return common.ErrWriteConflict
	}

	// Extended codes carry the primary code in the low byte.
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_READONLY, sqlite3.SQLITE_PERM,
		sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_CORRUPT, sqlite3.SQLITE_AUTH,
		sqlite3.SQLITE_IOERR, sqlite3.SQLITE_NOMEM:
		return common.ErrStorageUnavailable
	default:
		return common.ErrTransactionFailure
	}
}
