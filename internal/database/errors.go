package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"notes-go/internal/notes"
)

// classify maps driver errors onto the service sentinels. Errors it does
// not recognise are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var se sqlite3.Error
	if !errors.As(err, &se) {
		return err
	}

	switch {
	case se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked:
		return fmt.Errorf("%w: %w", notes.ErrTransient, err)
	case se.ExtendedCode == sqlite3.ErrConstraintTrigger:
		return fmt.Errorf("%w: %w", notes.ErrConflict, err)
	}
	return err
}

// isUniqueViolation reports whether err is a UNIQUE failure on column
// (formatted table.column).
func isUniqueViolation(err error, column string) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique && strings.Contains(se.Error(), column)
}
