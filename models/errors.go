package models

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrReferentialViolation is returned when a write references a parent row
	// that does not exist, or deletes a parent that is still referenced.
	ErrReferentialViolation = errors.New("referenced record does not exist")
	// ErrDuplicate is returned when a unique key or composite junction key already exists.
	ErrDuplicate = errors.New("record already exists")
	// ErrNotFound aliases gorm's not-found error for callers outside this package.
	ErrNotFound = gorm.ErrRecordNotFound
)

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"

	mysqlDuplicateEntry   = 1062
	mysqlRowIsReferenced  = 1451
	mysqlNoReferencedRow  = 1452
	mysqlRowIsReferenced2 = 1217
	mysqlNoReferencedRow2 = 1216
)

// ClassifyDBError maps driver-level constraint failures onto the package
// sentinels. Other errors are returned unchanged.
func ClassifyDBError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return fmt.Errorf("%w (%s)", ErrReferentialViolation, pgErr.ConstraintName)
		case pgUniqueViolation:
			return fmt.Errorf("%w (%s)", ErrDuplicate, pgErr.ConstraintName)
		}
		return err
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlNoReferencedRow, mysqlNoReferencedRow2, mysqlRowIsReferenced, mysqlRowIsReferenced2:
			return fmt.Errorf("%w: %s", ErrReferentialViolation, myErr.Message)
		case mysqlDuplicateEntry:
			return fmt.Errorf("%w: %s", ErrDuplicate, myErr.Message)
		}
	}
	return err
}
