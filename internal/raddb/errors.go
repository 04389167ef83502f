package raddb

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/openisp/naps/internal/naperr"
)

// Attr is one (attribute, op, value) triple as stored in the check/reply
// tables.
type Attr struct {
	Attribute string
	Op        string
	Value     string
}

var validOps = map[string]bool{
	":=": true,
	"=":  true,
	"==": true,
	"+=": true,
}

func validateOps(attrs []Attr) error {
	for _, a := range attrs {
		if !validOps[a.Op] {
			return naperr.New(naperr.InvalidInput, "INVALID_OPERATOR: %q for attribute %s", a.Op, a.Attribute)
		}
	}
	return nil
}

// wrapDB classifies a database error. Connection loss inside a transaction
// is TRANSIENT_DB: the commit state is unknown, and because every write
// operation is idempotent the caller converges by re-running it.
func wrapDB(op string, err error) error {
	if err == nil {
		return nil
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case errAccessDenied, errDBAccessDenied:
			return naperr.Wrap(naperr.AuthFailed, err, "%s: database access denied", op)
		}
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) ||
		strings.Contains(err.Error(), "invalid connection") ||
		strings.Contains(err.Error(), "broken pipe") {
		return naperr.Wrap(naperr.TransientDB, err, "%s: connection lost, commit state unknown - re-run the operation", op)
	}

	return fmt.Errorf("%s: %w", op, err)
}

const (
	errAccessDenied   = 1045
	errDBAccessDenied = 1044
)
