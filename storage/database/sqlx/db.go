// Package sqlxrepos implements the repositories on Postgres with sqlx and squirrel.
package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"net"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/homeworkhelper/api/core"
)

// psql builds Postgres statements.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// storageErr maps connectivity failures to core.ErrUnavailable and keeps the rest.
func storageErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if unreachable(err) {
		return errors.WithMessage(core.ErrUnavailable, msg+": "+err.Error())
	}
	return errors.Wrap(err, msg)
}

func unreachable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", // connection_exception
			"53", // insufficient_resources
			"57": // operator_intervention
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "broken pipe")
}

// getx runs a squirrel SELECT and scans the single row into dest.
func getx(ctx context.Context, q sqlx.QueryerContext, dest interface{}, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	return sqlx.GetContext(ctx, q, dest, query, args...)
}

// selectx runs a squirrel SELECT and scans all rows into dest.
func selectx(ctx context.Context, q sqlx.QueryerContext, dest interface{}, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, q, dest, query, args...)
}

// execx runs a squirrel INSERT/UPDATE/DELETE.
func execx(ctx context.Context, e sqlx.ExecerContext, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	return e.ExecContext(ctx, query, args...)
}

// likePattern returns a case-insensitive substring pattern for s.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
