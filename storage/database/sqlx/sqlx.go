// Package sqlxrepos implements the domain repositories with sqlx. Queries are written with `?` binds
// and rebound to the engine's bind type, so they run on postgres and sqlite alike.
package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"

	"github.com/trezcool/engsoc/core"
)

func newID() string {
	return uuid.New().String()
}

// newSortableID returns an ID sorting by creation, for rows listed newest first.
func newSortableID() string {
	return ulid.Make().String()
}

// trapNoRowsErr maps "no rows" to the domain's `notFound` error.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// millis stores times as unix milliseconds; the zero time is 0.
func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// stringList is a list column, stored as a JSON array.
type stringList []string

var (
	_ driver.Valuer = stringList(nil)
	_ sql.Scanner   = (*stringList)(nil)
)

func (l stringList) Value() (driver.Value, error) {
	if l == nil {
		l = stringList{}
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *stringList) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = stringList{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return errors.Errorf("stringList: cannot scan %T", src)
	}
	var ss []string
	if err := json.Unmarshal(data, &ss); err != nil {
		return errors.Wrap(err, "stringList")
	}
	if ss == nil {
		ss = []string{}
	}
	*l = ss
	return nil
}

// where accumulates the conditions of a query and their args.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

// search matches `term` (lowered) against any of `cols`.
func (w *where) search(term string, cols ...string) {
	if term == "" {
		return
	}
	pattern := "%" + term + "%"
	likes := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols))
	for _, col := range cols {
		likes = append(likes, "LOWER("+col+") LIKE ?")
		args = append(args, pattern)
	}
	w.add("("+strings.Join(likes, " OR ")+")", args...)
}

func (w where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func orderBy(ordering []core.DBOrdering, tieBreaker string) string {
	cols := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		cols = append(cols, ord.String())
	}
	cols = append(cols, tieBreaker+" ASC")
	return " ORDER BY " + strings.Join(cols, ", ")
}

// selectPage selects a page of `query` into dest and returns the total from `countQuery`.
// Both use `?` binds; slice args are expanded by sqlx.In.
func selectPage(
	ctx context.Context,
	db *sqlx.DB,
	dest interface{},
	countQuery string, countArgs []interface{},
	query string, args []interface{},
	page core.Page,
) (int, error) {
	var total int
	q, qArgs, err := sqlx.In(countQuery, countArgs...)
	if err != nil {
		return 0, errors.Wrap(err, "expanding count query")
	}
	if err = db.GetContext(ctx, &total, db.Rebind(q), qArgs...); err != nil {
		return 0, errors.Wrap(err, "counting rows")
	}

	args = append(args[:len(args):len(args)], page.Limit(), page.Offset())
	q, qArgs, err = sqlx.In(query+" LIMIT ? OFFSET ?", args...)
	if err != nil {
		return 0, errors.Wrap(err, "expanding query")
	}
	if err = db.SelectContext(ctx, dest, db.Rebind(q), qArgs...); err != nil {
		return 0, errors.Wrap(err, "selecting rows")
	}
	return total, nil
}

// withTx runs fn in a transaction, committed when fn succeeds.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}
	return nil
}
