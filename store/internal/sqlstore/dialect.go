// Package sqlstore is the database/sql core shared by the sqlite and
// postgres backends. Queries are written with "?" placeholders and rebound
// per dialect.
package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Dialect captures what differs between SQL engines.
type Dialect struct {
	// Name prefixes every error, e.g. "dues/sqlite".
	Name string

	// Numbered selects "$1, $2" placeholders instead of "?".
	Numbered bool

	// TimeType is the column type used for timestamps.
	TimeType string

	// EncodeTime converts a timestamp into a driver argument.
	EncodeTime func(time.Time) any
}

// SQLite is the modernc.org/sqlite dialect. Timestamps are RFC 3339 text.
var SQLite = Dialect{
	Name:     "dues/sqlite",
	TimeType: "TEXT",
	EncodeTime: func(t time.Time) any {
		return t.UTC().Format(time.RFC3339Nano)
	},
}

// Postgres is the pgx dialect.
var Postgres = Dialect{
	Name:     "dues/postgres",
	Numbered: true,
	TimeType: "TIMESTAMPTZ",
	EncodeTime: func(t time.Time) any {
		return t.UTC()
	},
}

func (d Dialect) rebind(q string) string {
	if !d.Numbered {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) wrap(op string, err error) error {
	return fmt.Errorf("%s: %s: %w", d.Name, op, err)
}

// timeValue scans TEXT, TIMESTAMP or TIMESTAMPTZ columns into a time.Time.
type timeValue struct{ t *time.Time }

func (v timeValue) Scan(src any) error {
	switch x := src.(type) {
	case time.Time:
		*v.t = x.UTC()
	case string:
		return v.parse(x)
	case []byte:
		return v.parse(string(x))
	case nil:
		*v.t = time.Time{}
	default:
		return fmt.Errorf("sqlstore: cannot scan %T into time.Time", src)
	}
	return nil
}

func (v timeValue) parse(s string) error {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("sqlstore: parse time %q: %w", s, err)
	}
	*v.t = t.UTC()
	return nil
}
