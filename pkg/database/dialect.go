package database

import (
	"strconv"
	"strings"
	"time"
)

// Dialect identifies a storage backend and encodes values for it
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DateLayout is the stored form of calendar dates on SQLite
const DateLayout = "2006-01-02"

// TimestampLayout is fixed-width so TEXT comparison orders chronologically
const TimestampLayout = "2006-01-02 15:04:05.000000000"

// Rebind converts '?' placeholders into the backend's native form
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Date encodes a calendar date parameter
func (d Dialect) Date(t time.Time) any {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if d == Postgres {
		return day
	}
	return day.Format(DateLayout)
}

// Timestamp encodes an instant parameter (always UTC)
func (d Dialect) Timestamp(t time.Time) any {
	if d == Postgres {
		return t.UTC()
	}
	return t.UTC().Format(TimestampLayout)
}

// NullTimestamp encodes an optional instant
func (d Dialect) NullTimestamp(t *time.Time) any {
	if t == nil {
		return nil
	}
	return d.Timestamp(*t)
}

// JSONText selects a JSON column as text
func (d Dialect) JSONText(column string) string {
	if d == Postgres {
		return column + "::text"
	}
	return column
}
