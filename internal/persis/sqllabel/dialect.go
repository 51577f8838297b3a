package sqllabel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// Dialect describes how to talk to one database engine.
type Dialect struct {
	// Driver is the database/sql driver name.
	Driver string
	// DSN is the connection string handed to sql.Open.
	DSN string
	// Goose is the dialect used for schema migrations.
	Goose goose.Dialect
	// Positional reports whether placeholders are $1, $2, ... instead of ?.
	Positional bool
}

// ParseURL maps a DATABASE_URL value onto a dialect. Accepted forms:
//
//	postgres://... or postgresql://...    PostgreSQL through pgx
//	sqlite:///relative.db, sqlite:////abs/path.db
//	file:path.db or a bare filesystem path
func ParseURL(raw string) (Dialect, error) {
	url := strings.TrimSpace(raw)
	switch {
	case url == "":
		return Dialect{}, fmt.Errorf("empty database url")

	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return Dialect{
			Driver:     "pgx",
			DSN:        url,
			Goose:      goose.DialectPostgres,
			Positional: true,
		}, nil

	case strings.HasPrefix(url, "sqlite://"):
		path := strings.TrimPrefix(url, "sqlite://")
		// sqlite:///rel.db keeps "rel.db", sqlite:////abs.db keeps "/abs.db".
		path = strings.TrimPrefix(path, "/")
		if path == "" {
			return Dialect{}, fmt.Errorf("sqlite url %q has no path", raw)
		}
		return sqliteDialect(path), nil

	case strings.Contains(url, "://"):
		return Dialect{}, fmt.Errorf("unsupported database url scheme in %q", raw)

	default:
		return sqliteDialect(strings.TrimPrefix(url, "file:")), nil
	}
}

func sqliteDialect(path string) Dialect {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	return Dialect{
		Driver: "sqlite",
		DSN:    dsn,
		Goose:  goose.DialectSQLite3,
	}
}

// Rebind rewrites ? placeholders into the dialect's positional form.
func (d Dialect) Rebind(query string) string {
	if !d.Positional {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
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
