// Package sqlstore implements the repositories on sqlx for PostgreSQL and
// MySQL. Queries are written with ? placeholders and rebound per driver.
package sqlstore

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

type Dialect int

const (
	Postgres Dialect = iota
	MySQL
)

func dialectOf(db *sqlx.DB) Dialect {
	if db.DriverName() == "mysql" {
		return MySQL
	}
	return Postgres
}

// upsert builds the conflict clause that overwrites cols when keys collide.
func (d Dialect) upsert(keys []string, cols []string) string {
	set := make([]string, len(cols))
	for i, c := range cols {
		if d == MySQL {
			set[i] = fmt.Sprintf("%s = VALUES(%s)", c, c)
		} else {
			set[i] = fmt.Sprintf("%s = EXCLUDED.%s", c, c)
		}
	}
	if d == MySQL {
		return " ON DUPLICATE KEY UPDATE " + strings.Join(set, ", ")
	}
	return fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(keys, ", "), strings.Join(set, ", "))
}

// ilike: MySQL collation sudah case-insensitive
func (d Dialect) ilike() string {
	if d == MySQL {
		return "LIKE"
	}
	return "ILIKE"
}

type base struct {
	db      *sqlx.DB
	dialect Dialect
}

func newBase(db *sqlx.DB) base { return base{db: db, dialect: dialectOf(db)} }

func (b base) q(query string) string { return b.db.Rebind(query) }

// jsonArg: lib/pq kirim []byte sebagai bytea, jadi JSON dikirim sebagai string
func jsonArg(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func likeEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}
