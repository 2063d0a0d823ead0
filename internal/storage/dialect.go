package storage

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type dialect struct {
	name       string
	driverName string
	schemaFile string
	numbered   bool // $1, $2 placeholders instead of ?
	singleConn bool
	dsn        func(cfg DatabaseConfig) string
}

var dialects = map[string]dialect{
	"postgres": {
		name:       "postgres",
		driverName: "postgres",
		schemaFile: "schema/postgres.sql",
		numbered:   true,
		dsn: func(cfg DatabaseConfig) string {
			return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
				cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
		},
	},
	"mysql": {
		name:       "mysql",
		driverName: "mysql",
		schemaFile: "schema/mysql.sql",
		dsn: func(cfg DatabaseConfig) string {
			mc := mysql.NewConfig()
			mc.User = cfg.User
			mc.Passwd = cfg.Password
			mc.Net = "tcp"
			mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
			mc.DBName = cfg.DBName
			return mc.FormatDSN()
		},
	},
	"sqlite": {
		name:       "sqlite",
		driverName: "sqlite",
		schemaFile: "schema/sqlite.sql",
		singleConn: true,
		dsn: func(cfg DatabaseConfig) string {
			return sqliteDSN(cfg.Path)
		},
	},
}

func dialectFor(driver string) (dialect, error) {
	d, ok := dialects[strings.ToLower(driver)]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
	return d, nil
}

func sqliteDSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// rebind rewrites ? placeholders for dialects with numbered parameters.
func (d dialect) rebind(query string) string {
	if !d.numbered {
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

// placeholders returns "?, ?, ?" for n parameters.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
