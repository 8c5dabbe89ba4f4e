// Package dbschema connects to live databases and captures schema snapshots.
//
// Connection targets are URLs: postgres:// and postgresql:// open through the
// pgx stdlib driver, mysql:// through go-sql-driver. The dialect picks the
// catalog reader; everything downstream of the Snapshot is dialect-agnostic.
package dbschema

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/sqldrift/sqldrift/dbschema/mysql"
	"github.com/sqldrift/sqldrift/dbschema/postgres"
	"github.com/sqldrift/sqldrift/dbschema/types"
)

// Supported dialects.
const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
)

// Reader captures a snapshot of one database schema.
type Reader interface {
	ReadSchema() (*types.Snapshot, error)
}

// Database is an open connection paired with the reader for its dialect.
type Database struct {
	db      *sql.DB
	dialect string
	schema  string
	dsn     string
}

// ConnectToDatabase opens a connection for the given URL and verifies it with
// a ping. The schema argument selects the schema to snapshot; empty picks the
// dialect default ("public" for PostgreSQL, the URL database for MySQL).
func ConnectToDatabase(dsn, schema string) (*Database, error) {
	dialect, err := detectDialect(dsn)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	switch dialect {
	case DialectPostgres:
		// pgx pool parameters are not understood by database/sql.
		db, err = sql.Open("pgx", removePostgresPoolParams(dsn))
	case DialectMySQL:
		var mysqlDSN string
		mysqlDSN, err = convertMySQLURL(dsn)
		if err != nil {
			return nil, err
		}
		if schema == "" {
			schema = databaseFromURL(dsn)
		}
		db, err = sql.Open("mysql", mysqlDSN)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{db: db, dialect: dialect, schema: schema, dsn: dsn}, nil
}

// Reader returns the catalog reader for the connection's dialect.
func (d *Database) Reader() Reader {
	switch d.dialect {
	case DialectMySQL:
		return mysql.NewReader(d.db, d.schema)
	default:
		return postgres.NewReader(d.db, d.schema)
	}
}

// Dialect returns the detected dialect name.
func (d *Database) Dialect() string {
	return d.dialect
}

// Close releases the underlying connection pool.
func (d *Database) Close() error {
	return d.db.Close()
}

// Redacted returns the connection URL with any password removed, safe for
// logs and result labels.
func (d *Database) Redacted() string {
	u, err := url.Parse(d.dsn)
	if err != nil {
		return d.dsn
	}
	if u.User != nil {
		u.User = url.User(u.User.Username())
	}
	return u.String()
}

func detectDialect(dsn string) (string, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DialectPostgres, nil
	case strings.HasPrefix(dsn, "mysql://"):
		return DialectMySQL, nil
	default:
		return "", fmt.Errorf("unsupported database URL scheme in %q", redactForError(dsn))
	}
}

func redactForError(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.User != nil {
		u.User = url.User(u.User.Username())
		return u.String()
	}
	return dsn
}

// removePostgresPoolParams strips pgxpool-only query parameters that
// database/sql connections reject.
func removePostgresPoolParams(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return dsn
	}

	q := u.Query()
	if !q.Has("pool_max_conns") && !q.Has("pool_min_conns") {
		return dsn
	}
	q.Del("pool_max_conns")
	q.Del("pool_min_conns")
	u.RawQuery = q.Encode()

	return u.String()
}

// convertMySQLURL rewrites a mysql:// URL into the DSN format the
// go-sql-driver expects: user:pass@tcp(host:port)/dbname?params.
func convertMySQLURL(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql URL: %w", err)
	}

	var b strings.Builder
	if u.User != nil {
		b.WriteString(u.User.Username())
		if pass, ok := u.User.Password(); ok {
			b.WriteString(":")
			b.WriteString(pass)
		}
		b.WriteString("@")
	}

	host := u.Host
	if !strings.Contains(host, ":") {
		host += ":3306"
	}
	fmt.Fprintf(&b, "tcp(%s)", host)

	b.WriteString("/")
	b.WriteString(strings.TrimPrefix(u.Path, "/"))

	if u.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(u.RawQuery)
	}

	return b.String(), nil
}

func databaseFromURL(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}
