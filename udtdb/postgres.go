package udtdb

import (
	"database/sql"
	"net"
	"net/url"
	"strconv"

	"github.com/cellforge/udtforge/udtdb/sqlc"
	postgres_migrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/lib/pq" // Register relevant drivers.
)

// postgresTypes maps the sqlite column types of the journal schema to their
// postgres spelling.
var postgresTypes = map[string]string{
	"BLOB":                "BYTEA",
	"INTEGER PRIMARY KEY": "SERIAL PRIMARY KEY",
}

// PostgresConfig holds the postgres database configuration.
type PostgresConfig struct {
	SkipMigrations     bool   `long:"skipmigrations" description:"Skip applying migrations on startup."`
	Host               string `long:"host" description:"Database server hostname."`
	Port               int    `long:"port" description:"Database server port."`
	User               string `long:"user" description:"Database user."`
	Password           string `long:"password" description:"Database user's password."`
	DBName             string `long:"dbname" description:"Database name to use."`
	MaxOpenConnections int    `long:"maxconnections" description:"Max open connections to keep alive to the database server."`
	RequireSSL         bool   `long:"requiressl" description:"Whether to require using SSL (mode: require) when connecting to the server."`
}

// DSN returns the URL lib/pq connects to. Credentials are escaped, and with
// redact set the password is masked so the result can be logged.
func (s *PostgresConfig) DSN(redact bool) string {
	sslMode := "disable"
	if s.RequireSSL {
		sslMode = "require"
	}

	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(s.User, s.Password),
		Host:     net.JoinHostPort(s.Host, strconv.Itoa(s.Port)),
		Path:     "/" + s.DBName,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	if redact {
		return dsn.Redacted()
	}

	return dsn.String()
}

// PostgresStore is a journal database on a postgres server.
type PostgresStore struct {
	cfg *PostgresConfig

	*BaseDB
}

// NewPostgresStore connects to the configured server and brings the journal
// schema up to date unless migrations are skipped.
func NewPostgresStore(cfg *PostgresConfig) (*PostgresStore, error) {
	log.Infof("Using SQL database '%s'", cfg.DSN(true))

	db, err := sql.Open("postgres", cfg.DSN(false))
	if err != nil {
		return nil, err
	}
	limitConns(db, cfg.MaxOpenConnections)

	if !cfg.SkipMigrations {
		driver, err := postgres_migrate.WithInstance(
			db, &postgres_migrate.Config{},
		)
		if err != nil {
			return nil, err
		}

		err = applyMigrations(
			newReplacerFS(sqlSchemas, postgresTypes), driver,
			"sqlc/migrations", cfg.DBName,
		)
		if err != nil {
			return nil, err
		}
	}

	return &PostgresStore{
		cfg: cfg,
		BaseDB: &BaseDB{
			DB:      db,
			Queries: sqlc.New(db),
		},
	}, nil
}
