package rvndb

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"net/url"

	"github.com/rvnlabs/rvnassets/rvndb/sqlc"
	_ "modernc.org/sqlite" // Register the "sqlite" driver.
)

const (
	// sqliteBusyTimeoutMs is how long a connection waits for a lock held
	// by another connection.
	sqliteBusyTimeoutMs = 5000
)

// SqliteConfig holds all the config arguments needed to interact with our
// sqlite DB.
//
//nolint:lll
type SqliteConfig struct {
	// SkipCreateTables if true, then the tables are expected to exist
	// already and aren't created on start up.
	SkipCreateTables bool `long:"skipcreatetables" description:"Don't create the database tables on startup"`

	// DatabaseFileName is the full file path where the database file can be
	// found.
	DatabaseFileName string `long:"dbfile" description:"The full path to the database"`
}

// SqliteStore is a sqlite3 based database for the scanned asset payloads.
type SqliteStore struct {
	cfg *SqliteConfig

	*sql.DB

	*sqlc.Queries
}

// NewSqliteStore attempts to open a new sqlite database based on the passed
// config.
func NewSqliteStore(cfg *SqliteConfig) (*SqliteStore, error) {
	pragmas := url.Values{}
	pragmas.Add("_pragma", "foreign_keys(1)")
	pragmas.Add("_pragma", "journal_mode(WAL)")
	pragmas.Add("_pragma", fmt.Sprintf(
		"busy_timeout(%d)", sqliteBusyTimeoutMs,
	))
	dsn := fmt.Sprintf("file:%s?%s", cfg.DatabaseFileName,
		pragmas.Encode())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	if !cfg.SkipCreateTables {
		if err := createTables(db); err != nil {
			db.Close()
			return nil, err
		}
	}

	log.Infof("Opened sqlite database at %v", cfg.DatabaseFileName)

	return &SqliteStore{
		DB:      db,
		cfg:     cfg,
		Queries: sqlc.New(db),
	}, nil
}

// createTables populates the database with our set of schemas based on our
// embedded in-memory file system.
func createTables(db *sql.DB) error {
	return fs.WalkDir(sqlSchemas, "sqlc/migrations", func(path string,
		d fs.DirEntry, err error) error {

		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		schema, err := sqlSchemas.ReadFile(path)
		if err != nil {
			return err
		}

		log.Debugf("Applying schema %v", path)

		if _, err := db.Exec(string(schema)); err != nil {
			return fmt.Errorf("unable to create schema %v: %w",
				path, err)
		}

		return nil
	})
}

// BeginTx wraps the normal sql specific BeginTx method with the TxOptions
// interface. This interface is then mapped to the concrete sql tx options
// struct.
func (s *SqliteStore) BeginTx(ctx context.Context, opts TxOptions) (*sql.Tx,
	error) {

	sqlOptions := sql.TxOptions{
		ReadOnly: opts.ReadOnly(),
	}
	return s.DB.BeginTx(ctx, &sqlOptions)
}
