// Package directory provides the SQLite-backed systems of record for users,
// groups, and session templates, plus migration support.
package directory

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"
)

// readPoolSize bounds concurrent directory reads. The console's read load is
// small pages of users, groups, and templates during reloads plus occasional
// admin lookups; four connections cover it without starving the writer.
const readPoolSize = 4

// Open opens the write and read pools for the directory database at path.
//
// SQLite permits one writer at a time, so directory writes go through a pool
// pinned to a single connection with immediate transaction locking, while
// reads fan out over readPoolSize connections against the same WAL file.
func Open(path string) (write, read *sql.DB, err error) {
	write, err = openPool(path, true)
	if err != nil {
		return nil, nil, err
	}
	read, err = openPool(path, false)
	if err != nil {
		_ = write.Close()
		return nil, nil, err
	}
	return write, read, nil
}

func openPool(path string, writer bool) (*sql.DB, error) {
	role := "read"
	if writer {
		role = "write"
	}

	db, err := sql.Open("sqlite3", directoryDSN(path, writer))
	if err != nil {
		return nil, fmt.Errorf("open directory db (%s): %w", role, err)
	}
	if writer {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(readPoolSize)
		db.SetMaxIdleConns(readPoolSize)
	}
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping directory db (%s): %w", role, err)
	}
	return db, nil
}

// directoryDSN builds the hardened DSN: WAL journal, 5s busy timeout,
// NORMAL synchronous, foreign keys on. The writer additionally takes the
// write lock at transaction start instead of on first write, which turns
// lock contention into busy-timeout waits rather than mid-transaction
// failures.
func directoryDSN(path string, writer bool) string {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_busy_timeout", "5000")
	params.Set("_synchronous", "NORMAL")
	params.Set("_foreign_keys", "on")
	if writer {
		params.Set("_txlock", "immediate")
	}
	return path + "?" + params.Encode()
}
