package gateway

import (
	"database/sql"
	"fmt"
	"time"
)

// Cache maps request fingerprints to response payloads with a TTL.
//
// Entries persist in SQLite so short-lived CLI invocations still benefit from
// earlier calls; the daily quota is the scarce resource, not disk. An expired
// entry is never returned and is deleted on first sight.
type Cache struct {
	db  *sql.DB
	now func() time.Time
}

const cacheSchema = `
CREATE TABLE IF NOT EXISTS response_cache (
	fingerprint TEXT PRIMARY KEY,
	payload     BLOB NOT NULL,
	inserted_at INTEGER NOT NULL,
	ttl_seconds INTEGER NOT NULL
);`

// NewCache creates a cache backed by db.
func NewCache(db *sql.DB) (*Cache, error) {
	if _, err := db.Exec(cacheSchema); err != nil {
		return nil, fmt.Errorf("failed to create response cache table: %w", err)
	}
	return &Cache{db: db, now: time.Now}, nil
}

// Get returns the payload stored under fingerprint, or ok=false on a miss or
// an expired entry.
func (c *Cache) Get(fingerprint string) (payload []byte, ok bool, err error) {
	var insertedAt, ttlSeconds int64
	row := c.db.QueryRow(
		`SELECT payload, inserted_at, ttl_seconds FROM response_cache WHERE fingerprint = ?`,
		fingerprint,
	)
	if err := row.Scan(&payload, &insertedAt, &ttlSeconds); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache: %w", err)
	}

	expiry := time.Unix(insertedAt, 0).Add(time.Duration(ttlSeconds) * time.Second)
	if !c.now().Before(expiry) {
		if _, err := c.db.Exec(`DELETE FROM response_cache WHERE fingerprint = ?`, fingerprint); err != nil {
			return nil, false, fmt.Errorf("failed to evict expired entry: %w", err)
		}
		return nil, false, nil
	}

	return payload, true, nil
}

// Put stores payload under fingerprint with the given TTL, replacing any
// previous entry.
func (c *Cache) Put(fingerprint string, payload []byte, ttl time.Duration) error {
	if _, err := c.db.Exec(
		`INSERT INTO response_cache (fingerprint, payload, inserted_at, ttl_seconds) VALUES (?, ?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET
			payload = excluded.payload,
			inserted_at = excluded.inserted_at,
			ttl_seconds = excluded.ttl_seconds`,
		fingerprint, payload, c.now().Unix(), int64(ttl/time.Second),
	); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// Purge removes expired entries, or every entry when all is true. Returns the
// number of rows removed.
func (c *Cache) Purge(all bool) (int64, error) {
	var res sql.Result
	var err error

	if all {
		res, err = c.db.Exec(`DELETE FROM response_cache`)
	} else {
		res, err = c.db.Exec(
			`DELETE FROM response_cache WHERE inserted_at + ttl_seconds <= ?`,
			c.now().Unix(),
		)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged rows: %w", err)
	}
	return removed, nil
}
