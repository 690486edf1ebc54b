package kv

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// live restricts a kv_store query to rows of one bucket that have not
// expired. It takes the bucket name and the current unix time.
const live = `bucket = ? AND (expires_at IS NULL OR expires_at > ?)`

// SQLiteBucket is a Bucket stored in the kv_store table. Expired rows are
// invisible to reads and are dropped on the next write to the bucket.
type SQLiteBucket struct {
	db   *sql.DB
	name string
	now  func() time.Time
}

var _ Bucket = (*SQLiteBucket)(nil)

// NewSQLiteBucket returns the bucket called name in db
func NewSQLiteBucket(db *sql.DB, name string) *SQLiteBucket {
	return &SQLiteBucket{db: db, name: name, now: time.Now}
}

func (b *SQLiteBucket) Name() string { return b.name }

// Store upserts key. A TTL in opts makes the value expire after that long.
func (b *SQLiteBucket) Store(key string, value any, opts *StoreOptions) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv %s: encode %q: %w", b.name, key, err)
	}

	now := b.now().UTC()
	var expiresAt sql.NullInt64
	if opts != nil && opts.TTL > 0 {
		expiresAt = sql.NullInt64{Int64: now.Add(opts.TTL).Unix(), Valid: true}
	}

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("kv %s: %w", b.name, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM kv_store WHERE bucket = ? AND expires_at IS NOT NULL AND expires_at <= ?`,
		b.name, now.Unix(),
	); err != nil {
		return fmt.Errorf("kv %s: drop expired: %w", b.name, err)
	}

	if _, err := tx.Exec(
		`INSERT INTO kv_store (bucket, key, value, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(bucket, key) DO UPDATE
		 SET value = excluded.value, expires_at = excluded.expires_at, updated_at = excluded.updated_at`,
		b.name, key, string(encoded), expiresAt, now.Unix(), now.Unix(),
	); err != nil {
		return fmt.Errorf("kv %s: store %q: %w", b.name, key, err)
	}

	return tx.Commit()
}

// Load decodes the live value under key into dst
func (b *SQLiteBucket) Load(key string, dst any) (bool, error) {
	var encoded string
	err := b.db.QueryRow(
		`SELECT value FROM kv_store WHERE `+live+` AND key = ?`,
		b.name, b.now().UTC().Unix(), key,
	).Scan(&encoded)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("kv %s: load %q: %w", b.name, key, err)
	}

	if err := json.Unmarshal([]byte(encoded), dst); err != nil {
		return false, fmt.Errorf("kv %s: decode %q: %w", b.name, key, err)
	}
	return true, nil
}

// Delete removes key and reports whether a live value was there
func (b *SQLiteBucket) Delete(key string) (bool, error) {
	res, err := b.db.Exec(`DELETE FROM kv_store WHERE `+live+` AND key = ?`, b.name, b.now().UTC().Unix(), key)
	if err != nil {
		return false, fmt.Errorf("kv %s: delete %q: %w", b.name, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("kv %s: delete %q: %w", b.name, key, err)
	}
	return n > 0, nil
}

// Keys lists live keys in lexical order
func (b *SQLiteBucket) Keys() ([]string, error) {
	rows, err := b.db.Query(`SELECT key FROM kv_store WHERE `+live+` ORDER BY key`, b.name, b.now().UTC().Unix())
	if err != nil {
		return nil, fmt.Errorf("kv %s: keys: %w", b.name, err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("kv %s: keys: %w", b.name, err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
