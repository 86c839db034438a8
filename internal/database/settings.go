package database

import (
	"database/sql"
	"errors"
)

// GetConfig returns the stored value for key and whether it exists.
func (db *DB) GetConfig(key string) (string, bool, error) {
	var value string
	err := db.conn.QueryRow("SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetConfig inserts or replaces a config value.
func (db *DB) SetConfig(key, value string) error {
	_, err := db.conn.Exec(
		`INSERT INTO config (key, value, updatedAt) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = excluded.updatedAt`,
		key, value, db.timestamp(),
	)
	return err
}
