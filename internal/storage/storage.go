// Package storage persists whole-store snapshots of the reminder list in
// a local sqlite database.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"remindbox/internal/store"
)

type DB struct {
	db *sql.DB
}

func Open(dbPath string) (*DB, error) {
	if dbPath == "" {
		return nil, errors.New("db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, err
	}
	dsn := sqliteDSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	d := &DB{db: db}
	if err := d.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *DB) ensureSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS reminders (
	slot INTEGER PRIMARY KEY,
	id INTEGER NOT NULL,
	date TEXT NOT NULL DEFAULT '',
	hour INTEGER NOT NULL DEFAULT 0,
	minute INTEGER NOT NULL DEFAULT 0,
	content TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending'
);
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);`
	_, err := d.db.Exec(ddl)
	return err
}

// SaveAll replaces the persisted snapshot with the given live set and id
// counter in one transaction.
func (d *DB) SaveAll(reminders []store.Reminder, nextID int) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM reminders;`); err != nil {
		return err
	}
	for slot, r := range reminders {
		_, err := tx.Exec(
			`INSERT INTO reminders (slot, id, date, hour, minute, content, status) VALUES (?, ?, ?, ?, ?, ?, ?);`,
			slot, r.ID, r.Date, r.Hour, r.Minute, r.Content, string(r.Status))
		if err != nil {
			return fmt.Errorf("save slot %d: %w", slot, err)
		}
	}
	if _, err := tx.Exec(
		`INSERT INTO meta (key, value) VALUES ('next_id', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value;`,
		nextID); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadAll returns the persisted snapshot in slot order. A database with no
// prior data yields an empty set and a fresh id counter.
func (d *DB) LoadAll() ([]store.Reminder, int, error) {
	rows, err := d.db.Query(`SELECT id, date, hour, minute, content, status FROM reminders ORDER BY slot;`)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var reminders []store.Reminder
	for rows.Next() {
		var r store.Reminder
		var status string
		if err := rows.Scan(&r.ID, &r.Date, &r.Hour, &r.Minute, &r.Content, &status); err != nil {
			return nil, 0, err
		}
		r.Status = store.Status(status)
		reminders = append(reminders, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	nextID := 1
	err = d.db.QueryRow(`SELECT value FROM meta WHERE key = 'next_id';`).Scan(&nextID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, 0, err
	}
	return reminders, nextID, nil
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}
