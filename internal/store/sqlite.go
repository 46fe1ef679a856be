// internal/store/sqlite.go
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tamzrod/sensor-relay/internal/record"
)

// SQLite is the alternate Store backend for hosts with a real
// filesystem. Same contract as Ring: bounded capacity, oldest-wins
// eviction, logical index 0 = oldest. Rows hold the encoded slot
// payload so both backends share one codec.
type SQLite struct {
	db       *sql.DB
	capacity int
	slotSize int
}

func OpenSQLite(path string, capacity, slotSize int) (*SQLite, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("store: capacity %d out of range", capacity)
	}
	if slotSize <= record.PrefixSize {
		return nil, fmt.Errorf("store: slot size %d too small", slotSize)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS records (
	seq  INTEGER PRIMARY KEY AUTOINCREMENT,
	slot BLOB NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	return &SQLite{db: db, capacity: capacity, slotSize: slotSize}, nil
}

func (s *SQLite) Append(rec record.Record) error {
	slot, err := record.Encode(rec, s.slotSize)
	if err != nil {
		if errors.Is(err, record.ErrTooLarge) {
			return ErrRecordTooLarge
		}
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO records (slot) VALUES (?)`, slot); err != nil {
		return fmt.Errorf("store: insert: %w", err)
	}

	// Oldest-wins eviction down to capacity.
	_, err = tx.Exec(`
DELETE FROM records WHERE seq IN (
	SELECT seq FROM records ORDER BY seq ASC
	LIMIT max(0, (SELECT count(*) FROM records) - ?)
)`, s.capacity)
	if err != nil {
		return fmt.Errorf("store: evict: %w", err)
	}

	return tx.Commit()
}

func (s *SQLite) Read(index int) (record.Record, error) {
	if index < 0 || index >= s.Len() {
		return record.Record{}, ErrIndexOutOfRange
	}

	var slot []byte
	err := s.db.QueryRow(
		`SELECT slot FROM records ORDER BY seq ASC LIMIT 1 OFFSET ?`, index,
	).Scan(&slot)
	if err != nil {
		return record.Record{}, fmt.Errorf("store: select: %w", err)
	}

	rec, err := record.Decode(slot)
	if err != nil {
		return record.Record{}, ErrCorruptRecord
	}
	return rec, nil
}

func (s *SQLite) DropOldest(n int) error {
	if n <= 0 {
		return nil
	}
	_, err := s.db.Exec(`
DELETE FROM records WHERE seq IN (
	SELECT seq FROM records ORDER BY seq ASC LIMIT ?
)`, n)
	if err != nil {
		return fmt.Errorf("store: drop: %w", err)
	}
	return nil
}

func (s *SQLite) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM records`); err != nil {
		return fmt.Errorf("store: clear: %w", err)
	}
	return nil
}

func (s *SQLite) Len() int {
	var n int
	if err := s.db.QueryRow(`SELECT count(*) FROM records`).Scan(&n); err != nil {
		return 0
	}
	return n
}

func (s *SQLite) Capacity() int  { return s.capacity }
func (s *SQLite) FreeSpace() int { return s.capacity - s.Len() }
func (s *SQLite) IsFull() bool   { return s.Len() >= s.capacity }

func (s *SQLite) Flush() error { return nil }
func (s *SQLite) Close() error { return s.db.Close() }
