// Package directory implements the persistent address directory: a unique
// claim of an address string to an invite code, resolvable by anyone who
// knows the address. It is deliberately separate from the relay core and
// shares no state with it.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrAddressTaken is returned by Claim for an address that was already
	// claimed; claims succeed at most once per unique address.
	ErrAddressTaken = errors.New("directory: address already claimed")

	// ErrNotFound is returned by Resolve for an address never claimed.
	ErrNotFound = errors.New("directory: address not found")
)

const schema = `
CREATE TABLE IF NOT EXISTS addresses (
	address     TEXT PRIMARY KEY,
	invite_code TEXT NOT NULL
);`

// Store persists address claims in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the directory database at path.
// Pass ":memory:" for an ephemeral store in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open directory db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init directory schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Claim records inviteCode under address. The first claim of an address
// wins; any later claim fails with ErrAddressTaken.
func (s *Store) Claim(ctx context.Context, address, inviteCode string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO addresses (address, invite_code) VALUES (?, ?)`,
		address, inviteCode,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAddressTaken
		}
		return fmt.Errorf("claim address: %w", err)
	}
	return nil
}

// Resolve returns the invite code claimed under address.
func (s *Store) Resolve(ctx context.Context, address string) (string, error) {
	var inviteCode string
	err := s.db.QueryRowContext(ctx,
		`SELECT invite_code FROM addresses WHERE address = ?`,
		address,
	).Scan(&inviteCode)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolve address: %w", err)
	}
	return inviteCode, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "constraint")
}
