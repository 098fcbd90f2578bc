package archive

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/apppowertechnology/polsa-airtime-backend/internal/models"
)

// Store is an append-only audit sink for completed transactions. It is
// write-only from the claim flow: the in-memory ledger stays authoritative
// and nothing here is read back at startup.
type Store struct {
	conn *sql.DB
}

// Open creates the archive database and initializes the schema.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	s := &Store{conn: conn}

	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize archive schema: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			ts TEXT NOT NULL,
			network TEXT NOT NULL,
			mobile_number TEXT NOT NULL,
			amount INTEGER NOT NULL,
			status TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_txn_ts ON transactions(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_txn_mobile ON transactions(mobile_number)`,
	}

	for _, query := range queries {
		if _, err := s.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

// Insert appends one transaction record.
func (s *Store) Insert(rec models.TransactionRecord) error {
	_, err := s.conn.Exec(
		`INSERT INTO transactions (id, ts, network, mobile_number, amount, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Timestamp.Format(time.RFC3339),
		rec.Network,
		rec.MobileNumber,
		rec.Amount,
		string(rec.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to archive transaction %s: %w", rec.ID, err)
	}
	return nil
}

// CountSince returns the number of archived transactions with a timestamp
// at or after the given instant. Used by offline inspection tooling.
func (s *Store) CountSince(since time.Time) (int, error) {
	var count int
	err := s.conn.QueryRow(
		`SELECT COUNT(*) FROM transactions WHERE ts >= ?`,
		since.Format(time.RFC3339),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count archived transactions: %w", err)
	}
	return count, nil
}
