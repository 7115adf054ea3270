package db

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/keyline/keyline/pkg/request"
	"github.com/keyline/keyline/pkg/trace"
)

// SQLiteDB drives a SQLite database through the benchmark interface.
// Keys are stored as 8-byte big-endian blobs so SQLite's blob ordering
// matches the numeric key order and scans stay range queries.
type SQLiteDB struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex // single writer

	readStmt   *sql.Stmt
	insertStmt *sql.Stmt
	updateStmt *sql.Stmt
	deleteStmt *sql.Stmt
	scanStmt   *sql.Stmt
}

// NewSQLiteDB opens (or creates) the database at dbPath.
func NewSQLiteDB(dbPath string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("db: failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return &SQLiteDB{db: db, dbPath: dbPath}, nil
}

func encodeKey(key request.Key) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(key))
	return buf
}

// InitializeDatabase implements Database.
func (s *SQLiteDB) InitializeDatabase() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS kv (k BLOB PRIMARY KEY, v BLOB NOT NULL)`); err != nil {
		return fmt.Errorf("db: failed to initialize schema: %w", err)
	}
	var err error
	if s.readStmt, err = s.db.Prepare(`SELECT v FROM kv WHERE k = ?`); err != nil {
		return fmt.Errorf("db: failed to prepare read statement: %w", err)
	}
	if s.insertStmt, err = s.db.Prepare(`INSERT OR REPLACE INTO kv (k, v) VALUES (?, ?)`); err != nil {
		return fmt.Errorf("db: failed to prepare insert statement: %w", err)
	}
	if s.updateStmt, err = s.db.Prepare(`UPDATE kv SET v = ? WHERE k = ?`); err != nil {
		return fmt.Errorf("db: failed to prepare update statement: %w", err)
	}
	if s.deleteStmt, err = s.db.Prepare(`DELETE FROM kv WHERE k = ?`); err != nil {
		return fmt.Errorf("db: failed to prepare delete statement: %w", err)
	}
	if s.scanStmt, err = s.db.Prepare(`SELECT k, v FROM kv WHERE k >= ? ORDER BY k LIMIT ?`); err != nil {
		return fmt.Errorf("db: failed to prepare scan statement: %w", err)
	}
	return nil
}

// InitializeWorker implements Database.
func (s *SQLiteDB) InitializeWorker(threadID int) {}

// ShutdownWorker implements Database.
func (s *SQLiteDB) ShutdownWorker(threadID int) {}

// ShutdownDatabase implements Database.
func (s *SQLiteDB) ShutdownDatabase() error {
	for _, stmt := range []*sql.Stmt{s.readStmt, s.insertStmt, s.updateStmt, s.deleteStmt, s.scanStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("db: failed to close sqlite database: %w", err)
	}
	return nil
}

// BulkLoad implements Database. The load runs in one transaction to
// avoid a fsync per record.
func (s *SQLiteDB) BulkLoad(load *trace.BulkLoadTrace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("db: failed to begin bulk load: %w", err)
	}
	stmt := tx.Stmt(s.insertStmt)
	defer stmt.Close()
	for _, req := range load.Requests() {
		if _, err := stmt.Exec(encodeKey(req.Key), req.Value); err != nil {
			tx.Rollback()
			return fmt.Errorf("db: failed to bulk load key %#x: %w", uint64(req.Key), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db: failed to commit bulk load: %w", err)
	}
	return nil
}

// Read implements Database.
func (s *SQLiteDB) Read(key request.Key) ([]byte, bool) {
	var v []byte
	err := s.readStmt.QueryRow(encodeKey(key)).Scan(&v)
	if err != nil {
		return nil, false
	}
	return v, true
}

// Insert implements Database.
func (s *SQLiteDB) Insert(key request.Key, value []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.insertStmt.Exec(encodeKey(key), value)
	return err == nil
}

// Update implements Database.
func (s *SQLiteDB) Update(key request.Key, value []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.updateStmt.Exec(value, encodeKey(key))
	if err != nil {
		return false
	}
	n, err := res.RowsAffected()
	return err == nil && n > 0
}

// Delete implements Database.
func (s *SQLiteDB) Delete(key request.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.deleteStmt.Exec(encodeKey(key))
	if err != nil {
		return false
	}
	n, err := res.RowsAffected()
	return err == nil && n > 0
}

// Scan implements Database.
func (s *SQLiteDB) Scan(start request.Key, amount uint32) ([]KV, bool) {
	rows, err := s.scanStmt.Query(encodeKey(start), amount)
	if err != nil {
		return nil, false
	}
	defer rows.Close()

	out := make([]KV, 0, amount)
	for rows.Next() {
		var k, v []byte
		if err := rows.Scan(&k, &v); err != nil {
			return nil, false
		}
		out = append(out, KV{Key: request.Key(binary.BigEndian.Uint64(k)), Value: v})
	}
	if err := rows.Err(); err != nil {
		return nil, false
	}
	return out, true
}
