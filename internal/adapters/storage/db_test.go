package storage

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// openTestDB creates an in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

// TestInitDB_Idempotent tests that re-running the schema keeps data.
// PRE: fresh in-memory database
// POST: second InitDB succeeds and existing rows survive
func TestInitDB_Idempotent(t *testing.T) {
	db := openTestDB(t)
	if err := InitDB(db); err != nil {
		t.Fatalf("first InitDB failed: %v", err)
	}
	if _, err := db.Exec("INSERT INTO document (collection, id, data) VALUES ('members', 'm1', '{\"name\":\"Mere\"}')"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := InitDB(db); err != nil {
		t.Fatalf("second InitDB failed: %v", err)
	}

	var name string
	err := db.QueryRow("SELECT json_extract(data, '$.name') FROM document WHERE id = 'm1'").Scan(&name)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if name != "Mere" {
		t.Errorf("name = %q, want Mere", name)
	}
}

// TestInitDB_RejectsInvalidJSON tests the document body constraint.
func TestInitDB_RejectsInvalidJSON(t *testing.T) {
	db := openTestDB(t)
	if err := InitDB(db); err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	_, err := db.Exec("INSERT INTO document (collection, id, data) VALUES ('members', 'm1', 'not json')")
	if err == nil {
		t.Error("expected CHECK constraint failure for invalid JSON")
	}
}

// TestOpen_Reopen tests that a file database keeps its rows across Open calls.
func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, err := db.Exec("INSERT INTO account (id, email, created_at) VALUES ('a1', 'a@b.nz', '2026-01-01T00:00:00Z')"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM account").Scan(&n); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 account after reopen, got %d", n)
	}
}
