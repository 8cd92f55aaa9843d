// database_core.go - Kern-Datenbank-Funktionen
// Enthaelt: database struct, newDatabase, Close, init, Hilfsfunktionen

package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite-Treiber registrieren
)

// currentSchemaVersion wird bei Schema-Aenderungen erhoeht, die Migrationen erfordern
const currentSchemaVersion = 1

// database umhuellt die SQLite-Verbindung. SQLite serialisiert Schreiber
// selbst, WAL-Modus laesst Leser parallel laufen.
type database struct {
	conn *sql.DB
}

// newDatabase erstellt eine neue Datenbankverbindung
func newDatabase(dbPath string) (*database, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := &database{conn: conn}
	if err := db.init(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	return db, nil
}

// Close schliesst die Datenbankverbindung
func (db *database) Close() error {
	_, _ = db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE);")
	return db.conn.Close()
}

// init legt das Schema an. Bestehende Datenbanken behalten ihre
// schema_version und werden danach migriert.
func (db *database) init() error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		schema_version INTEGER NOT NULL DEFAULT %d
	);

	INSERT OR IGNORE INTO settings (id) VALUES (1);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		backend TEXT NOT NULL DEFAULT '',
		prefer TEXT NOT NULL DEFAULT '',
		frames INTEGER NOT NULL DEFAULT 0,
		num_errors INTEGER NOT NULL DEFAULT 0,
		num_scores INTEGER NOT NULL DEFAULT 0,
		max_error REAL NOT NULL DEFAULT 0,
		avg_error REAL NOT NULL DEFAULT 0,
		avg_rms REAL NOT NULL DEFAULT 0,
		std_dev REAL NOT NULL DEFAULT 0,
		max_rel_error REAL NOT NULL DEFAULT 0,
		avg_rel_error REAL NOT NULL DEFAULT 0,
		latency_mean_ms REAL NOT NULL DEFAULT 0,
		latency_p95_ms REAL NOT NULL DEFAULT 0,
		rms_p50 REAL NOT NULL DEFAULT 0,
		rms_p95 REAL NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`, currentSchemaVersion)

	if _, err := db.conn.Exec(schema); err != nil {
		return err
	}

	if err := db.migrate(); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
