// Modul: store.go
// Beschreibung: Verlauf der Auswertungen in SQLite (ARKCHECK_DB).
// Die Datenbank wird beim ersten Zugriff geoeffnet.

package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/arkcheck/arkcheck/accuracy"
	"github.com/arkcheck/arkcheck/envconfig"
)

var ErrRunNotFound = errors.New("store: run not found")

// Run ist eine gespeicherte Auswertung
type Run struct {
	ID            string          `json:"id"`
	Model         string          `json:"model"`
	Backend       string          `json:"backend"`
	Prefer        string          `json:"prefer"`
	Report        accuracy.Report `json:"report"`
	RMSSpread     accuracy.Spread `json:"rmsSpread"`
	LatencyMeanMS float64         `json:"latencyMeanMs"`
	LatencyP95MS  float64         `json:"latencyP95Ms"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type Store struct {
	// DBPath ueberschreibt envconfig.HistoryDB (vor allem fuer Tests)
	DBPath string

	// dbMu schuetzt nur die Initialisierung
	dbMu sync.Mutex
	db   *database
}

func (s *Store) ensureDB() error {
	s.dbMu.Lock()
	defer s.dbMu.Unlock()

	if s.db != nil {
		return nil
	}

	dbPath := s.DBPath
	if dbPath == "" {
		dbPath = envconfig.HistoryDB()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}

	database, err := newDatabase(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	s.db = database
	return nil
}

// SaveRun speichert r. Ein leerer Zeitstempel wird auf jetzt gesetzt.
func (s *Store) SaveRun(r Run) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	if r.ID == "" {
		return errors.New("store: run id is required")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	return s.db.saveRun(r)
}

// Runs gibt die letzten limit Runs zurueck, neueste zuerst. limit <= 0 heisst alle.
func (s *Store) Runs(limit int) ([]Run, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	return s.db.getRuns(limit)
}

func (s *Store) Run(id string) (Run, error) {
	if err := s.ensureDB(); err != nil {
		return Run{}, err
	}
	return s.db.getRun(id)
}

func (s *Store) DeleteRun(id string) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	return s.db.deleteRun(id)
}

func (s *Store) Close() error {
	s.dbMu.Lock()
	defer s.dbMu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
