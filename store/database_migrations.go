// database_migrations.go - Datenbank-Schema-Migrationen
// Enthaelt: migrate(), Schema-Version-Handling

package store

import "fmt"

// migrate gleicht die gespeicherte schema_version mit currentSchemaVersion ab.
// Datenbanken einer neueren Version werden nicht angefasst.
func (db *database) migrate() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	switch {
	case version > currentSchemaVersion:
		return fmt.Errorf("schema version %d is newer than supported version %d", version, currentSchemaVersion)
	case version < currentSchemaVersion:
		return db.setSchemaVersion(currentSchemaVersion)
	}
	return nil
}

func (db *database) getSchemaVersion() (int, error) {
	var version int
	err := db.conn.QueryRow(`SELECT schema_version FROM settings WHERE id = 1`).Scan(&version)
	return version, err
}

func (db *database) setSchemaVersion(version int) error {
	if _, err := db.conn.Exec(`UPDATE settings SET schema_version = ?`, version); err != nil {
		return fmt.Errorf("update schema version: %w", err)
	}
	return nil
}
