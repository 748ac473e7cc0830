package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Backup writes a consistent point-in-time copy of the open database to
// destPath using VACUUM INTO, which is safe under WAL mode with readers and
// writers active. The destination must not already exist; VACUUM INTO
// refuses to overwrite.
func (s *Store) Backup(destPath string) error {
	if strings.ContainsAny(destPath, "'") {
		return fmt.Errorf("sqlite: backup path must not contain quotes")
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o700); err != nil {
		return fmt.Errorf("sqlite: create backup dir: %w", err)
	}
	if _, err := os.Stat(destPath); err == nil {
		return fmt.Errorf("sqlite: backup target %s already exists", destPath)
	}
	if _, err := s.db.Exec(fmt.Sprintf("VACUUM INTO '%s'", destPath)); err != nil {
		return fmt.Errorf("sqlite: backup to %s: %w", destPath, err)
	}
	return nil
}

// BackupTimestamped writes a backup named grist-YYYYMMDD-HHMMSS.db into dir
// and returns the path written.
func (s *Store) BackupTimestamped(dir string) (string, error) {
	name := fmt.Sprintf("grist-%s.db", time.Now().Format("20060102-150405"))
	dest := filepath.Join(dir, name)
	if err := s.Backup(dest); err != nil {
		return "", err
	}
	return dest, nil
}

// VerifyBackup opens a backup file read-only and runs an integrity check.
func VerifyBackup(backupPath string) error {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", backupPath))
	if err != nil {
		return fmt.Errorf("sqlite: open backup: %w", err)
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("sqlite: integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("sqlite: integrity check failed: %s", result)
	}
	return nil
}
