package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

func (fp FileFingerprint) modTime() string {
	return fp.ModTime.UTC().Format(time.RFC3339Nano)
}

// SourceLoaded reports whether a file with the same path, size and
// modification time has already been loaded.
func (s *Store) SourceLoaded(fp FileFingerprint) (bool, error) {
	var size int64
	var modTime string
	err := s.db.QueryRow(`SELECT size, mod_time FROM sources WHERE path=?`, fp.Path).Scan(&size, &modTime)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query source: %w", err)
	}
	return size == fp.Size && modTime == fp.modTime(), nil
}

// RecordSource stores the fingerprint of a loaded file under a fresh load id,
// which it returns.
func (s *Store) RecordSource(fp FileFingerprint, records int64) (string, error) {
	if _, err := s.db.Exec(`DELETE FROM sources WHERE path=?`, fp.Path); err != nil {
		return "", fmt.Errorf("clear source: %w", err)
	}
	id := uuid.NewString()
	_, err := s.db.Exec(`INSERT INTO sources VALUES (?, ?, ?, ?, ?)`,
		fp.Path, id, fp.Size, fp.modTime(), records)
	if err != nil {
		return "", fmt.Errorf("record source: %w", err)
	}
	return id, nil
}
