package duckdb

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Run is one export of a project.
type Run struct {
	ID        string
	CreatedAt time.Time
	Genomes   []string
	Files     []FileFingerprint
}

// NewRun records a new export run and returns its identifier.
func (s *Store) NewRun(genomes []string, files []FileFingerprint) (string, error) {
	id := uuid.NewString()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRow(`SELECT coalesce(max(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return "", fmt.Errorf("next run sequence: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO runs (run_id, seq, created_at, genomes) VALUES (?, ?, ?, ?)`,
		id, seq, time.Now().UTC(), strings.Join(genomes, ",")); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	for _, f := range files {
		if _, err := tx.Exec(`INSERT INTO run_files (run_id, path, size, mod_time) VALUES (?, ?, ?, ?)`,
			id, f.Path, f.Size, f.ModTime.UTC()); err != nil {
			return "", fmt.Errorf("insert run file: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	return id, nil
}

// Runs returns every run, oldest first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`SELECT run_id, created_at, genomes FROM runs ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var genomes string
		if err := rows.Scan(&r.ID, &r.CreatedAt, &genomes); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if genomes != "" {
			r.Genomes = strings.Split(genomes, ",")
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i := range runs {
		files, err := s.runFiles(runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Files = files
	}
	return runs, nil
}

func (s *Store) runFiles(id string) ([]FileFingerprint, error) {
	rows, err := s.db.Query(`SELECT path, size, mod_time FROM run_files WHERE run_id = ? ORDER BY path`, id)
	if err != nil {
		return nil, fmt.Errorf("query run files: %w", err)
	}
	defer rows.Close()

	var files []FileFingerprint
	for rows.Next() {
		var f FileFingerprint
		if err := rows.Scan(&f.Path, &f.Size, &f.ModTime); err != nil {
			return nil, fmt.Errorf("scan run file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run files: %w", err)
	}
	return files, nil
}

// FindRun returns the newest run exported from exactly the given files,
// unchanged since.
func (s *Store) FindRun(files []FileFingerprint) (string, bool, error) {
	runs, err := s.Runs()
	if err != nil {
		return "", false, err
	}
	for i := len(runs) - 1; i >= 0; i-- {
		if sameFiles(runs[i].Files, files) {
			return runs[i].ID, true, nil
		}
	}
	return "", false, nil
}

func sameFiles(stored, current []FileFingerprint) bool {
	if len(stored) != len(current) {
		return false
	}
	byPath := make(map[string]FileFingerprint, len(stored))
	for _, f := range stored {
		byPath[f.Path] = f
	}
	for _, f := range current {
		if st, ok := byPath[f.Path]; !ok || !st.matches(f) {
			return false
		}
	}
	return true
}

// DeleteRun removes a run and everything exported under it.
func (s *Store) DeleteRun(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete run: %w", err)
	}
	defer tx.Rollback()

	for _, t := range []string{"runs", "run_files", "tracks", "offsets", "meta_lengths"} {
		if _, err := tx.Exec("DELETE FROM "+t+" WHERE run_id = ?", id); err != nil {
			return fmt.Errorf("delete run from %s: %w", t, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete run: %w", err)
	}
	return nil
}
