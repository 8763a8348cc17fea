package duckdb

import (
	"os"
	"time"
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

// StatFiles fingerprints every input file of a run.
func StatFiles(paths []string) ([]FileFingerprint, error) {
	out := make([]FileFingerprint, 0, len(paths))
	for _, p := range paths {
		fp, err := StatFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, fp)
	}
	return out, nil
}

// matches compares fingerprints at the microsecond precision of a TIMESTAMP column.
func (f FileFingerprint) matches(o FileFingerprint) bool {
	return f.Path == o.Path && f.Size == o.Size &&
		f.ModTime.Truncate(time.Microsecond).Equal(o.ModTime.Truncate(time.Microsecond))
}
