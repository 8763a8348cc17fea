package display

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/inodb/metagenome/internal/metagenome"
)

// SchemaVersion is the snapshot layout written by SaveSnapshot. Version 1
// snapshots carried no display states.
const SchemaVersion = 2

// ErrNewerSnapshot is returned for snapshots written by a newer layout.
var ErrNewerSnapshot = errors.New("snapshot written by a newer version")

type snapshot struct {
	Version  int
	Genome   string
	Chrom    string
	Types    []metagenome.VariantType
	Options  Options
	Variants [alleles][]*metagenome.Variant
	States   [alleles][]DisplayState
}

// SaveSnapshot writes a list to w. Filters are not saved; their effect is
// kept in the display states.
func SaveSnapshot(w io.Writer, l *List) error {
	snap := snapshot{
		Version:  SchemaVersion,
		Genome:   l.Genome,
		Chrom:    l.Chrom,
		Types:    l.Types,
		Options:  l.opts,
		Variants: l.variants,
		States:   l.states,
	}
	if err := gob.NewEncoder(w).Encode(&snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a list written by SaveSnapshot. A snapshot of the
// current version is trusted as is; an older one only contributes its
// settings and the variants are regenerated from source. regenerated
// reports which path was taken.
func LoadSnapshot(r io.Reader, source Source) (l *List, regenerated bool, err error) {
	var snap snapshot
	if err := gob.NewDecoder(r).Decode(&snap); err != nil {
		return nil, false, fmt.Errorf("decode snapshot: %w", err)
	}

	switch {
	case snap.Version > SchemaVersion:
		return nil, false, fmt.Errorf("%w: version %d, supported %d", ErrNewerSnapshot, snap.Version, SchemaVersion)
	case snap.Version < SchemaVersion:
		l = NewList(source, snap.Genome, snap.Chrom, snap.Types...)
		l.opts = snap.Options
		if err := l.GenerateLists(); err != nil {
			return nil, false, fmt.Errorf("regenerate snapshot version %d: %w", snap.Version, err)
		}
		return l, true, nil
	}

	for a := range snap.Variants {
		if len(snap.States[a]) != len(snap.Variants[a]) {
			return nil, false, fmt.Errorf("decode snapshot: allele %d has %d variants and %d states",
				a, len(snap.Variants[a]), len(snap.States[a]))
		}
	}
	l = NewList(source, snap.Genome, snap.Chrom, snap.Types...)
	l.opts = snap.Options
	l.setVariants(snap.Variants)
	for a := range snap.States {
		copy(l.states[a], snap.States[a])
	}
	return l, false, nil
}

// WriteSnapshotFile writes a gzip-compressed snapshot to path.
func WriteSnapshotFile(path string, l *List) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	zw := gzip.NewWriter(f)
	if err := SaveSnapshot(zw, l); err != nil {
		zw.Close()
		f.Close()
		os.Remove(path)
		return err
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("compress snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	return nil
}

// ReadSnapshotFile reads a snapshot written by WriteSnapshotFile.
func ReadSnapshotFile(path string, source Source) (*List, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, false, fmt.Errorf("open snapshot: %w", err)
	}
	defer zr.Close()

	return LoadSnapshot(zr, source)
}
