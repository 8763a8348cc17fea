package duckdb

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/metagenome/internal/metagenome"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// syncedProject: A inserts 3 bases after 100, B has a SNP at 105.
func syncedProject(t *testing.T) *metagenome.Project {
	t.Helper()
	p, err := metagenome.NewProject([]string{"A", "B"})
	require.NoError(t, err)
	p.AddChromosome("1", 1000)
	require.NoError(t, p.Add("A", metagenome.Observation{Chrom: "1", Pos: 100, Type: metagenome.Insertion, Length: 3,
		Call: &metagenome.Call{Filter: "PASS", Quality: 50, Genotype: "1/0"}}))
	require.NoError(t, p.Add("B", metagenome.Observation{Chrom: "1", Pos: 105, Type: metagenome.SNP,
		Call: &metagenome.Call{Filter: "LowQual", Quality: 9, Genotype: "1|0"}}))
	_, err = p.Compute("1")
	require.NoError(t, err)
	return p
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())

	v, err := s.Version()
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, v)
}

func TestExportChromosome(t *testing.T) {
	s := openInMemory(t)
	p := syncedProject(t)

	run, err := s.NewRun(p.Genomes(), nil)
	require.NoError(t, err)
	require.NoError(t, s.ExportChromosome(run, p, "1"))

	n, err := s.MetaLength(run, "1")
	require.NoError(t, err)
	assert.Equal(t, int64(1003), n)

	vs, err := s.QueryWindow(run, "A", "1", 0, 0, 1000)
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, metagenome.Insertion, vs[0].Type)
	assert.Equal(t, int64(101), vs[0].Start)
	assert.Equal(t, int64(104), vs[0].Stop)
	require.NotNil(t, vs[0].Call)
	assert.Equal(t, "1/0", vs[0].Call.Genotype)

	vs, err = s.QueryWindow(run, "B", "1", 0, 104, 200)
	require.NoError(t, err)
	require.Len(t, vs, 1, "the blank at [101,104) ends before the window")
	assert.Equal(t, metagenome.SNP, vs[0].Type)
	assert.Equal(t, int64(108), vs[0].Start)
	assert.Equal(t, 9.0, vs[0].Call.Quality)

	vs, err = s.QueryWindow(run, "B", "1", 1, 0, 1000)
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, metagenome.Blank, vs[0].Type)
	assert.Nil(t, vs[0].Call)

	ref, err := s.Offsets(run, "", "1")
	require.NoError(t, err)
	res, _ := p.Result("1")
	assert.Equal(t, res.ReferenceOffsets, ref)

	b, err := s.Offsets(run, "B", "1")
	require.NoError(t, err)
	assert.Equal(t, res.Offsets["B"], b)
}

func TestExportChromosome_NotSynchronized(t *testing.T) {
	s := openInMemory(t)
	p, err := metagenome.NewProject([]string{"A"})
	require.NoError(t, err)
	p.AddChromosome("1", 10)

	err = s.ExportChromosome("run", p, "1")
	assert.ErrorIs(t, err, metagenome.ErrNotSynchronized)

	_, err = s.MetaLength("run", "1")
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestDeleteRun_RemovesExport(t *testing.T) {
	s := openInMemory(t)
	p := syncedProject(t)

	run, err := s.NewRun(p.Genomes(), nil)
	require.NoError(t, err)
	require.NoError(t, s.ExportChromosome(run, p, "1"))
	kept, err := s.NewRun(p.Genomes(), nil)
	require.NoError(t, err)
	require.NoError(t, s.ExportChromosome(kept, p, "1"))

	require.NoError(t, s.DeleteRun(run))

	_, err = s.MetaLength(run, "1")
	assert.ErrorIs(t, err, ErrNoResult)
	vs, err := s.QueryWindow(run, "A", "1", 0, 0, 1000)
	require.NoError(t, err)
	assert.Empty(t, vs)
	ref, err := s.Offsets(run, "", "1")
	require.NoError(t, err)
	assert.Empty(t, ref)

	n, err := s.MetaLength(kept, "1")
	require.NoError(t, err)
	assert.Equal(t, int64(1003), n, "other runs untouched")

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, kept, runs[0].ID)
}

func TestWriteOffsets_Overwrite(t *testing.T) {
	s := openInMemory(t)
	res := &metagenome.SyncResult{Chromosome: "2", RefLength: 50, MetaLength: 55}
	require.NoError(t, s.WriteOffsets("r", res))
	res.MetaLength = 60
	require.NoError(t, s.WriteOffsets("r", res))

	n, err := s.MetaLength("r", "2")
	require.NoError(t, err)
	assert.Equal(t, int64(60), n)
}

func TestRuns(t *testing.T) {
	s := openInMemory(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "a.vcf")
	require.NoError(t, os.WriteFile(path, []byte("#CHROM\n"), 0644))
	files, err := StatFiles([]string{path})
	require.NoError(t, err)

	first, err := s.NewRun([]string{"A", "B"}, files)
	require.NoError(t, err)
	second, err := s.NewRun([]string{"A", "B"}, files)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, []string{"A", "B"}, runs[0].Genomes)
	require.Len(t, runs[0].Files, 1)
	assert.Equal(t, int64(7), runs[0].Files[0].Size)

	id, ok, err := s.FindRun(files)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, second, id, "newest matching run")

	// A touched file no longer matches.
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))
	touched, err := StatFiles([]string{path})
	require.NoError(t, err)
	_, ok, err = s.FindRun(touched)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.DeleteRun(second))
	runs, err = s.Runs()
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	_, err = StatFiles([]string{filepath.Join(dir, "missing.vcf")})
	assert.Error(t, err)
}

func TestOpen_OlderSchemaIsRecreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "export.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.NewRun([]string{"A"}, nil)
	require.NoError(t, err)
	_, err = s.DB().Exec(`UPDATE schema_info SET value = '1' WHERE key = 'schema_version'`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.Runs()
	require.NoError(t, err)
	assert.Empty(t, runs, "derived data is dropped")
	v, err := s.Version()
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, v)
}

func TestOpen_NewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.DB().Exec(`UPDATE schema_info SET value = '99' WHERE key = 'schema_version'`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path)
	assert.ErrorIs(t, err, ErrNewerSchema)
}
