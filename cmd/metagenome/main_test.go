package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/metagenome/internal/display"
	"github.com/inodb/metagenome/internal/duckdb"
	"github.com/inodb/metagenome/internal/metagenome"
)

func testdata(name string) string {
	return filepath.Join("..", "..", "internal", "ingest", "testdata", name)
}

// execute runs the root command with a clean configuration.
func execute(t *testing.T, args ...string) error {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	root := newRootCmd()
	root.SetArgs(args)
	return root.Execute()
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestSyncCmd(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	out := filepath.Join(t.TempDir(), "summary.tsv")
	require.NoError(t, execute(t, "sync", "-o", out, testdata("family.vcf"), testdata("child.vcf")))

	lines := readLines(t, out)
	assert.True(t, strings.HasPrefix(lines[0], "#Chrom"))
	assert.Contains(t, lines, "1\tMOTHER\t2000\t2008\t8\t-\t-\t-")
	assert.Contains(t, lines, "1\tFATHER\t2000\t2008\t0\t-\t-\t-")
	assert.Contains(t, lines, "1\tCHILD\t2000\t2008\t1\t-\t-\t-")

	var chromRows []string
	for _, l := range lines {
		if strings.Contains(l, "\t*\t") {
			chromRows = append(chromRows, l)
		}
	}
	require.Len(t, chromRows, 2)
	assert.True(t, strings.HasPrefix(chromRows[0], "1\t*\t2000\t2008\t8\t"))
	assert.True(t, strings.HasPrefix(chromRows[1], "3\t*\t21\t21\t0\t"))
}

func TestSyncCmd_MissingFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	err := execute(t, "sync", filepath.Join(t.TempDir(), "missing.vcf"))
	assert.Error(t, err)
}

func TestViewCmd(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()

	t.Run("one item per variant", func(t *testing.T) {
		out := filepath.Join(dir, "view.tsv")
		require.NoError(t, execute(t, "view", "--chrom", "chr1", "--genome", "MOTHER", "--allele", "1",
			"-o", out, testdata("family.vcf")))

		lines := readLines(t, out)
		assert.True(t, strings.HasPrefix(lines[0], "#Genome"))
		var types []string
		for _, l := range lines[1:] {
			fields := strings.Split(l, "\t")
			assert.Equal(t, "MOTHER", fields[0])
			assert.Equal(t, "1", fields[2])
			types = append(types, fields[3])
		}
		assert.Contains(t, types, "INSERTION")
		assert.Contains(t, types, "DELETION")
		assert.NotContains(t, types, "MIX")
	})

	t.Run("zoomed out merges", func(t *testing.T) {
		out := filepath.Join(dir, "mix.tsv")
		require.NoError(t, execute(t, "view", "--chrom", "1", "--genome", "MOTHER", "--allele", "1",
			"--ratio", "0.001", "-o", out, testdata("family.vcf")))
		assert.Contains(t, strings.Join(readLines(t, out), "\n"), "\tMIX\t")
	})

	t.Run("snapshots are written", func(t *testing.T) {
		snaps := filepath.Join(dir, "snaps")
		out := filepath.Join(dir, "snap.tsv")
		args := []string{"view", "--chrom", "1", "--genome", "FATHER", "--snapshots", snaps, "-o", out, testdata("family.vcf")}
		require.NoError(t, execute(t, args...))
		first := readLines(t, out)
		assert.FileExists(t, filepath.Join(snaps, "FATHER.1.snap.gz"))

		require.NoError(t, execute(t, args...))
		assert.Equal(t, first, readLines(t, out))
	})

	t.Run("corrupt snapshot is rebuilt", func(t *testing.T) {
		snaps := filepath.Join(dir, "corrupt")
		require.NoError(t, os.MkdirAll(snaps, 0755))
		path := filepath.Join(snaps, "FATHER.1.snap.gz")
		require.NoError(t, os.WriteFile(path, []byte("not a snapshot"), 0644))

		out := filepath.Join(dir, "corrupt.tsv")
		require.NoError(t, execute(t, "view", "--chrom", "1", "--genome", "FATHER", "--snapshots", snaps,
			"-o", out, testdata("family.vcf")))
		assert.NotEmpty(t, readLines(t, out))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotEqual(t, "not a snapshot", string(data), "snapshot overwritten")
		assert.Equal(t, []byte{0x1f, 0x8b}, data[:2], "gzip stream")
	})

	t.Run("default window reaches the last base", func(t *testing.T) {
		vcfPath := filepath.Join(dir, "edge.vcf")
		require.NoError(t, os.WriteFile(vcfPath, []byte(strings.Join([]string{
			"##fileformat=VCFv4.2",
			"##contig=<ID=1,length=200>",
			"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tA\tB",
			"1\t100\t.\tA\tATTT\t50\tPASS\t.\tGT\t0/1\t0/0",
			"1\t200\t.\tC\tT\t50\tPASS\t.\tGT\t0/0\t0/1",
		}, "\n")+"\n"), 0644))

		out := filepath.Join(dir, "edge.tsv")
		require.NoError(t, execute(t, "view", "--chrom", "1", "--genome", "B", "--allele", "1",
			"--type", "SNP", "-o", out, vcfPath))

		lines := readLines(t, out)
		require.Len(t, lines, 2)
		fields := strings.Split(lines[1], "\t")
		assert.Equal(t, "SNP", fields[3])
		assert.Equal(t, "203", fields[4])
	})

	t.Run("bad allele", func(t *testing.T) {
		err := execute(t, "view", "--chrom", "1", "--allele", "2", testdata("family.vcf"))
		var ue *usageError
		assert.ErrorAs(t, err, &ue)
	})

	t.Run("unusable ratio", func(t *testing.T) {
		for _, r := range []string{"0", "-1", "NaN", "+Inf"} {
			err := execute(t, "view", "--chrom", "1", "--ratio", r, testdata("family.vcf"))
			var ue *usageError
			assert.ErrorAs(t, err, &ue, "ratio %s", r)
		}
	})

	t.Run("unknown chromosome", func(t *testing.T) {
		err := execute(t, "view", "--chrom", "9", testdata("family.vcf"))
		assert.ErrorIs(t, err, metagenome.ErrNotSynchronized)
	})
}

func TestExportCmd(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	db := filepath.Join(t.TempDir(), "family.duckdb")
	require.NoError(t, execute(t, "export", "-o", db, testdata("family.vcf")))
	// Same unchanged file: reused.
	require.NoError(t, execute(t, "export", "-o", db, testdata("family.vcf")))

	store, err := duckdb.Open(db)
	require.NoError(t, err)
	runs, err := store.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, []string{"MOTHER", "FATHER"}, runs[0].Genomes)

	n, err := store.MetaLength(runs[0].ID, "1")
	require.NoError(t, err)
	assert.Equal(t, int64(2008), n)
	require.NoError(t, store.Close())

	require.NoError(t, execute(t, "export", "--force", "-o", db, testdata("family.vcf")))
	store, err = duckdb.Open(db)
	require.NoError(t, err)
	defer store.Close()
	runs, err = store.Runs()
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestConfigSet(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.NoError(t, execute(t, "config", "set", "view.ratio", "0.05"))
	require.NoError(t, execute(t, "config", "set", "display.pass_only", "yes"))

	data, err := os.ReadFile(filepath.Join(home, ".metagenome.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "ratio: 0.05")
	assert.Contains(t, string(data), "pass_only: true")

	err = execute(t, "config", "set", "ingest.workers", "many")
	assert.Error(t, err)
}

func TestParseConfigValue(t *testing.T) {
	tests := []struct {
		key, value string
		want       any
		wantErr    bool
	}{
		{"view.ratio", "0.5", 0.5, false},
		{"ingest.workers", "4", 4, false},
		{"ingest.workers", "4.5", nil, true},
		{"display.show_reference", "off", false, false},
		{"custom.name", "abc", "abc", false},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			got, err := parseConfigValue(tt.key, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildFilters(t *testing.T) {
	filters, err := buildFilters(20, true, []string{"DP=9"})
	require.NoError(t, err)
	assert.Equal(t, []display.Filter{
		display.QualityFilter{Min: 20},
		display.PassFilter{},
		display.FieldFilter{Key: "DP", Value: "9"},
	}, filters)

	filters, err = buildFilters(0, false, nil)
	require.NoError(t, err)
	assert.Empty(t, filters)

	_, err = buildFilters(0, false, []string{"DP"})
	assert.Error(t, err)
}

func TestParseTypes(t *testing.T) {
	types, err := parseTypes([]string{"snp", " Insertion "})
	require.NoError(t, err)
	assert.Equal(t, []metagenome.VariantType{metagenome.SNP, metagenome.Insertion}, types)

	_, err = parseTypes([]string{"inversion"})
	assert.Error(t, err)
}
