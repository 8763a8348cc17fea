package vcf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_Cohort(t *testing.T) {
	testFile := findTestFile(t, "cohort.vcf")

	parser, err := NewParser(testFile)
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}
	defer parser.Close()

	if got := parser.SampleNames(); len(got) != 2 || got[0] != "NA001" || got[1] != "NA002" {
		t.Fatalf("unexpected sample names: %v", got)
	}

	v, err := parser.Next()
	if err != nil {
		t.Fatalf("Failed to read variant: %v", err)
	}
	if v == nil {
		t.Fatal("Expected a variant, got nil")
	}

	if v.Chrom != "1" {
		t.Errorf("Expected chrom 1, got %s", v.Chrom)
	}
	if v.Pos != 100 {
		t.Errorf("Expected pos 100, got %d", v.Pos)
	}
	if v.Ref != "A" || v.Alt != "ATTT" {
		t.Errorf("Expected A>ATTT, got %s>%s", v.Ref, v.Alt)
	}
	if v.SampleField(0, "DP") != "20" {
		t.Errorf("Expected DP 20, got %q", v.SampleField(0, "DP"))
	}

	gt, err := v.Genotype(1)
	if err != nil {
		t.Fatalf("Failed to parse genotype: %v", err)
	}
	if !gt.IsHomozygousReference() {
		t.Errorf("Expected NA002 to be 0/0, got %s", gt)
	}

	count := 1
	for {
		v, err := parser.Next()
		if err != nil {
			t.Fatalf("Error reading variant: %v", err)
		}
		if v == nil {
			break
		}
		count++
	}

	if count != 5 {
		t.Errorf("Expected 5 variants, got %d", count)
	}
}

func TestParser_Contigs(t *testing.T) {
	parser, err := NewParser(findTestFile(t, "cohort.vcf"))
	require.NoError(t, err)
	defer parser.Close()

	assert.Equal(t, []Contig{{Name: "1", Length: 1000}, {Name: "2", Length: 500}}, parser.Contigs())
}

func TestParser_SitesOnly(t *testing.T) {
	parser, err := NewParser(findTestFile(t, "sites_only.vcf"))
	require.NoError(t, err)
	defer parser.Close()

	assert.Nil(t, parser.SampleNames())
	v, err := parser.Next()
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 0.0, v.Qual)
	assert.Equal(t, 0, v.NumSamples())
	assert.Nil(t, v.SampleFields(0))
}

func TestParser_Gzip(t *testing.T) {
	raw, err := os.ReadFile(findTestFile(t, "cohort.vcf"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "cohort.vcf.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	parser, err := NewParser(path)
	require.NoError(t, err)
	defer parser.Close()

	n := 0
	for {
		v, err := parser.Next()
		require.NoError(t, err)
		if v == nil {
			break
		}
		n++
	}
	assert.Equal(t, 5, n)
}

func TestParser_FromReader(t *testing.T) {
	input := "##fileformat=VCFv4.2\n" +
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tS1\n" +
		"1\t7\t.\tA\tC\t9\tPASS\tDP=3\tGT\t1/1"

	parser, err := NewParserFromReader(strings.NewReader(input))
	require.NoError(t, err)

	v, err := parser.Next()
	require.NoError(t, err)
	require.NotNil(t, v, "last line without newline must still be read")
	assert.Equal(t, int64(7), v.Pos)
	assert.Equal(t, map[string]string{"GT": "1/1"}, v.SampleFields(0))

	v, err = parser.Next()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestParser_InvalidPosition(t *testing.T) {
	input := "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n" +
		"1\tabc\t.\tA\tC\t.\t.\t.\n"

	parser, err := NewParserFromReader(strings.NewReader(input))
	require.NoError(t, err)

	_, err = parser.Next()
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Line)
}

func TestParser_MissingHeader(t *testing.T) {
	_, err := NewParserFromReader(strings.NewReader("1\t100\t.\tA\tC\t.\t.\t.\n"))
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Message, "#CHROM")
}

func TestParseError(t *testing.T) {
	err := &ParseError{
		Line:    42,
		Message: "expected 8 columns, found 7",
	}

	expected := "vcf parse error at line 42: expected 8 columns, found 7"
	if err.Error() != expected {
		t.Errorf("Error message mismatch: got %q, want %q", err.Error(), expected)
	}
}

// findTestFile locates a test file in the testdata directory.
func findTestFile(t *testing.T, name string) string {
	t.Helper()

	paths := []string{
		filepath.Join("testdata", name),
		filepath.Join("..", "vcf", "testdata", name),
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	t.Fatalf("Test file not found: %s", name)
	return ""
}
