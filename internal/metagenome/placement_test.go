package metagenome

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// placementProject: A inserts 3 bases after reference 100 on allele 0,
// B deletes reference 100-101 on allele 1.
func placementProject(t *testing.T) *Project {
	t.Helper()
	p := newTestProject(t, 1000, "A", "B")
	add(t, p, "A", Observation{Pos: 100, Type: Insertion, Length: 3, Call: &Call{Filter: "PASS", Quality: 40}})
	add(t, p, "B", Observation{Pos: 99, Allele: 1, Type: Deletion, Length: -2})
	_, err := p.Compute("1")
	require.NoError(t, err)
	return p
}

func TestPlaced_Insertion(t *testing.T) {
	p := placementProject(t)

	placed, err := p.Placed("A", "1")
	require.NoError(t, err)

	require.Len(t, placed[0], 1)
	ins := placed[0][0]
	assert.Equal(t, Insertion, ins.Type)
	assert.Equal(t, int64(101), ins.Start)
	assert.Equal(t, int64(104), ins.Stop)
	assert.Equal(t, ins.Length, ins.Stop-ins.Start)
	assert.Equal(t, int64(0), ins.ExtraOffset)
	q, ok := ins.Quality()
	assert.True(t, ok)
	assert.Equal(t, 40.0, q)

	require.Len(t, placed[1], 1, "the other allele is padded")
	blank := placed[1][0]
	assert.Equal(t, Blank, blank.Type)
	assert.Equal(t, int64(101), blank.Start)
	assert.Equal(t, int64(104), blank.Stop)
	assert.Nil(t, blank.Call)
}

func TestPlaced_DeletionSpansPadding(t *testing.T) {
	p := placementProject(t)

	placed, err := p.Placed("B", "1")
	require.NoError(t, err)

	require.Len(t, placed[1], 2)

	del := placed[1][0]
	assert.Equal(t, Deletion, del.Type)
	assert.Equal(t, int64(100), del.Start, "first deleted base")
	assert.Equal(t, int64(105), del.Stop, "covers the padding of 100 and base 101")

	blank := placed[1][1]
	assert.Equal(t, Blank, blank.Type)
	assert.Equal(t, int64(101), blank.Start)

	require.Len(t, placed[0], 1, "blank entry pads both alleles")
	assert.Equal(t, Blank, placed[0][0].Type)
}

func TestPlaced_DeadZone(t *testing.T) {
	p := newTestProject(t, 100, "A", "B")
	add(t, p, "A", Observation{Pos: 10, Type: Insertion, Length: 6})
	add(t, p, "B", Observation{Pos: 10, Type: Insertion, Length: 2})
	_, err := p.Compute("1")
	require.NoError(t, err)

	placed, err := p.Placed("B", "1")
	require.NoError(t, err)
	ins := placed[0][0]
	assert.Equal(t, int64(4), ins.ExtraOffset)
	start, stop := ins.DeadZone()
	assert.Equal(t, int64(13), start)
	assert.Equal(t, int64(17), stop)
}

func TestPlaced_NotSynchronized(t *testing.T) {
	p := newTestProject(t, 100, "A")
	add(t, p, "A", Observation{Pos: 10, Type: SNP})

	_, err := p.Placed("A", "1")
	assert.ErrorIs(t, err, ErrNotSynchronized)

	_, err = p.Placed("nobody", "1")
	assert.ErrorIs(t, err, ErrUnknownGenome)
}

func TestCoordinateConversion(t *testing.T) {
	p := placementProject(t)

	tests := []struct {
		ref  int64
		meta int64
	}{
		{1, 1},
		{99, 99},
		{100, 100},
		{101, 104},
		{1000, 1003},
	}
	for _, tt := range tests {
		got, err := p.MetaPosition("1", tt.ref)
		require.NoError(t, err)
		assert.Equal(t, tt.meta, got, "meta of %d", tt.ref)

		back, exact, err := p.ReferencePosition("1", tt.meta)
		require.NoError(t, err)
		assert.True(t, exact)
		assert.Equal(t, tt.ref, back)
	}

	ref, exact, err := p.ReferencePosition("1", 102)
	require.NoError(t, err)
	assert.False(t, exact, "inside insertion padding")
	assert.Equal(t, int64(100), ref)

	_, err = p.MetaPosition("1", 1001)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, _, err = p.ReferencePosition("1", 1004)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestGenomePosition(t *testing.T) {
	p := placementProject(t)

	pos, err := p.GenomePosition("A", 0, "1", 101)
	require.NoError(t, err)
	assert.Equal(t, int64(104), pos)

	pos, err = p.GenomePosition("A", 1, "1", 101)
	require.NoError(t, err)
	assert.Equal(t, int64(101), pos)

	pos, err = p.GenomePosition("B", 1, "1", 150)
	require.NoError(t, err)
	assert.Equal(t, int64(148), pos)

	pos, err = p.GenomePosition("B", 1, "1", 99)
	require.NoError(t, err)
	assert.Equal(t, int64(99), pos)

	_, err = p.GenomePosition("B", 2, "1", 99)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestVariantType_String(t *testing.T) {
	for _, typ := range []VariantType{Insertion, Deletion, SNP, Structural, Blank, Mix, Reference} {
		parsed, err := ParseVariantType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, parsed)
	}
	_, err := ParseVariantType("INDEL")
	assert.Error(t, err)
	assert.Equal(t, "VariantType(42)", VariantType(42).String())
}
