package metagenome

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionTracker_KeepsAscendingOrder(t *testing.T) {
	tr := NewPositionTracker()
	for _, pos := range []int64{50, 10, 30, 70, 10, 20} {
		tr.Ensure(pos)
	}

	assert.Equal(t, []int64{10, 20, 30, 50, 70}, tr.Positions())
	assert.Equal(t, 5, tr.Len())
	assert.Equal(t, int64(70), tr.LastPosition())
	assert.Equal(t, int64(30), tr.At(2).RefPos)
}

func TestPositionTracker_AddOccupiedAllele(t *testing.T) {
	tr := NewPositionTracker()
	require.True(t, tr.Add(100, 0, &Event{Type: SNP}))
	assert.True(t, tr.Add(100, 1, &Event{Type: Insertion, Length: 2}))
	assert.False(t, tr.Add(100, 0, &Event{Type: Deletion, Length: -1}))

	e := tr.Get(100)
	require.NotNil(t, e)
	assert.Equal(t, SNP, e.Events[0].Type)
	assert.Equal(t, int64(0), e.InsertionLength(0))
	assert.Equal(t, int64(2), e.InsertionLength(1))
	assert.True(t, e.HasEvents())
}

func TestPositionTracker_Floor(t *testing.T) {
	tr := NewPositionTracker()
	tr.Ensure(10)
	tr.Ensure(20)

	assert.Nil(t, tr.Floor(9))
	assert.Equal(t, int64(10), tr.Floor(10).RefPos)
	assert.Equal(t, int64(10), tr.Floor(19).RefPos)
	assert.Equal(t, int64(20), tr.Floor(1000).RefPos)
}

func TestPositionTracker_Cursor(t *testing.T) {
	tr := NewPositionTracker()
	tr.Ensure(10).NextMetaOffset = 4
	tr.Ensure(20)

	assert.Nil(t, tr.Previous())

	first := tr.Get(10)
	tr.chain(first)
	assert.Equal(t, int64(0), first.InitialMetaOffset, "first entry starts from zero")
	tr.advance(10)
	assert.Same(t, first, tr.Previous())

	tr.advance(15) // no entry, cursor stays
	assert.Same(t, first, tr.Previous())

	second := tr.Get(20)
	tr.chain(second)
	assert.Equal(t, int64(4), second.InitialMetaOffset)

	tr.Rewind()
	assert.Nil(t, tr.Previous())
}

func TestPositionTracker_ResetDropsSynthesized(t *testing.T) {
	tr := NewPositionTracker()
	tr.Add(10, 0, &Event{Type: Insertion, Length: 1, ExtraOffset: 3})
	blank := tr.Ensure(20)
	blank.Synthesized = true
	blank.Padding = 4

	tr.reset()

	assert.Equal(t, []int64{10}, tr.Positions())
	assert.Nil(t, tr.Get(20))
	assert.Equal(t, int64(0), tr.Get(10).Events[0].ExtraOffset)
}

func TestPositionTracker_RealEventClearsSynthesized(t *testing.T) {
	tr := NewPositionTracker()
	tr.Ensure(20).Synthesized = true
	tr.Add(20, 1, &Event{Type: SNP})

	tr.reset()
	require.NotNil(t, tr.Get(20), "observed entry must survive a reset")
}
