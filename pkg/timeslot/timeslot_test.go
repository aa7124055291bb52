package timeslot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasOverlap_HalfOpen(t *testing.T) {
	a := Slot{Start: "09:00", End: "10:00"}
	b := Slot{Start: "10:00", End: "11:00"}
	assert.False(t, HasOverlap([]Slot{a, b}))

	bPrime := Slot{Start: "09:59", End: "11:00"}
	assert.True(t, HasOverlap([]Slot{a, bPrime}))

	// order of input does not matter
	assert.True(t, HasOverlap([]Slot{bPrime, a}))
	assert.False(t, HasOverlap(nil))
}

func TestSort_DoesNotMutateInput(t *testing.T) {
	in := []Slot{
		{Start: "14:00", End: "15:00"},
		{Start: "08:00", End: "09:00"},
		{Start: "10:00", End: "11:00"},
	}
	snapshot := append([]Slot(nil), in...)

	out := Sort(in)

	assert.Equal(t, snapshot, in)
	assert.Equal(t, []Slot{
		{Start: "08:00", End: "09:00"},
		{Start: "10:00", End: "11:00"},
		{Start: "14:00", End: "15:00"},
	}, out)

	out[0].Start = "07:00"
	assert.Equal(t, "14:00", in[0].Start)
}

func TestSort_AlreadySorted(t *testing.T) {
	in := []Slot{{Start: "08:00", End: "09:00"}, {Start: "09:00", End: "12:00"}}
	assert.Equal(t, in, Sort(in))
}

func TestFormatParseRoundTrip(t *testing.T) {
	for m := 0; m <= LastMinute; m++ {
		require.Equal(t, m, Parse(Format(m)), "minute %d", m)
	}
}

func TestParse_Permissive(t *testing.T) {
	assert.Equal(t, 0, Parse(""))
	assert.Equal(t, 0, Parse("garbage"))
	assert.Equal(t, 0, Parse("12"))
	assert.Equal(t, 0, Parse("ab:cd"))
	assert.Equal(t, 9*60+5, Parse("9:05"))
	assert.Equal(t, 23*60+59, Parse("23:59"))
}

func TestParseStrict(t *testing.T) {
	m, err := ParseStrict("07:30")
	require.NoError(t, err)
	assert.Equal(t, 450, m)

	for _, bad := range []string{"", "7:30", "24:00", "12:60", "12-30", "noon"} {
		_, err := ParseStrict(bad)
		assert.ErrorIs(t, err, ErrInvalidTimeFormat, bad)
	}
}

func TestSnap(t *testing.T) {
	assert.Equal(t, 120, Snap(125, 15))
	assert.Equal(t, 135, Snap(128, 15))
	assert.Equal(t, 30, Snap(30, 0))

	for _, step := range []int{1, 5, 10, 15, 30, 60} {
		for x := -90; x < 1500; x += 7 {
			once := Snap(x, step)
			assert.Equal(t, once, Snap(once, step), "x=%d step=%d", x, step)
		}
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, Clamp(-5, 0, 10))
	assert.Equal(t, 10, Clamp(50, 0, 10))
	assert.Equal(t, 7, Clamp(7, 0, 10))
}

func TestSlotOverlaps(t *testing.T) {
	a := Slot{Start: "09:00", End: "11:00"}
	assert.True(t, a.Overlaps(Slot{Start: "10:30", End: "12:00"}))
	assert.False(t, a.Overlaps(Slot{Start: "11:00", End: "12:00"}))
	assert.True(t, a.Valid())
	assert.False(t, Slot{Start: "11:00", End: "11:00"}.Valid())
	assert.Equal(t, 120, a.Duration())
}

func TestList_ValueScan(t *testing.T) {
	l := List{{Start: "09:00", End: "12:00"}}
	v, err := l.Value()
	require.NoError(t, err)

	var back List
	require.NoError(t, back.Scan(v))
	assert.Equal(t, l, back)

	var empty List
	require.NoError(t, empty.Scan(nil))
	assert.Empty(t, empty)

	assert.Error(t, back.Scan(42))
}
