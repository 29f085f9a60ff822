package datetime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ZeroBytesIsNoDate(t *testing.T) {
	dt, ok := Parse([4]byte{})
	assert.False(t, ok)
	assert.True(t, dt.IsZero())
}

func TestEmit_ZeroDateTimeStaysZero(t *testing.T) {
	assert.Equal(t, [4]byte{}, Emit(DateTime{}, false))
	assert.Equal(t, [4]byte{}, Emit(DateTime{}, true))
}

// TestLegacyYearWindow verifies the legacy year window: raw year 39 decodes
// to 2039, year 40 decodes to 1940.
func TestLegacyYearWindow(t *testing.T) {
	dt39 := DateTime{Year: 2039, Month: 1, Day: 1, IsPD25Format: false}
	raw39 := Emit(dt39, false)
	parsed39, ok := Parse(raw39)
	require.True(t, ok)
	assert.Equal(t, 2039, parsed39.Year)

	dt40 := DateTime{Year: 1940, Month: 1, Day: 1, IsPD25Format: false}
	raw40 := Emit(dt40, false)
	parsed40, ok := Parse(raw40)
	require.True(t, ok)
	assert.Equal(t, 1940, parsed40.Year)
}

// TestRoundTrip_InRangeValues exercises Parse/Emit round trips across both
// encodings.
func TestRoundTrip_InRangeValues(t *testing.T) {
	cases := []DateTime{
		{Year: 1988, Month: 7, Day: 4, Hour: 13, Minute: 45, IsPD25Format: false},
		{Year: 2001, Month: 12, Day: 31, Hour: 23, Minute: 59, IsPD25Format: false},
		{Year: 2039, Month: 1, Day: 1, Hour: 0, Minute: 0, IsPD25Format: false},
		{Year: 2026, Month: 7, Day: 31, Hour: 9, Minute: 30, IsPD25Format: true},
		{Year: 1999, Month: 2, Day: 28, Hour: 0, Minute: 1, IsPD25Format: true},
	}
	for _, dt := range cases {
		raw := Emit(dt, dt.IsPD25Format)
		got, ok := Parse(raw)
		require.True(t, ok)
		assert.Equal(t, dt, got, "round trip of %+v", dt)
	}
}

func TestEmitPreservingFormat_UsesOriginalFormat(t *testing.T) {
	legacy := DateTime{Year: 1995, Month: 6, Day: 15, Hour: 10, Minute: 20, IsPD25Format: false}
	raw := EmitPreservingFormat(legacy)
	got, ok := Parse(raw)
	require.True(t, ok)
	assert.False(t, got.IsPD25Format)
	assert.Equal(t, legacy, got)

	new := DateTime{Year: 2030, Month: 3, Day: 3, Hour: 1, Minute: 1, IsPD25Format: true}
	raw = EmitPreservingFormat(new)
	got, ok = Parse(raw)
	require.True(t, ok)
	assert.True(t, got.IsPD25Format)
	assert.Equal(t, new, got)
}

func TestEmit_LegacyClampsOutOfRangeYears(t *testing.T) {
	tooNew := DateTime{Year: 2099, Month: 1, Day: 1}
	raw := Emit(tooNew, false)
	got, ok := Parse(raw)
	require.True(t, ok)
	assert.Equal(t, 2039, got.Year)

	tooOld := DateTime{Year: 1900, Month: 1, Day: 1}
	raw = Emit(tooOld, false)
	got, ok = Parse(raw)
	require.True(t, ok)
	assert.Equal(t, 1940, got.Year)
}

func TestParse_NewFormatDiscriminator(t *testing.T) {
	// Any of the top 3 bits of the time word set marks the new format.
	dt := DateTime{Year: 2020, Month: 5, Day: 10, Hour: 8, Minute: 8, IsPD25Format: true}
	raw := Emit(dt, true)
	t_word := uint(raw[2]) | uint(raw[3])<<8
	assert.NotZero(t, t_word&0xe000)
}
