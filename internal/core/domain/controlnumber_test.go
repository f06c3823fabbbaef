package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatted_ZeroPadding(t *testing.T) {
	assert.Equal(t, "ACT000000", ControlNumber{Prefix: "ACT", Sequence: 0}.Formatted())
	assert.Equal(t, "ACT000042", ControlNumber{Prefix: "ACT", Sequence: 42}.Formatted())
	assert.Equal(t, "ACT999999", ControlNumber{Prefix: "ACT", Sequence: 999999}.Formatted())
}

func TestFormatted_WidensPastSixDigits(t *testing.T) {
	assert.Equal(t, "ACT1234567", ControlNumber{Prefix: "ACT", Sequence: 1234567}.Formatted())
}

func TestNext(t *testing.T) {
	next := ControlNumber{Prefix: "ACT", Sequence: 41}.Next()
	assert.Equal(t, "ACT000042", next.Formatted())
}

func TestParse_RoundTrip(t *testing.T) {
	cases := []ControlNumber{
		{Prefix: "ACT", Sequence: 0},
		{Prefix: "ACT", Sequence: 1},
		{Prefix: "ACT", Sequence: 42},
		{Prefix: "INV", Sequence: 600},
		{Prefix: "ACT", Sequence: 999999},
		{Prefix: "ACT", Sequence: 1234567},
	}

	for _, want := range cases {
		got, err := ParseControlNumber(want.Formatted())
		require.NoError(t, err, "parse %s", want.Formatted())
		assert.Equal(t, want, got)
	}
}

func TestParse_LenientDigitExtraction(t *testing.T) {
	got, err := ParseControlNumber("ACT00012x")
	require.NoError(t, err)
	assert.Equal(t, ControlNumber{Prefix: "ACT", Sequence: 12}, got)
}

func TestParse_DigitsScatteredAfterPrefix(t *testing.T) {
	got, err := ParseControlNumber("ACT-00-0041")
	require.NoError(t, err)
	assert.Equal(t, ControlNumber{Prefix: "ACT", Sequence: 41}, got)
}

func TestParse_EmptyFallsBackToDefaults(t *testing.T) {
	got, err := ParseControlNumber("")
	assert.ErrorIs(t, err, ErrMalformedValue)
	assert.Equal(t, ControlNumber{Prefix: "ACT", Sequence: 0}, got)
}

func TestParse_MissingPrefixDefaults(t *testing.T) {
	got, err := ParseControlNumber("000042")
	assert.ErrorIs(t, err, ErrMalformedValue)
	assert.Equal(t, ControlNumber{Prefix: "ACT", Sequence: 42}, got)
}

func TestParse_NoDigits(t *testing.T) {
	got, err := ParseControlNumber("ACT")
	assert.ErrorIs(t, err, ErrMalformedValue)
	assert.Equal(t, ControlNumber{Prefix: "ACT", Sequence: 0}, got)
}
