package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Kind
	}{
		{"", KindNull},
		{"   ", KindNull},
		{"\t", KindNull},
		{"0", KindInteger},
		{"1", KindInteger},
		{"-42", KindInteger},
		{"+7", KindInteger},
		{" 12 ", KindInteger},
		{"99999999999999999999", KindInteger},
		{"2.5", KindFloat},
		{"-0.0", KindFloat},
		{"1e3", KindFloat},
		{"1e400", KindFloat},
		{"NaN", KindFloat},
		{"inf", KindFloat},
		{"true", KindBoolean},
		{"FALSE", KindBoolean},
		{"Yes", KindBoolean},
		{"no", KindBoolean},
		{"y", KindString},
		{"1,000", KindString},
		{"12abc", KindString},
		{"hello", KindString},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Classify(tt.in), "Classify(%q)", tt.in)
		})
	}
}

func TestParseNumeric(t *testing.T) {
	t.Parallel()

	f, ok := parseNumeric(" 2.5 ")
	assert.True(t, ok)
	assert.Equal(t, 2.5, f)

	for _, in := range []string{"NaN", "inf", "-Inf", "1e400"} {
		_, ok := parseNumeric(in)
		assert.False(t, ok, "parseNumeric(%q)", in)
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "integer", KindInteger.String())
	assert.Equal(t, "unknown", numKinds.String())
	assert.Equal(t, "unknown", Kind(200).String())
	assert.True(t, KindFloat.Numeric())
	assert.False(t, KindBoolean.Numeric())
}
