package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRatioSpec(t *testing.T) {
	cases := map[string][2]int{
		"1/50":  {1, 50},
		" 2/3 ": {2, 3},
		"10":    {1, 10},
		"0":     {0, 0},
		"x/y":   {0, 0},
		"":      {0, 0},
	}
	for spec, want := range cases {
		num, den := parseRatioSpec(spec)
		assert.Equal(t, want, [2]int{num, den}, spec)
	}
}

func TestRatioSamplerAllow(t *testing.T) {
	s := newRatioSampler(1, 3)
	var got []bool
	for i := 0; i < 6; i++ {
		got = append(got, s.Allow())
	}
	assert.Equal(t, []bool{true, false, false, true, false, false}, got)

	all := newRatioSampler(0, 0)
	assert.True(t, all.Allow())
	assert.True(t, all.Allow())
}
