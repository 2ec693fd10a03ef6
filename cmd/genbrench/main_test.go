package main

import (
	"testing"

	"github.com/Hakuto4838/GridSkipList/datastream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatScientific(t *testing.T) {
	tests := map[int]string{
		0:       "0",
		7:       "7e0",
		100000:  "1e5",
		1500000: "1.5e6",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatScientific(in), "n=%d", in)
	}
}

func TestFormatDecimal(t *testing.T) {
	assert.Equal(t, "1", formatDecimal(1.0))
	assert.Equal(t, "0_5", formatDecimal(0.5))
	assert.Equal(t, "1_07", formatDecimal(1.07))
}

func TestParseScientificNotation(t *testing.T) {
	n, err := parseScientificNotation("1e5")
	require.NoError(t, err)
	assert.Equal(t, 100000, n)

	_, err = parseScientificNotation("lots")
	assert.Error(t, err)
}

func TestDefaultPrefix(t *testing.T) {
	cfg := datastream.GenConfig{N: 1000, K: 100000, S: 1.07, V: 1, Phase1Ratio: 0.5, RemoveRatio: 0.1}
	assert.Equal(t, "bench_n1e3_k1e5_s1_07_v1_p1r0_5_rr0_1", defaultPrefix(cfg))
}
