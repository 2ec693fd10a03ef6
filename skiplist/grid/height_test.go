package grid

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drawHeights(maxLevel int, policy HeightPolicy, n int) []int {
	g := NewHeightGenerator(rand.New(rand.NewPCG(2024, 0)), maxLevel, policy)
	counts := make([]int, maxLevel)
	for i := 0; i < n; i++ {
		counts[g.Next()]++
	}
	return counts
}

func TestHeightRange(t *testing.T) {
	for _, policy := range []HeightPolicy{Clamp, Fold} {
		for _, maxLevel := range []int{1, 2, 5, 32, 70} {
			g := NewHeightGenerator(rand.New(rand.NewPCG(1, 2)), maxLevel, policy)
			for i := 0; i < 10000; i++ {
				h := g.Next()
				require.GreaterOrEqual(t, h, 0)
				require.Less(t, h, maxLevel, "policy %s max %d", policy, maxLevel)
			}
		}
	}
}

func TestHeightGeometric(t *testing.T) {
	const n = 200000
	counts := drawHeights(16, Clamp, n)
	assert.InDelta(t, 0.5, float64(counts[0])/n, 0.01)
	assert.InDelta(t, 0.25, float64(counts[1])/n, 0.01)
	assert.InDelta(t, 0.125, float64(counts[2])/n, 0.01)
}

// maxLevel=2 時：Clamp 下 P(0)=1/2；Fold 把所有偶數索引折回 0，P(0)=2/3
func TestHeightPolicySkew(t *testing.T) {
	const n = 200000
	clamp := drawHeights(2, Clamp, n)
	fold := drawHeights(2, Fold, n)

	assert.InDelta(t, 0.5, float64(clamp[0])/n, 0.01)
	assert.InDelta(t, 2.0/3.0, float64(fold[0])/n, 0.01)
}

func TestParseHeightPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    HeightPolicy
		wantErr bool
	}{
		{in: "", want: Clamp},
		{in: "clamp", want: Clamp},
		{in: " Fold ", want: Fold},
		{in: "modulo", want: Fold},
		{in: "random", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseHeightPolicy(tt.in)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
	assert.Equal(t, "fold", Fold.String())
}
