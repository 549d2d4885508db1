package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/kassandra/internal/contracts"
	"github.com/wonny/kassandra/pkg/logger"
)

func TestFuse_AllEmpty(t *testing.T) {
	f := NewFuser(DefaultWeights(), logger.NewNop())
	assert.Empty(t, f.Fuse(contracts.CanonicalSentiment{}))
}

func TestFuse_NewsOnlyReducesToWeightedNews(t *testing.T) {
	f := NewFuser(DefaultWeights(), logger.NewNop())

	out := f.Fuse(contracts.CanonicalSentiment{
		News: []contracts.NewsDay{
			{Date: day(2), AvgSentiment: -0.5, ArticleCount: 1},
			{Date: day(1), AvgSentiment: 0.25, ArticleCount: 3},
		},
	})
	require.Len(t, out, 2)
	assert.Equal(t, day(1), out[0].Date)
	assert.InDelta(t, 0.4*0.25, out[0].Combined, 1e-12)
	assert.InDelta(t, 0.4*-0.5, out[1].Combined, 1e-12)
}

func TestFuse_UnionOfDatesAndZScores(t *testing.T) {
	f := NewFuser(DefaultWeights(), logger.NewNop())

	out := f.Fuse(contracts.CanonicalSentiment{
		News: []contracts.NewsDay{{Date: day(1), AvgSentiment: 0.5}},
		Trends: []contracts.TrendDay{
			{Date: day(2), TrendDelta7D: 2},
			{Date: day(3), TrendDelta7D: 4},
		},
	})
	require.Len(t, out, 3)

	// trend deltas over the union: [0, 2, 4] -> mean 2, std 2 -> z [-1, 0, 1]
	assert.InDelta(t, 0.4*0.5+0.3*-1, out[0].Combined, 1e-12)
	assert.InDelta(t, 0.0, out[1].Combined, 1e-12)
	assert.InDelta(t, 0.3, out[2].Combined, 1e-12)
}

func TestFuse_ZeroVarianceGuard(t *testing.T) {
	f := NewFuser(DefaultWeights(), logger.NewNop())

	out := f.Fuse(contracts.CanonicalSentiment{
		Wiki: []contracts.WikiDay{
			{Date: day(1), ViewsDelta: 0.1},
			{Date: day(2), ViewsDelta: 0.1},
			{Date: day(3), ViewsDelta: 0.1},
		},
	})
	require.Len(t, out, 3)
	for _, r := range out {
		assert.Equal(t, 0.0, r.Combined)
	}

	single := f.Fuse(contracts.CanonicalSentiment{
		Trends: []contracts.TrendDay{{Date: day(1), TrendDelta7D: 12}},
	})
	require.Len(t, single, 1)
	assert.Equal(t, 0.0, single[0].Combined)
}

func TestFuse_CustomWeights(t *testing.T) {
	f := NewFuser(Weights{News: 1}, logger.NewNop())
	out := f.Fuse(contracts.CanonicalSentiment{
		News: []contracts.NewsDay{{Date: day(1), AvgSentiment: 0.8}},
	})
	require.Len(t, out, 1)
	assert.InDelta(t, 0.8, out[0].Combined, 1e-12)
}

func TestWeights_Validate(t *testing.T) {
	assert.NoError(t, DefaultWeights().Validate())
	assert.Error(t, Weights{News: -0.1, Trends: 0.5}.Validate())
	assert.Error(t, Weights{}.Validate())
}
