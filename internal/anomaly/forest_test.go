package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clusterWithOutlier is a tight cluster plus one distant point at the end.
func clusterWithOutlier() [][]float64 {
	data := [][]float64{
		{10}, {11}, {9}, {10.5}, {9.5}, {10.2}, {10.8}, {9.8}, {10.1}, {9.9},
	}
	return append(data, []float64{100})
}

func TestFitForest_Deterministic(t *testing.T) {
	data := clusterWithOutlier()
	cfg := forestConfig{trees: 50, seed: 42}

	a := fitForest(data, cfg).scoreSamples(data)
	b := fitForest(data, cfg).scoreSamples(data)

	assert.Equal(t, a, b)
}

func TestFitForest_SeedChangesScores(t *testing.T) {
	data := clusterWithOutlier()

	a := fitForest(data, forestConfig{trees: 50, seed: 1}).scoreSamples(data)
	b := fitForest(data, forestConfig{trees: 50, seed: 2}).scoreSamples(data)

	assert.NotEqual(t, a, b)
}

func TestScoreSamples_OutlierScoresLower(t *testing.T) {
	data := clusterWithOutlier()
	forest := fitForest(data, forestConfig{trees: 100, seed: 42})

	scores := forest.scoreSamples(data)
	require.Len(t, scores, len(data))

	outlier := scores[len(scores)-1]
	for i := 0; i < len(scores)-1; i++ {
		assert.Less(t, outlier, scores[i], "outlier must score below cluster point %d", i)
	}
}

func TestScoreSamples_Range(t *testing.T) {
	data := clusterWithOutlier()
	forest := fitForest(data, forestConfig{trees: 100, seed: 42})

	for _, s := range forest.scoreSamples(data) {
		assert.Greater(t, s, -1.0)
		assert.Less(t, s, 0.0)
	}
}

func TestScoreSamples_MultiFeature(t *testing.T) {
	data := [][]float64{
		{10, 5}, {11, 6}, {9, 5.5}, {10.5, 5.2}, {9.5, 6.1},
		{10.2, 5.8}, {10.8, 5.4}, {9.8, 5.9}, {200, 300},
	}
	forest := fitForest(data, forestConfig{trees: 100, seed: 42})
	scores := forest.scoreSamples(data)

	outlier := scores[len(scores)-1]
	for i := 0; i < len(scores)-1; i++ {
		assert.Less(t, outlier, scores[i])
	}
}

func TestLabelScores(t *testing.T) {
	data := clusterWithOutlier()
	forest := fitForest(data, forestConfig{trees: 100, seed: 42})
	scores := forest.scoreSamples(data)

	labels := labelScores(scores, 0.1)
	require.Len(t, labels, len(scores))

	// With contamination 0.1 over 11 points, roughly one point is flagged
	// and it is the distant one.
	assert.Equal(t, -1, labels[len(labels)-1])
	flagged := 0
	for _, l := range labels {
		require.Contains(t, []int{-1, 1}, l)
		if l == -1 {
			flagged++
		}
	}
	assert.LessOrEqual(t, flagged, 2)
}

func TestAvgPathLength(t *testing.T) {
	assert.Equal(t, 0.0, avgPathLength(0))
	assert.Equal(t, 0.0, avgPathLength(1))
	assert.Equal(t, 1.0, avgPathLength(2))
	assert.InDelta(t, 1.207, avgPathLength(3), 0.001)
	// c(n) grows with n.
	assert.Greater(t, avgPathLength(256), avgPathLength(10))
}

func TestBuildTree_ConstantDataIsLeaf(t *testing.T) {
	data := [][]float64{{5}, {5}, {5}, {5}}
	forest := fitForest(data, forestConfig{trees: 10, seed: 42})

	// No feature has spread, so every point isolates at depth zero and
	// all scores are equal.
	scores := forest.scoreSamples(data)
	for _, s := range scores[1:] {
		assert.Equal(t, scores[0], s)
	}
}
