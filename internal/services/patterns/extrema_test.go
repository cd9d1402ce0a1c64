package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindPeaksAndValleys(t *testing.T) {
	values := []float64{1, 5, 1, 1, 1, 1, 7, 1, 1, 1, 1, 6, 1}

	peaks := FindPeaks(values, 3, 0)
	assert.Equal(t, []int{1, 6, 11}, peaks)

	valleys := FindValleys([]float64{5, 1, 5, 5, 5, 5, 0, 5}, 3, 0)
	assert.Equal(t, []int{1, 6}, valleys)
}

func TestFindPeaksMinDistanceKeepsHigher(t *testing.T) {
	// two peaks 2 bars apart; the taller one survives
	values := []float64{1, 4, 1, 6, 1}
	peaks := FindPeaks(values, 5, 0)
	assert.Equal(t, []int{3}, peaks)
}

func TestFindPeaksProminenceFilter(t *testing.T) {
	// the ripple at index 3 is not prominent enough
	values := []float64{1, 10, 8, 8.5, 8, 10, 1}
	peaks := FindPeaks(values, 1, 1.0)
	assert.NotContains(t, peaks, 3)
}

func TestMeanStdDev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 5.0, Mean(values), 1e-9)
	assert.InDelta(t, 2.0, StdDev(values), 1e-9)

	assert.Zero(t, Mean(nil))
	assert.Zero(t, StdDev(nil))
}

func TestSlope(t *testing.T) {
	assert.InDelta(t, 2.0, Slope([]float64{1, 3, 5, 7}), 1e-9)
	assert.InDelta(t, -1.0, Slope([]float64{10, 9, 8, 7, 6}), 1e-9)
	assert.Zero(t, Slope([]float64{5}))
}
