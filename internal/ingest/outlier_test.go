package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutlierIndices_FlagsExtremes(t *testing.T) {
	values := []float64{10, 11, 10, 12, 11, 10, 12, 11, 100}

	out := OutlierIndices(values, 1.5)
	assert.Equal(t, []int{8}, out)
}

func TestOutlierIndices_BothTails(t *testing.T) {
	values := []float64{-100, 10, 11, 10, 12, 11, 10, 12, 100}

	out := OutlierIndices(values, 1.5)
	assert.Equal(t, []int{0, 8}, out)
}

func TestOutlierIndices_UniformSeries(t *testing.T) {
	values := []float64{10, 10, 10, 10, 10}
	assert.Empty(t, OutlierIndices(values, 1.5))
}

func TestOutlierIndices_TooFewValues(t *testing.T) {
	assert.Nil(t, OutlierIndices([]float64{1, 1000, 2}, 1.5))
}

func TestOutlierIndices_WiderFenceFlagsLess(t *testing.T) {
	values := []float64{10, 11, 10, 12, 11, 10, 12, 11, 20}

	tight := OutlierIndices(values, 1.5)
	loose := OutlierIndices(values, 10)
	assert.NotEmpty(t, tight)
	assert.Empty(t, loose)
}
