package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeMetrics(t *testing.T) {
	m := ComputeMetrics("aabb")
	assert.Equal(t, 4, m.SizeBytes)
	assert.Equal(t, 2, m.UniqueSymbols)
	assert.InDelta(t, 1.0, m.Entropy, 1e-9)
	assert.Equal(t, 1.0, m.AlnumRatio)
	assert.Equal(t, 1, m.LineCount)
}

func TestComputeMetricsEmpty(t *testing.T) {
	m := ComputeMetrics("")
	assert.Equal(t, 0, m.SizeBytes)
	assert.Equal(t, 0.0, m.Entropy)
}

func TestComputeMetricsRuneBased(t *testing.T) {
	// Two distinct runes, not five distinct bytes.
	m := ComputeMetrics("éé¡")
	assert.Equal(t, 2, m.UniqueSymbols)
}

func TestCompressionRatio(t *testing.T) {
	m := ComputeMetricsWithInput("abcd", 2)
	assert.Equal(t, 2.0, m.CompressionRatio)
}
