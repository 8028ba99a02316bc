package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"surge/internal/config"
)

func regimeFixture(majority int, band float64, windows ...int) *RegimeDetector {
	tfs := make([]config.RegimeWindow, 0, len(windows))
	for _, w := range windows {
		tfs = append(tfs, config.RegimeWindow{LookbackCloses: w})
	}
	return NewRegimeDetector(config.TSMomConfig{
		Timeframes:      tfs,
		RequireMajority: majority,
		NeutralBand:     band,
	})
}

func TestRegimeDetectorMajorityVote(t *testing.T) {
	closes := []float64{100, 101, 102, 103, 104, 105}

	t.Run("all windows up", func(t *testing.T) {
		r := regimeFixture(2, 0, 1, 2, 4)
		assert.Equal(t, RegimeUp, r.Classify(closes, 5))
	})

	t.Run("all windows down", func(t *testing.T) {
		r := regimeFixture(2, 0, 1, 2, 4)
		down := []float64{105, 104, 103, 102, 101, 100}
		assert.Equal(t, RegimeDown, r.Classify(down, 5))
	})

	t.Run("split vote below majority is flat", func(t *testing.T) {
		// 短窗口涨、长窗口跌，各 1 票，达不到 2 票
		mixed := []float64{110, 100, 100, 100, 100, 102}
		r := regimeFixture(2, 0, 1, 5)
		assert.Equal(t, RegimeFlat, r.Classify(mixed, 5))
	})

	t.Run("single vote majority", func(t *testing.T) {
		mixed := []float64{100, 100, 100, 100, 100, 102}
		r := regimeFixture(1, 0, 1)
		assert.Equal(t, RegimeUp, r.Classify(mixed, 5))
	})
}

func TestRegimeDetectorNeutralBand(t *testing.T) {
	closes := []float64{100, 100.05}
	// 涨幅 0.05% 落在 0.1% 中性带内，弃权
	r := regimeFixture(1, 0.001, 1)
	assert.Equal(t, RegimeFlat, r.Classify(closes, 1))

	wide := regimeFixture(1, 0.0001, 1)
	assert.Equal(t, RegimeUp, wide.Classify(closes, 1))
}

func TestRegimeDetectorInsufficientHistory(t *testing.T) {
	closes := []float64{100, 101, 102}
	r := regimeFixture(2, 0, 10, 20)
	assert.Equal(t, RegimeFlat, r.Classify(closes, 2))
}
