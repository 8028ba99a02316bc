package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"surge/internal/config"
	"surge/internal/series"
)

func waveFixture(waveATR, waveMed, releaseZ []float64, grace int) *WaveDetector {
	cache := &series.Cache{
		WaveATR:  waveATR,
		WaveMed:  waveMed,
		ReleaseZ: releaseZ,
	}
	cfg := config.EventWaveConfig{
		Squeeze: config.SqueezeConfig{ATRWindow: 14, PctOfMedian: 0.75, MedianWindow: 240},
		Release: config.ReleaseConfig{ZScoreWindow: 60, ZScoreThreshold: 2.0, GraceBars: grace},
	}
	return NewWaveDetector(cache, cfg)
}

func TestWaveDetectorFiresOnceOnRelease(t *testing.T) {
	// 收缩两根后放量突破，随后 z 维持高位且收缩未散
	waveATR := []float64{10, 5, 5, 9, 5}
	waveMed := []float64{10, 10, 10, 10, 10}
	releaseZ := []float64{0, 0, 0, 2.5, 2.6}
	w := waveFixture(waveATR, waveMed, releaseZ, 0)

	_, fired := w.Update(0)
	assert.False(t, fired)
	assert.Equal(t, WaveQuiet, w.State())

	_, fired = w.Update(1)
	assert.False(t, fired)
	assert.Equal(t, WaveSqueeze, w.State())

	_, fired = w.Update(2)
	assert.False(t, fired)

	dir, fired := w.Update(3)
	assert.True(t, fired)
	assert.Equal(t, RegimeUp, dir)
	assert.Equal(t, WaveRelease, w.State())

	// 同一轮释放不再触发
	_, fired = w.Update(4)
	assert.False(t, fired)
	assert.Equal(t, WaveRelease, w.State())
}

func TestWaveDetectorDownsideRelease(t *testing.T) {
	w := waveFixture(
		[]float64{5, 5},
		[]float64{10, 10},
		[]float64{0, -2.5},
		0,
	)
	w.Update(0)
	dir, fired := w.Update(1)
	assert.True(t, fired)
	assert.Equal(t, RegimeDown, dir)
}

func TestWaveDetectorGraceWindow(t *testing.T) {
	t.Run("release within grace still fires", func(t *testing.T) {
		// 第 1 根收缩，第 2-3 根收缩消失，第 3 根 z 突破（宽限 2 根内）
		w := waveFixture(
			[]float64{10, 5, 9, 9},
			[]float64{10, 10, 10, 10},
			[]float64{0, 0, 0, 2.5},
			2,
		)
		w.Update(0)
		w.Update(1)
		_, fired := w.Update(2)
		assert.False(t, fired)
		assert.Equal(t, WaveSqueeze, w.State())
		_, fired = w.Update(3)
		assert.True(t, fired)
	})

	t.Run("grace exhausted returns to quiet", func(t *testing.T) {
		w := waveFixture(
			[]float64{10, 5, 9, 9, 9},
			[]float64{10, 10, 10, 10, 10},
			[]float64{0, 0, 0, 0, 2.5},
			1,
		)
		w.Update(0)
		w.Update(1)
		w.Update(2)
		w.Update(3)
		assert.Equal(t, WaveQuiet, w.State())

		// Quiet 状态下 z 突破不触发，必须重新经过 Squeeze
		_, fired := w.Update(4)
		assert.False(t, fired)
	})
}

func TestWaveDetectorRearmRequiresQuiet(t *testing.T) {
	waveATR := []float64{5, 5, 5, 9, 5, 5}
	waveMed := []float64{10, 10, 10, 10, 10, 10}
	releaseZ := []float64{0, 2.5, 0.5, 0, 0, 2.8}
	w := waveFixture(waveATR, waveMed, releaseZ, 0)

	w.Update(0)
	_, fired := w.Update(1)
	assert.True(t, fired)

	// z 回落但收缩未散 → 停在 Release；收缩散去才衰减回 Quiet
	w.Update(2)
	assert.Equal(t, WaveRelease, w.State())
	w.Update(3)
	assert.Equal(t, WaveQuiet, w.State())

	// 新一轮收缩后才允许第二次释放
	w.Update(4)
	assert.Equal(t, WaveSqueeze, w.State())
	dir, fired := w.Update(5)
	assert.True(t, fired)
	assert.Equal(t, RegimeUp, dir)
}

func TestWaveDetectorSingleFirePerCompressionEpisode(t *testing.T) {
	// 全程收缩（比值 0.5 < 0.75），z 先突破、回落、再突破:
	// 同一轮未间断的收缩只允许一次释放
	waveATR := []float64{5, 5, 5, 5, 5}
	waveMed := []float64{10, 10, 10, 10, 10}
	releaseZ := []float64{0, 2.5, 0.5, 0, 2.5}
	w := waveFixture(waveATR, waveMed, releaseZ, 0)

	fires := 0
	for i := range waveATR {
		if _, fired := w.Update(i); fired {
			fires++
		}
	}
	assert.Equal(t, 1, fires)
	assert.Equal(t, WaveRelease, w.State())
}

func TestWaveDetectorNaNInputsStayQuiet(t *testing.T) {
	nan := math.NaN()
	w := waveFixture(
		[]float64{nan, nan},
		[]float64{nan, nan},
		[]float64{nan, nan},
		0,
	)
	_, fired := w.Update(0)
	assert.False(t, fired)
	_, fired = w.Update(1)
	assert.False(t, fired)
	assert.Equal(t, WaveQuiet, w.State())
}
