// SPDX-License-Identifier: MIT
package waveform

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplesFromRaw(t *testing.T) {
	// Two full frames plus a dangling byte; the partial frame is dropped.
	raw := []byte{
		0x00, 0x01, 0x00, 0x02, // frame 0: L=256 R=512
		0xFF, 0xFF, 0x00, 0x80, // frame 1: L=-1  R=-32768
		0xAB,
	}
	pcm := samplesFromRaw(raw)
	require.Len(t, pcm, 4)
	assert.Equal(t, int16(256), pcm[0])
	assert.Equal(t, int16(512), pcm[1])
	assert.Equal(t, int16(-1), pcm[2])
	assert.Equal(t, int16(-32768), pcm[3])
}

func TestBucketizeSplitsEvenly(t *testing.T) {
	// 8 frames into 2 bars: each bucket covers 4 frames per channel.
	pcm := make([]int16, 0, 16)
	for i := 0; i < 4; i++ {
		pcm = append(pcm, 1000, 2000)
	}
	for i := 0; i < 4; i++ {
		pcm = append(pcm, 3000, 4000)
	}

	series, err := bucketize(pcm, 2)
	require.NoError(t, err)
	require.Len(t, series, 2)

	// Constant buckets: RMS equals the constant.
	assert.InDelta(t, 1000, series[0].Left, 1e-9)
	assert.InDelta(t, 2000, series[0].Right, 1e-9)
	assert.InDelta(t, 3000, series[1].Left, 1e-9)
	assert.InDelta(t, 4000, series[1].Right, 1e-9)
}

func TestBucketizeNoFrames(t *testing.T) {
	_, err := bucketize(nil, 10)
	assert.ErrorIs(t, err, ErrNoFrames)

	// One lone sample is not a complete stereo frame.
	_, err = bucketize([]int16{42}, 10)
	assert.ErrorIs(t, err, ErrNoFrames)
}

func TestBucketizeFewerFramesThanBars(t *testing.T) {
	// Stride clamps to 1.0; trailing buckets run past the stream and come
	// out silent rather than panicking.
	pcm := []int16{1000, 1000, 2000, 2000}
	series, err := bucketize(pcm, 6)
	require.NoError(t, err)
	require.Len(t, series, 6)
	assert.InDelta(t, 1000, series[0].Left, 1e-9)
	assert.InDelta(t, 2000, series[1].Left, 1e-9)
	for i := 2; i < 6; i++ {
		assert.Zero(t, series[i].Left)
		assert.Zero(t, series[i].Right)
	}
}

func TestNormalizeClipsLoudTail(t *testing.T) {
	// 39 quiet magnitudes and one huge spike. The 95th-percentile reference
	// lands inside the quiet pool, so the quiet bars reach full scale and
	// the spike clamps to 1.0 instead of crushing everything else.
	series := make(Series, 20)
	for i := range series {
		series[i] = PeakPair{Left: 100, Right: 100}
	}
	series[19].Right = 1e6

	normalize(series)

	assert.InDelta(t, 1.0, series[0].Left, 1e-9)
	assert.InDelta(t, 1.0, series[19].Right, 1e-9)
	for _, p := range series {
		assert.LessOrEqual(t, p.Left, 1.0)
		assert.LessOrEqual(t, p.Right, 1.0)
	}
}

func TestNormalizeAppliesCurve(t *testing.T) {
	series := Series{
		{Left: 50, Right: 100},
		{Left: 100, Right: 100},
	}
	normalize(series)

	// Reference is the top magnitude here (pool of 4, idx 3).
	assert.InDelta(t, math.Pow(0.5, responseExponent), series[0].Left, 1e-9)
	assert.InDelta(t, 1.0, series[0].Right, 1e-9)
}

func TestNormalizePercentileBound(t *testing.T) {
	// With distinct magnitudes, the share of values above the normalization
	// reference (the ones that needed clamping) stays at or under 5%.
	series := make(Series, 100)
	for i := range series {
		series[i] = PeakPair{Left: float64(i + 1), Right: float64(i + 1)}
	}
	normalize(series)

	clamped := 0
	for _, p := range series {
		require.GreaterOrEqual(t, p.Left, 0.0)
		require.LessOrEqual(t, p.Left, 1.0)
		if p.Left == 1.0 {
			clamped++
		}
	}
	// 200 pool values, reference at rank 190: ten magnitudes sit at or
	// above it, so ten bars hit full scale.
	assert.LessOrEqual(t, clamped, 10)
}

func TestNormalizeSilenceStaysZero(t *testing.T) {
	series := make(Series, 5)
	normalize(series)
	for _, p := range series {
		assert.Zero(t, p.Left)
		assert.Zero(t, p.Right)
	}
}

func TestExtractMissingFile(t *testing.T) {
	e := NewExtractor("ffmpeg")
	_, err := e.Extract(filepath.Join(t.TempDir(), "nope.flac"), 10)
	assert.Error(t, err)
}

func TestExtractInvalidBars(t *testing.T) {
	e := NewExtractor("")
	_, err := e.Extract("whatever.flac", 0)
	assert.Error(t, err)
}

// writeTestWAV produces a 16-bit stereo PCM file with a quiet first half and
// a loud second half.
func writeTestWAV(t *testing.T, frames int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, decodeSampleRate, 16, decodeChannels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: decodeChannels, SampleRate: decodeSampleRate},
		SourceBitDepth: 16,
	}
	for i := 0; i < frames; i++ {
		v := 1000
		if i >= frames/2 {
			v = 20000
		}
		buf.Data = append(buf.Data, v, v)
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func TestExtractWAVFastPath(t *testing.T) {
	// Binary name is bogus on purpose: a .wav input must not spawn the
	// decoder subprocess at all.
	e := NewExtractor("definitely-not-a-decoder")
	path := writeTestWAV(t, 800)

	series, err := e.Extract(path, 8)
	require.NoError(t, err)
	require.Len(t, series, 8)

	// Loud half normalizes to full scale, quiet half sits well below it.
	assert.InDelta(t, 1.0, series[7].Left, 1e-9)
	assert.Less(t, series[0].Left, 0.2)
	assert.Greater(t, series[0].Left, 0.0)
}

func TestDecodeWAVMatchesRawContract(t *testing.T) {
	// decodeWAV output feeds the same bucketing as decoder output, so the
	// two paths must produce identical interleaved samples.
	path := filepath.Join(t.TempDir(), "exact.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, decodeSampleRate, 16, decodeChannels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: decodeChannels, SampleRate: decodeSampleRate},
		SourceBitDepth: 16,
		Data:           []int{100, -200, 300, -400},
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	pcm, err := decodeWAV(path)
	require.NoError(t, err)
	assert.Equal(t, []int16{100, -200, 300, -400}, pcm)

	raw := []byte{100, 0, 0x38, 0xFF, 0x2C, 0x01, 0x70, 0xFE} // same frames, s16le
	assert.Equal(t, pcm, samplesFromRaw(raw))
}

func TestBarsForWidth(t *testing.T) {
	assert.Equal(t, 20, BarsForWidth(100, 3, 2))
	assert.Equal(t, 0, BarsForWidth(100, 0, 0))
	assert.Equal(t, 0, BarsForWidth(4, 3, 2))
}
