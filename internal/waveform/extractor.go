// SPDX-License-Identifier: MIT
/*
Package waveform produces a fixed-length normalized amplitude envelope for one
audio track.

The decoder subprocess emits raw interleaved stereo 16-bit PCM at a low sample
rate; frames are grouped into equal-width buckets and each bucket is reduced
to a per-channel RMS magnitude. Magnitudes are normalized against the 95th
percentile of all nonzero values (so a single transient cannot flatten the
rest of the envelope) and run through a power curve that spreads out quiet
passages.

Extraction is CPU-bound and spawns a subprocess; callers run it off the
control thread.
*/
package waveform

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"

	applog "github.com/MaveDX/Bard/internal/log"
)

const (
	// Decoder output contract: raw s16le, 2 channels, 8kHz. The low rate
	// keeps decodes fast while leaving plenty of resolution per bar.
	decodeSampleRate = 8000
	decodeChannels   = 2
	bytesPerFrame    = 4 // 2 bytes left + 2 bytes right.

	// normPercentile clips the loudest 5% of magnitudes to full scale
	// instead of normalizing against the absolute maximum.
	normPercentile = 0.95

	// responseExponent expands quiet passages and compresses loud ones,
	// like a visual gamma curve.
	responseExponent = 1.8
)

var (
	// ErrEmptyOutput means the decoder ran but produced no samples.
	ErrEmptyOutput = errors.New("waveform: decoder produced no output")
	// ErrNoFrames means the decoded stream held no complete stereo frame.
	ErrNoFrames = errors.New("waveform: no complete frames in decoded output")
)

// PeakPair holds the normalized amplitudes of one envelope bucket, each in
// [0.0, 1.0].
type PeakPair struct {
	Left  float64
	Right float64
}

// Series is one track's amplitude envelope. It is immutable once produced
// and replaced wholesale on track change.
type Series []PeakPair

// Extractor extracts envelopes using an external decoder executable.
type Extractor struct {
	binary string
}

// NewExtractor returns an Extractor invoking the given decoder executable
// (defaults to "ffmpeg" when empty).
func NewExtractor(binary string) *Extractor {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Extractor{binary: binary}
}

// Extract decodes path and reduces it to exactly bars PeakPairs. It fails
// when the file is missing, the decoder exits non-successfully, or the
// decoded stream is empty.
func (e *Extractor) Extract(path string, bars int) (Series, error) {
	if bars <= 0 {
		return nil, fmt.Errorf("waveform: bar count must be positive, got %d", bars)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("waveform: %w", err)
	}

	var pcm []int16
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		// WAV is raw PCM in a container; skip the subprocess when we can
		// read it directly. Bucketing is ratio-based, so the native sample
		// rate needs no resampling.
		if direct, err := decodeWAV(path); err == nil {
			pcm = direct
		} else {
			applog.Debugf("waveform: wav fast path failed for %s, falling back to decoder: %v", path, err)
		}
	}
	if pcm == nil {
		decoded, err := e.decode(path)
		if err != nil {
			return nil, err
		}
		pcm = decoded
	}

	series, err := bucketize(pcm, bars)
	if err != nil {
		return nil, err
	}
	normalize(series)
	return series, nil
}

// decode runs the decoder subprocess and parses its raw PCM output.
func (e *Extractor) decode(path string) ([]int16, error) {
	cmd := exec.Command(e.binary,
		"-i", path,
		"-ac", strconv.Itoa(decodeChannels),
		"-ar", strconv.Itoa(decodeSampleRate),
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-v", "quiet",
		"-",
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("waveform: decoder: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrEmptyOutput
	}
	return samplesFromRaw(out), nil
}

// samplesFromRaw converts the decoder's byte stream into interleaved int16
// samples, dropping any trailing partial frame.
func samplesFromRaw(raw []byte) []int16 {
	samples := len(raw) / bytesPerFrame * decodeChannels
	pcm := make([]int16, samples)
	for i := range pcm {
		pcm[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return pcm
}

// bucketize splits the interleaved stereo stream into exactly bars
// contiguous buckets using a floating-point stride (no truncation drift) and
// reduces each bucket to per-channel RMS magnitudes.
func bucketize(pcm []int16, bars int) (Series, error) {
	frames := len(pcm) / decodeChannels
	if frames == 0 {
		return nil, ErrNoFrames
	}

	stride := math.Max(float64(frames)/float64(bars), 1.0)
	series := make(Series, 0, bars)

	left := make([]float64, 0, int(stride)+1)
	right := make([]float64, 0, int(stride)+1)

	pos := 0.0
	for i := 0; i < bars; i++ {
		start := int(pos)
		end := int(pos + stride)
		if end > frames {
			end = frames
		}

		left = left[:0]
		right = right[:0]
		for f := start; f < end; f++ {
			left = append(left, math.Abs(float64(pcm[f*decodeChannels])))
			right = append(right, math.Abs(float64(pcm[f*decodeChannels+1])))
		}

		series = append(series, PeakPair{Left: rms(left), Right: rms(right)})
		pos += stride
	}
	return series, nil
}

// rms is the root-mean-square magnitude of one bucket channel.
func rms(ch []float64) float64 {
	if len(ch) == 0 {
		return 0
	}
	return floats.Norm(ch, 2) / math.Sqrt(float64(len(ch)))
}

// normalize scales the series against the 95th-percentile nonzero magnitude,
// clamps to full scale, and applies the power-law response curve. A silent
// series (empty pool) is left at zero.
func normalize(series Series) {
	pool := make([]float64, 0, len(series)*2)
	for _, p := range series {
		if p.Left > 0 {
			pool = append(pool, p.Left)
		}
		if p.Right > 0 {
			pool = append(pool, p.Right)
		}
	}
	if len(pool) == 0 {
		return
	}

	sort.Float64s(pool)
	idx := int(float64(len(pool)) * normPercentile)
	if idx >= len(pool) {
		idx = len(pool) - 1
	}
	ref := pool[idx]
	if ref <= 0 {
		return
	}

	for i := range series {
		series[i].Left = curve(series[i].Left / ref)
		series[i].Right = curve(series[i].Right / ref)
	}
}

func curve(v float64) float64 {
	return math.Pow(math.Min(v, 1.0), responseExponent)
}

// BarsForWidth returns how many bars fit in a pixel width when each bar is
// barWidth px wide with gap px spacing.
func BarsForWidth(width, barWidth, gap int) int {
	block := barWidth + gap
	if block <= 0 {
		return 0
	}
	return width / block
}
