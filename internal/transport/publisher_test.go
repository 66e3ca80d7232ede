// SPDX-License-Identifier: MIT
package transport

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaveDX/Bard/internal/artwork"
	"github.com/MaveDX/Bard/internal/player"
	"github.com/MaveDX/Bard/internal/waveform"
)

type captureTransport struct {
	mu     sync.Mutex
	frames []Frame
}

func (c *captureTransport) Send(data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, data.(Frame))
	return nil
}

func (c *captureTransport) Close() error { return nil }

func (c *captureTransport) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

type stubSource struct {
	spectrum []byte
	enabled  bool
	series   waveform.Series
	haveWave bool
	palette  artwork.Palette
	havePal  bool
	lyricIdx int
	lyric    string
	haveLyr  bool
	song     player.Song
	status   player.Status
	playing  bool
}

func (s *stubSource) Spectrum() []byte                  { return s.spectrum }
func (s *stubSource) SpectrumEnabled() bool             { return s.enabled }
func (s *stubSource) Waveform() (waveform.Series, bool) { return s.series, s.haveWave }
func (s *stubSource) Palette() (artwork.Palette, bool)  { return s.palette, s.havePal }
func (s *stubSource) CurrentLyric() (int, string, bool) { return s.lyricIdx, s.lyric, s.haveLyr }
func (s *stubSource) NowPlaying() (player.Song, player.Status, bool) {
	return s.song, s.status, s.playing
}

func TestBuildFrameFull(t *testing.T) {
	src := &stubSource{
		spectrum: []byte{0, 128, 255},
		enabled:  true,
		series:   waveform.Series{{Left: 0.25, Right: 0.75}},
		haveWave: true,
		palette:  artwork.Palette{{R: 1}, {G: 1}, {B: 1}, {}},
		havePal:  true,
		lyricIdx: 3,
		lyric:    "hello",
		haveLyr:  true,
		song:     player.Song{File: "a.flac", Title: "T", Artist: "A", Album: "L"},
		status:   player.Status{State: player.StatePlaying, Elapsed: 12.5, Duration: 180},
		playing:  true,
	}
	p, err := NewPublisher(time.Second, &captureTransport{}, src)
	require.NoError(t, err)

	frame := p.buildFrame()
	assert.Equal(t, uint64(1), frame.Sequence)
	assert.True(t, frame.Playing)
	assert.Equal(t, "a.flac", frame.File)
	assert.Equal(t, "play", frame.State)
	assert.Equal(t, []int{0, 128, 255}, frame.Spectrum)
	assert.Equal(t, [][2]float64{{0.25, 0.75}}, frame.Waveform)
	require.Len(t, frame.Palette, 4)
	assert.Equal(t, "rgb(255, 0, 0)", frame.Palette[0])
	assert.Equal(t, "hello", frame.Lyric)
	assert.Equal(t, 3, frame.LyricIndex)
	assert.InDelta(t, 12.5, frame.Elapsed, 1e-9)

	// Sequence numbers are monotonic.
	assert.Equal(t, uint64(2), p.buildFrame().Sequence)
}

func TestBuildFrameAbsentData(t *testing.T) {
	p, err := NewPublisher(time.Second, &captureTransport{}, &stubSource{})
	require.NoError(t, err)

	frame := p.buildFrame()
	assert.False(t, frame.Playing)
	assert.Nil(t, frame.Spectrum)
	assert.Nil(t, frame.Waveform)
	assert.Nil(t, frame.Palette)
	assert.Empty(t, frame.Lyric)
	assert.Equal(t, -1, frame.LyricIndex)
}

func TestPublisherStartStop(t *testing.T) {
	capture := &captureTransport{}
	p, err := NewPublisher(5*time.Millisecond, capture, &stubSource{})
	require.NoError(t, err)

	p.Start()
	p.Start() // second Start is a no-op

	deadline := time.Now().Add(2 * time.Second)
	for capture.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.NoError(t, p.Stop())
	require.NoError(t, p.Stop()) // second Stop is a no-op

	sent := capture.count()
	assert.Greater(t, sent, 0)

	// No frames after Stop returns.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, sent, capture.count())
}

func TestNewPublisherValidation(t *testing.T) {
	_, err := NewPublisher(time.Second, nil, &stubSource{})
	assert.Error(t, err)
	_, err = NewPublisher(time.Second, &captureTransport{}, nil)
	assert.Error(t, err)

	// Bad interval gets a default instead of an error.
	p, err := NewPublisher(0, &captureTransport{}, &stubSource{})
	require.NoError(t, err)
	assert.Equal(t, 33*time.Millisecond, p.interval)
}
