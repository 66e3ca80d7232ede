// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	"sync"
	"time"

	"github.com/MaveDX/Bard/internal/artwork"
	applog "github.com/MaveDX/Bard/internal/log"
	"github.com/MaveDX/Bard/internal/player"
	"github.com/MaveDX/Bard/internal/waveform"
)

// Source is the session surface the publisher snapshots on every tick.
type Source interface {
	Spectrum() []byte
	SpectrumEnabled() bool
	Waveform() (waveform.Series, bool)
	Palette() (artwork.Palette, bool)
	CurrentLyric() (int, string, bool)
	NowPlaying() (player.Song, player.Status, bool)
}

// Frame is one published snapshot. Absent data is encoded as absent, not as
// zero values: a renderer can tell "no waveform yet" from "silent waveform".
type Frame struct {
	Sequence  uint64  `json:"seq"`
	Timestamp int64   `json:"ts"` // Nanoseconds since epoch.
	Playing   bool    `json:"playing"`
	File      string  `json:"file,omitempty"`
	Title     string  `json:"title,omitempty"`
	Artist    string  `json:"artist,omitempty"`
	Album     string  `json:"album,omitempty"`
	State     string  `json:"state,omitempty"`
	Elapsed   float64 `json:"elapsed"`
	Duration  float64 `json:"duration"`

	Spectrum   []int        `json:"spectrum,omitempty"` // One magnitude per band, 0-255.
	Waveform   [][2]float64 `json:"waveform,omitempty"` // [left, right] per bucket, 0.0-1.0.
	Palette    []string     `json:"palette,omitempty"`  // CSS colors, one per cover quadrant.
	Lyric      string       `json:"lyric,omitempty"`
	LyricIndex int          `json:"lyric_index"` // -1 when no line is active.
}

// Publisher periodically snapshots a Source into a Frame and hands it to a
// Transport. It runs in its own goroutine managed by Start and Stop.
type Publisher struct {
	transport Transport
	source    Source
	interval  time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex

	sequenceNum uint64
}

// NewPublisher wires a Source to a Transport. An interval <= 0 falls back to
// ~30Hz.
func NewPublisher(interval time.Duration, transport Transport, source Source) (*Publisher, error) {
	if transport == nil {
		return nil, fmt.Errorf("transport: publisher needs a transport")
	}
	if source == nil {
		return nil, fmt.Errorf("transport: publisher needs a source")
	}
	if interval <= 0 {
		interval = 33 * time.Millisecond
		applog.Warnf("transport: invalid publish interval, defaulting to %s", interval)
	}
	return &Publisher{
		transport: transport,
		source:    source,
		interval:  interval,
	}, nil
}

// Start launches the publish loop. Calling Start on a running publisher is a
// no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("transport: publisher already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("transport: publisher started (interval %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the loop to exit and waits for it. Safe to call repeatedly.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Infof("transport: publisher stopped")
	return nil
}

func (p *Publisher) publish() {
	frame := p.buildFrame()
	if err := p.transport.Send(frame); err != nil {
		applog.Warnf("transport: send frame %d: %v", frame.Sequence, err)
	}
}

func (p *Publisher) buildFrame() Frame {
	p.sequenceNum++
	frame := Frame{
		Sequence:  p.sequenceNum,
		Timestamp: time.Now().UnixNano(),
	}

	song, status, ok := p.source.NowPlaying()
	frame.Playing = ok
	if ok {
		frame.File = song.File
		frame.Title = song.Title
		frame.Artist = song.Artist
		frame.Album = song.Album
	}
	frame.State = string(status.State)
	frame.Elapsed = status.Elapsed
	frame.Duration = status.Duration

	if p.source.SpectrumEnabled() {
		sample := p.source.Spectrum()
		frame.Spectrum = make([]int, len(sample))
		for i, v := range sample {
			frame.Spectrum[i] = int(v)
		}
	}

	if series, ok := p.source.Waveform(); ok {
		frame.Waveform = make([][2]float64, len(series))
		for i, pair := range series {
			frame.Waveform[i] = [2]float64{pair.Left, pair.Right}
		}
	}

	if palette, ok := p.source.Palette(); ok {
		frame.Palette = make([]string, len(palette))
		for i, c := range palette {
			frame.Palette[i] = c.CSS()
		}
	}

	frame.LyricIndex = -1
	if idx, lyric, ok := p.source.CurrentLyric(); ok {
		frame.Lyric = lyric
		frame.LyricIndex = idx
	}

	return frame
}

// Close implements io.Closer by stopping the publish loop.
func (p *Publisher) Close() error {
	return p.Stop()
}
