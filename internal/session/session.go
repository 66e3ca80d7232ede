// SPDX-License-Identifier: MIT
/*
Package session runs the engine's control loop state: it polls the playback
collaborator, detects track changes, and fans out per-track extraction work
(waveform envelope, cover palette, lyrics) while the spectrum analyzer streams
continuously underneath.

Waveform and palette extraction run on background goroutines and report back
on buffered channels. Every result is tagged with the track file it was
computed for; Tick discards any result whose tag no longer matches the
current track, so a slow extraction for a skipped song can never overwrite
the data of the song that replaced it.
*/
package session

import (
	"path/filepath"
	"sync"

	"github.com/MaveDX/Bard/internal/artwork"
	"github.com/MaveDX/Bard/internal/config"
	applog "github.com/MaveDX/Bard/internal/log"
	"github.com/MaveDX/Bard/internal/lyrics"
	"github.com/MaveDX/Bard/internal/player"
	"github.com/MaveDX/Bard/internal/spectrum"
	"github.com/MaveDX/Bard/internal/waveform"
)

type waveformResult struct {
	file   string
	series waveform.Series
	err    error
}

type paletteResult struct {
	file    string
	palette artwork.Palette
	err     error
}

// Session owns one engine run: the analyzer subprocess, the extraction
// pipeline, and the latest snapshot of everything a renderer needs.
// Tick drives it; accessors are safe from other goroutines.
type Session struct {
	cfg      *config.Config
	client   player.Client
	analyzer *spectrum.Supervisor // nil when the analyzer failed to start
	extract  *waveform.Extractor
	resolver *artwork.Resolver

	waveformCh chan waveformResult
	paletteCh  chan paletteResult

	mu          sync.Mutex
	currentFile string
	song        player.Song
	status      player.Status
	playing     bool

	series     waveform.Series
	haveSeries bool

	palette     artwork.Palette
	havePalette bool

	track      *lyrics.Track
	lyricIndex int
	lyricText  string
	haveLyric  bool
}

// New builds a Session around an established playback client. The spectrum
// analyzer failing to start degrades that feature instead of failing the
// session; everything else keeps working.
func New(cfg *config.Config, client player.Client) *Session {
	s := &Session{
		cfg:        cfg,
		client:     client,
		extract:    waveform.NewExtractor(cfg.Waveform.Binary),
		resolver:   artwork.NewResolver(cfg.Player.MusicDir, cfg.Artwork.CacheDir, cfg.Waveform.Binary),
		waveformCh: make(chan waveformResult, 8),
		paletteCh:  make(chan paletteResult, 8),
		lyricIndex: -1,
	}

	analyzer, err := spectrum.New(spectrum.Config{
		Bars:       cfg.Spectrum.Bars,
		Binary:     cfg.Spectrum.Binary,
		UserConfig: cfg.Spectrum.UserConfig,
	})
	if err != nil {
		applog.Warnf("session: spectrum disabled: %v", err)
	} else {
		s.analyzer = analyzer
	}

	s.resolver.CleanStale()
	return s
}

// Tick advances the session: applies any finished extraction results, polls
// the collaborator, swaps tracks when the queue moved, and re-syncs the
// lyric cursor. Poll errors leave the previous snapshot in place.
func (s *Session) Tick() error {
	s.drainResults()

	status, err := s.client.Status()
	if err != nil {
		return err
	}
	song, err := s.client.CurrentSong()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = status
	if song == nil {
		s.playing = false
		if s.currentFile != "" {
			s.clearTrackLocked()
		}
		return nil
	}

	s.playing = true
	if song.File != s.currentFile {
		s.beginTrackLocked(*song)
	}
	s.updateLyricLocked(status.Elapsed)
	return nil
}

// drainResults applies every pending extraction result whose track tag still
// matches the current track and drops the rest.
func (s *Session) drainResults() {
	for {
		select {
		case res := <-s.waveformCh:
			s.mu.Lock()
			if res.file == s.currentFile {
				if res.err != nil {
					applog.Warnf("session: waveform for %s: %v", res.file, res.err)
				} else {
					s.series = res.series
					s.haveSeries = true
				}
			} else {
				applog.Debugf("session: dropping stale waveform for %s", res.file)
			}
			s.mu.Unlock()
		case res := <-s.paletteCh:
			s.mu.Lock()
			if res.file == s.currentFile {
				if res.err != nil {
					applog.Debugf("session: palette for %s: %v", res.file, res.err)
				} else {
					s.palette = res.palette
					s.havePalette = true
				}
			} else {
				applog.Debugf("session: dropping stale palette for %s", res.file)
			}
			s.mu.Unlock()
		default:
			return
		}
	}
}

func (s *Session) clearTrackLocked() {
	s.currentFile = ""
	s.song = player.Song{}
	s.series = nil
	s.haveSeries = false
	s.havePalette = false
	s.track = nil
	s.lyricIndex = -1
	s.lyricText = ""
	s.haveLyric = false
}

// beginTrackLocked resets per-track state and dispatches extraction for the
// new song. The song file is captured into each result so a late arrival
// from a previous track identifies itself.
func (s *Session) beginTrackLocked(song player.Song) {
	s.clearTrackLocked()
	s.currentFile = song.File
	s.song = song

	applog.Infof("session: track change: %s - %s", song.Artist, song.Title)

	fullPath := filepath.Join(s.cfg.Player.MusicDir, song.File)
	bars := s.cfg.Waveform.Bars
	file := song.File

	go func() {
		series, err := s.extract.Extract(fullPath, bars)
		s.deliverWaveform(waveformResult{file: file, series: series, err: err})
	}()

	go func() {
		res := paletteResult{file: file, err: artwork.ErrNoArtwork}
		if art, ok := s.resolver.Resolve(file); ok {
			res.palette, res.err = artwork.PaletteFromFile(art)
		}
		s.deliverPalette(res)
	}()

	if path, ok := lyrics.FindFile(s.cfg.Player.LyricsDir, song.Artist, song.Title); ok {
		track, err := lyrics.Parse(path)
		if err != nil {
			applog.Warnf("session: lyrics for %s: %v", song.File, err)
		} else {
			s.track = track
		}
	}
}

// deliverWaveform drops the result rather than blocking when the channel is
// full; a full channel means several tracks' worth of unapplied output, all
// of it stale by now.
func (s *Session) deliverWaveform(res waveformResult) {
	select {
	case s.waveformCh <- res:
	default:
		applog.Debugf("session: waveform channel full, dropping result for %s", res.file)
	}
}

func (s *Session) deliverPalette(res paletteResult) {
	select {
	case s.paletteCh <- res:
	default:
		applog.Debugf("session: palette channel full, dropping result for %s", res.file)
	}
}

func (s *Session) updateLyricLocked(elapsed float64) {
	if s.track == nil {
		s.haveLyric = false
		return
	}
	idx, text, ok := s.track.CurrentLine(elapsed)
	s.lyricIndex = idx
	s.lyricText = text
	s.haveLyric = ok
}

// Spectrum returns the analyzer's latest frame, or nil when the analyzer is
// disabled.
func (s *Session) Spectrum() []byte {
	if s.analyzer == nil {
		return nil
	}
	return s.analyzer.Sample()
}

// SpectrumEnabled reports whether the analyzer subprocess is running.
func (s *Session) SpectrumEnabled() bool {
	return s.analyzer != nil
}

// Waveform returns the current track's envelope once extraction finished.
func (s *Session) Waveform() (waveform.Series, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.series, s.haveSeries
}

// Palette returns the current track's cover palette once extracted; callers
// fall back to artwork.DefaultPalette until then.
func (s *Session) Palette() (artwork.Palette, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.palette, s.havePalette
}

// CurrentLyric returns the active lyric line and its index in the track.
func (s *Session) CurrentLyric() (int, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lyricIndex, s.lyricText, s.haveLyric
}

// NowPlaying returns the latest song and status snapshot. The bool is false
// when the queue is empty or stopped with no current song.
func (s *Session) NowPlaying() (player.Song, player.Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.song, s.status, s.playing
}

// Close stops the analyzer subprocess. In-flight extraction goroutines
// finish on their own and their results are never applied.
func (s *Session) Close() error {
	if s.analyzer == nil {
		return nil
	}
	return s.analyzer.Close()
}
