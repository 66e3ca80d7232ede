// SPDX-License-Identifier: MIT
//
// Package lyrics parses line-timestamped LRC files and answers "which line is
// current" for a playback position.
package lyrics

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// timeTag matches one timestamped lyric line: [MM:SS.fraction]text.
// Lines that do not match are not lyrics and are skipped.
var timeTag = regexp.MustCompile(`\[(\d+):(\d+\.\d+)\](.*)`)

// Line is one lyric entry. Text may be empty; empty lines are kept as
// spacing between stanzas.
type Line struct {
	Timestamp float64 // Seconds from track start.
	Text      string
}

// Track is an immutable sequence of lyric lines sorted ascending by
// timestamp. Ties keep their original file order.
type Track struct {
	lines []Line
}

// Parse reads an LRC file. Unmatched lines are skipped silently. A matched
// tag whose numeric fields do not parse poisons the whole file: the caller
// gets an error and should treat the track as having no lyrics.
func Parse(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lyrics: %w", err)
	}
	defer f.Close()

	var lines []Line
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m := timeTag.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		minutes, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("lyrics: bad minutes field %q: %w", m[1], err)
		}
		seconds, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return nil, fmt.Errorf("lyrics: bad seconds field %q: %w", m[2], err)
		}
		lines = append(lines, Line{
			Timestamp: float64(minutes)*60 + seconds,
			Text:      strings.TrimSpace(m[3]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("lyrics: %w", err)
	}

	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Timestamp < lines[j].Timestamp
	})

	return &Track{lines: lines}, nil
}

// CurrentLine returns the index and text of the line active at position pos:
// the greatest i with lines[i].Timestamp <= pos that is either the last line
// or has pos before the next line's timestamp. ok is false when pos precedes
// the first timestamp or the track is empty.
func (t *Track) CurrentLine(pos float64) (index int, text string, ok bool) {
	for i, line := range t.lines {
		if i+1 < len(t.lines) {
			if line.Timestamp <= pos && pos < t.lines[i+1].Timestamp {
				return i, line.Text, true
			}
		} else if line.Timestamp <= pos {
			return i, line.Text, true
		}
	}
	return 0, "", false
}

// Len returns the number of lines in the track.
func (t *Track) Len() int {
	return len(t.lines)
}

// Lines returns the sorted lyric lines. The returned slice must not be
// modified.
func (t *Track) Lines() []Line {
	return t.lines
}

// FindFile resolves the conventional "<artist> - <title>.lrc" path inside
// dir, reporting whether the file exists.
func FindFile(dir, artist, title string) (string, bool) {
	path := filepath.Join(dir, fmt.Sprintf("%s - %s.lrc", artist, title))
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}
