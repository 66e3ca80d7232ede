// SPDX-License-Identifier: MIT
//
// Package player defines the surface of the external playback collaborator.
// The engine never speaks the playback protocol itself; it consumes status
// and current-song snapshots from whatever Client implementation the host
// application wires in.
package player

import (
	"errors"
	"fmt"
	"math"
)

// State is the collaborator's transport state.
type State string

const (
	StatePlaying State = "play"
	StatePaused  State = "pause"
	StateStopped State = "stop"
)

// Song identifies one queue entry. File is the path relative to the music
// library root and doubles as the track identity for change detection.
type Song struct {
	File   string
	Title  string
	Artist string
	Album  string
}

// Status is a point-in-time playback snapshot.
type Status struct {
	State    State
	Elapsed  float64 // Playback position in seconds.
	Duration float64 // Track length in seconds, 0 when unknown.
}

// Client exposes the playback collaborator operations the engine polls.
// Implementations must be safe to call from the control loop.
type Client interface {
	Status() (Status, error)
	CurrentSong() (*Song, error)
}

// Dialer constructs a Client for the given daemon address. The concrete
// protocol client is supplied by the host application.
type Dialer func(addr string) (Client, error)

// ErrNoClient is returned by the stub dialer used when the host application
// has not wired a playback client.
var ErrNoClient = errors.New("player: no playback client configured")

// StubDialer always fails with ErrNoClient.
func StubDialer(string) (Client, error) {
	return nil, ErrNoClient
}

// FormatTime renders a position in seconds as m:ss for display.
func FormatTime(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	mins := int(seconds) / 60
	secs := int(seconds) % 60
	return fmt.Sprintf("%d:%02d", mins, secs)
}
