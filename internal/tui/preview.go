// SPDX-License-Identifier: MIT
/*
Package tui renders a terminal preview of the telemetry feed. It exists for
development and demos; real renderers consume the WebSocket feed instead.
*/
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MaveDX/Bard/internal/player"
	"github.com/MaveDX/Bard/internal/session"
	"github.com/MaveDX/Bard/internal/waveform"
)

// redrawInterval matches the analyzer's frame cadence closely enough that no
// frame is shown twice.
const redrawInterval = 33 * time.Millisecond

// barChars maps a magnitude to a single terminal cell, lowest to highest.
var barChars = []rune(" ▁▂▃▄▅▆▇█")

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	lyricStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)
)

type tickMsg time.Time

// PreviewModel is the Bubble Tea model driving the preview screen.
type PreviewModel struct {
	session *session.Session
	width   int
	ready   bool
}

// NewPreviewModel wraps a running session for display.
func NewPreviewModel(s *session.Session) PreviewModel {
	return PreviewModel{session: s}
}

func (m PreviewModel) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(redrawInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m PreviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.ready = true

	case tickMsg:
		// A poll error leaves the previous snapshot on screen; the next
		// tick retries.
		_ = m.session.Tick()
		return m, tick()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m PreviewModel) View() string {
	if !m.ready {
		return "starting..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("bard"))
	b.WriteString("\n\n")

	song, status, ok := m.session.NowPlaying()
	if !ok {
		b.WriteString(dimStyle.Render("nothing playing"))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(infoStyle.Render(fmt.Sprintf("%s - %s", song.Artist, song.Title)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("[%s] %s / %s",
		status.State,
		player.FormatTime(status.Elapsed),
		player.FormatTime(status.Duration))))
	b.WriteString("\n\n")

	if m.session.SpectrumEnabled() {
		b.WriteString(renderSpectrum(m.session.Spectrum()))
	} else {
		b.WriteString(dimStyle.Render("spectrum unavailable"))
	}
	b.WriteString("\n")

	if series, ok := m.session.Waveform(); ok {
		b.WriteString(renderEnvelope(seriesMagnitudes(series)))
		b.WriteString("\n")
	}

	if _, lyric, ok := m.session.CurrentLyric(); ok {
		b.WriteString("\n")
		b.WriteString(lyricStyle.Render(lyric))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("q to quit"))
	b.WriteString("\n")
	return b.String()
}

// renderSpectrum maps each band magnitude (0-255) to one block character.
func renderSpectrum(sample []byte) string {
	var b strings.Builder
	for _, v := range sample {
		b.WriteRune(barChars[int(v)*(len(barChars)-1)/255])
	}
	return b.String()
}

// renderEnvelope maps normalized magnitudes (0.0-1.0) to block characters.
func renderEnvelope(mags []float64) string {
	var b strings.Builder
	for _, v := range mags {
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		b.WriteRune(barChars[int(v*float64(len(barChars)-1))])
	}
	return b.String()
}

// seriesMagnitudes folds the stereo envelope down to one magnitude per
// bucket for single-line display.
func seriesMagnitudes(series waveform.Series) []float64 {
	mags := make([]float64, len(series))
	for i, p := range series {
		mags[i] = (p.Left + p.Right) / 2
	}
	return mags
}
