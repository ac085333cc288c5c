package main

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"voice-journal/internal/application"
	"voice-journal/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	meterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	tagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170"))

	thoughtStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			Width(72)
)

const meterWidth = 30

type uploader interface {
	Record(ctx context.Context, rec *application.Recording) (*domain.Thought, error)
}

type mode int

const (
	modeMicrophone mode = iota
	modeFile
	modeWatch
)

type step int

const (
	stepStarting step = iota
	stepListening
	stepUploading
	stepDone
	stepFailed
)

type startedMsg struct{}
type recordedMsg struct{ rec *application.Recording }
type uploadedMsg struct{ thought *domain.Thought }
type errMsg struct{ err error }
type tickMsg time.Time

// levelMeter carries the microphone level from the capture goroutine to the view.
type levelMeter struct{ bits atomic.Uint64 }

func (l *levelMeter) Set(v float64) { l.bits.Store(math.Float64bits(v)) }
func (l *levelMeter) Get() float64  { return math.Float64frombits(l.bits.Load()) }

type model struct {
	ctx      context.Context
	source   application.RecordingSource
	uploader uploader
	mode     mode
	level    *levelMeter

	step     step
	current  string
	// pending is the recording whose upload failed, kept for a retry.
	pending  *application.Recording
	thoughts []domain.Thought
	err      error
	started  time.Time
	now      time.Time
	quitting bool
}

func newModel(ctx context.Context, source application.RecordingSource, up uploader, mode mode, level *levelMeter) model {
	return model{
		ctx:      ctx,
		source:   source,
		uploader: up,
		mode:     mode,
		level:    level,
		step:     stepStarting,
		now:      time.Now(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(startSource(m.ctx, m.source), tick())
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func startSource(ctx context.Context, source application.RecordingSource) tea.Cmd {
	return func() tea.Msg {
		if err := source.Start(ctx); err != nil {
			return errMsg{fmt.Errorf("starting %s: %w", source.Name(), err)}
		}
		return startedMsg{}
	}
}

func capture(ctx context.Context, source application.RecordingSource) tea.Cmd {
	return func() tea.Msg {
		rec, err := source.Next(ctx)
		if err != nil {
			return errMsg{err}
		}
		return recordedMsg{rec}
	}
}

func upload(ctx context.Context, up uploader, rec *application.Recording) tea.Cmd {
	return func() tea.Msg {
		thought, err := up.Record(ctx, rec)
		if err != nil {
			return errMsg{fmt.Errorf("uploading %s: %w", rec.Filename, err)}
		}
		return uploadedMsg{thought}
	}
}

func (m model) listen() (model, tea.Cmd) {
	m.step = stepListening
	m.started = m.now
	m.current = ""
	m.err = nil
	return m, capture(m.ctx, m.source)
}

func (m model) send(rec *application.Recording) (model, tea.Cmd) {
	m.step = stepUploading
	m.current = rec.Filename
	m.pending = rec
	m.err = nil
	return m, upload(m.ctx, m.uploader, rec)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			switch {
			case m.step == stepFailed && m.pending != nil:
				return m.send(m.pending)
			case m.step == stepFailed && m.started.IsZero():
				m.step = stepStarting
				return m, startSource(m.ctx, m.source)
			case (m.step == stepDone || m.step == stepFailed) && m.mode != modeFile:
				return m.listen()
			}
		case "enter":
			if m.step == stepDone {
				m.quitting = true
				return m, tea.Quit
			}
		}

	case tickMsg:
		m.now = time.Time(msg)
		return m, tick()

	case startedMsg:
		return m.listen()

	case recordedMsg:
		return m.send(msg.rec)

	case uploadedMsg:
		m.pending = nil
		m.thoughts = append(m.thoughts, *msg.thought)
		if m.mode == modeWatch {
			return m.listen()
		}
		m.step = stepDone

	case errMsg:
		if m.ctx.Err() != nil {
			m.quitting = true
			return m, tea.Quit
		}
		m.step = stepFailed
		m.err = msg.err
	}

	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("Voice Journal") + "\n")

	switch m.step {
	case stepStarting:
		s.WriteString(fmt.Sprintf("Opening %s...\n", m.source.Name()))

	case stepListening:
		elapsed := m.now.Sub(m.started).Truncate(time.Second)
		if m.mode == modeMicrophone {
			s.WriteString(fmt.Sprintf("Recording %s  %s\n", elapsed, meterStyle.Render(meter(m.level.Get()))))
			s.WriteString(mutedStyle.Render("Stops after a pause in speech.") + "\n")
		} else {
			s.WriteString(fmt.Sprintf("Waiting for audio from %s...\n", m.source.Name()))
		}

	case stepUploading:
		s.WriteString(fmt.Sprintf("Transcribing %s...\n", m.current))

	case stepDone:
		s.WriteString(successStyle.Render("Saved.") + "\n")

	case stepFailed:
		s.WriteString(errorStyle.Render("Error: "+m.err.Error()) + "\n")
	}

	for i := len(m.thoughts) - 1; i >= 0 && i >= len(m.thoughts)-3; i-- {
		s.WriteString("\n" + renderThought(m.thoughts[i]) + "\n")
	}

	s.WriteString("\n" + mutedStyle.Render(m.help()) + "\n")
	return s.String()
}

func (m model) help() string {
	switch m.step {
	case stepDone:
		if m.mode == modeFile {
			return "enter to exit"
		}
		return "enter to exit, r to record another, q to quit"
	case stepFailed:
		return "r to retry, q to quit"
	default:
		return "q to quit"
	}
}

func renderThought(t domain.Thought) string {
	var b strings.Builder
	b.WriteString(t.Text())
	if len(t.Tags) > 0 || t.Category != "" {
		b.WriteString("\n")
		for _, tag := range t.Tags {
			b.WriteString(tagStyle.Render("#"+tag) + " ")
		}
		if t.Category != "" {
			b.WriteString(mutedStyle.Render("[" + t.Category + "]"))
		}
	}
	return thoughtStyle.Render(b.String())
}

// meter draws a level bar; speech RMS rarely exceeds 0.3 so the scale is stretched.
func meter(level float64) string {
	filled := int(math.Min(level/0.3, 1) * meterWidth)
	return strings.Repeat("█", filled) + strings.Repeat("░", meterWidth-filled)
}
