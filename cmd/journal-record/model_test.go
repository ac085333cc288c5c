package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"voice-journal/internal/application"
	"voice-journal/internal/domain"
)

type fakeSource struct{ name string }

func (f *fakeSource) Name() string                  { return f.name }
func (f *fakeSource) Start(_ context.Context) error { return nil }
func (f *fakeSource) Stop() error                   { return nil }
func (f *fakeSource) Next(_ context.Context) (*application.Recording, error) {
	return &application.Recording{Filename: "a.wav", Data: []byte("x")}, nil
}

type fakeUploader struct {
	err   error
	calls int
}

func (f *fakeUploader) Record(_ context.Context, rec *application.Recording) (*domain.Thought, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Thought{ID: "t1", CleanedText: "Hello " + rec.Filename, Tags: []string{"misc"}}, nil
}

// run feeds msg to the model and executes the returned command once.
func run(t *testing.T, m model, msg tea.Msg) (model, tea.Msg) {
	t.Helper()
	next, cmd := m.Update(msg)
	var out tea.Msg
	if cmd != nil {
		out = cmd()
	}
	return next.(model), out
}

func TestModel_RecordAndUpload(t *testing.T) {
	up := &fakeUploader{}
	m := newModel(context.Background(), &fakeSource{name: "microphone"}, up, modeMicrophone, &levelMeter{})

	m, msg := run(t, m, startedMsg{})
	if m.step != stepListening {
		t.Fatalf("step after start: got %d", m.step)
	}
	if _, ok := msg.(recordedMsg); !ok {
		t.Fatalf("capture should produce a recording, got %T", msg)
	}

	m, msg = run(t, m, msg)
	if m.step != stepUploading || m.current != "a.wav" {
		t.Fatalf("step after capture: got %d %q", m.step, m.current)
	}

	m, _ = run(t, m, msg)
	if m.step != stepDone || len(m.thoughts) != 1 || m.pending != nil {
		t.Fatalf("after upload: step=%d thoughts=%d", m.step, len(m.thoughts))
	}
	if !strings.Contains(m.View(), "Hello a.wav") || !strings.Contains(m.View(), "#misc") {
		t.Errorf("view missing thought:\n%s", m.View())
	}

	m, _ = run(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if m.step != stepListening {
		t.Errorf("r should record again, got step %d", m.step)
	}
}

func TestModel_WatchModeKeepsListening(t *testing.T) {
	m := newModel(context.Background(), &fakeSource{name: "file"}, &fakeUploader{}, modeWatch, &levelMeter{})

	m, _ = run(t, m, uploadedMsg{thought: &domain.Thought{ID: "t1"}})
	if m.step != stepListening {
		t.Errorf("watch mode should return to listening, got %d", m.step)
	}
}

func TestModel_RetryFailedUpload(t *testing.T) {
	up := &fakeUploader{err: errors.New("server down")}
	m := newModel(context.Background(), &fakeSource{name: "file"}, up, modeFile, &levelMeter{})

	m, msg := run(t, m, recordedMsg{rec: &application.Recording{Filename: "b.wav"}})
	m, _ = run(t, m, msg)
	if m.step != stepFailed || m.pending == nil {
		t.Fatalf("expected failure with pending upload, got step %d", m.step)
	}
	if !strings.Contains(m.View(), "server down") {
		t.Errorf("view should show the error:\n%s", m.View())
	}

	up.err = nil
	m, msg = run(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if m.step != stepUploading {
		t.Fatalf("retry should re-upload, got step %d", m.step)
	}
	m, _ = run(t, m, msg)
	if m.step != stepDone || up.calls != 2 {
		t.Errorf("step=%d calls=%d", m.step, up.calls)
	}
}

func TestMeter(t *testing.T) {
	if got := meter(0); strings.Contains(got, "█") {
		t.Errorf("silent meter should be empty: %q", got)
	}
	if got := meter(1); strings.Contains(got, "░") {
		t.Errorf("loud meter should be full: %q", got)
	}
}
