package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"voice-journal/internal/application"
	"voice-journal/internal/infra/audio"
	"voice-journal/internal/infra/journalapi"
)

func main() {
	apiURL := flag.String("api", envOr("JOURNAL_API_URL", "http://localhost:3001"), "journal API base URL")
	token := flag.String("token", os.Getenv("JOURNAL_TOKEN"), "access token (or JOURNAL_TOKEN)")
	file := flag.String("file", "", "upload an existing audio file instead of recording")
	watch := flag.String("watch", "", "upload every new audio file dropped into this directory")
	maxDuration := flag.Duration("max", 5*time.Minute, "maximum recording length")
	silence := flag.Duration("silence", 3*time.Second, "stop recording after this much silence")
	sampleRate := flag.Int("rate", application.DefaultAudioFormat().SampleRate, "microphone sample rate")
	debug := flag.Bool("debug", false, "write logs to journal-record.log")
	flag.Parse()

	if *token == "" {
		fmt.Fprintln(os.Stderr, "an access token is required: pass -token or set JOURNAL_TOKEN")
		os.Exit(2)
	}

	logger, closeLog := setupLogger(*debug)
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := journalapi.NewClient(*apiURL, *token)
	if providers, err := client.Health(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "journal API unreachable at %s: %v\n", *apiURL, err)
		os.Exit(1)
	} else if !providers["transcription"] {
		fmt.Fprintln(os.Stderr, "warning: the server has no transcription provider configured")
	}

	level := &levelMeter{}
	var (
		source  application.RecordingSource
		runMode mode
	)
	switch {
	case *file != "":
		rec, err := audio.LoadFile(*file)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		source = &singleRecording{rec: rec}
		runMode = modeFile
	case *watch != "":
		source = audio.NewFileSource(*watch)
		runMode = modeWatch
	default:
		source = audio.NewMicrophoneSource(*sampleRate, audio.CaptureOptions{
			MaxDuration:    *maxDuration,
			SilenceTimeout: *silence,
			OnLevel:        level.Set,
		}, logger)
	}
	defer source.Stop()

	p := tea.NewProgram(newModel(ctx, source, client, runMode, level), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

// singleRecording yields one preloaded file.
type singleRecording struct {
	rec  *application.Recording
	sent bool
}

func (s *singleRecording) Name() string                  { return "file" }
func (s *singleRecording) Start(_ context.Context) error { return nil }
func (s *singleRecording) Stop() error                   { return nil }

func (s *singleRecording) Next(_ context.Context) (*application.Recording, error) {
	if s.sent {
		return nil, io.EOF
	}
	s.sent = true
	return s.rec, nil
}

// setupLogger keeps logs off the terminal, which belongs to the UI.
func setupLogger(debug bool) (*slog.Logger, func()) {
	if !debug {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}
	}
	f, err := tea.LogToFile("journal-record.log", "")
	if err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})), func() { f.Close() }
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
