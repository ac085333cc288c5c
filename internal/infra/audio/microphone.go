//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gordonklaus/portaudio"

	"voice-journal/internal/application"
)

type MicrophoneSource struct {
	stream     *portaudio.Stream
	buffer     []int16
	sampleRate int
	opts       CaptureOptions
	logger     *slog.Logger
}

func NewMicrophoneSource(sampleRate int, opts CaptureOptions, logger *slog.Logger) *MicrophoneSource {
	return &MicrophoneSource{
		sampleRate: sampleRate,
		opts:       opts.withDefaults(),
		logger:     logger,
	}
}

func (m *MicrophoneSource) Name() string {
	return "microphone"
}

func (m *MicrophoneSource) Start(_ context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}

	inputChannels := 1
	outputChannels := 0
	framesPerBuffer := 1024

	m.buffer = make([]int16, framesPerBuffer)

	stream, err := portaudio.OpenDefaultStream(
		inputChannels,
		outputChannels,
		float64(m.sampleRate),
		framesPerBuffer,
		m.buffer,
	)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("opening stream: %w", err)
	}

	m.stream = stream

	if err := m.stream.Start(); err != nil {
		return fmt.Errorf("starting stream: %w", err)
	}

	m.logger.Info("microphone started", "sampleRate", m.sampleRate)
	return nil
}

func (m *MicrophoneSource) Stop() error {
	if m.stream != nil {
		m.stream.Stop()
		m.stream.Close()
	}
	portaudio.Terminate()
	return nil
}

// Next records until the speaker pauses for SilenceTimeout after talking,
// MaxDuration is reached or ctx is cancelled. A cancelled take keeps what was captured.
func (m *MicrophoneSource) Next(ctx context.Context) (*application.Recording, error) {
	samples := make([]int16, 0, m.sampleRate*30)
	maxSamples := int(m.opts.MaxDuration.Seconds() * float64(m.sampleRate))
	silenceLimit := int(m.opts.SilenceTimeout.Seconds() * float64(m.sampleRate))
	silent := 0
	heardSpeech := false

loop:
	for {
		select {
		case <-ctx.Done():
			if len(samples) == 0 {
				return nil, ctx.Err()
			}
			break loop
		default:
		}

		if err := m.stream.Read(); err != nil {
			return nil, fmt.Errorf("reading from stream: %w", err)
		}

		samples = append(samples, m.buffer...)
		if m.opts.OnLevel != nil {
			m.opts.OnLevel(Level(m.buffer))
		}

		if IsSilent(m.buffer, m.opts.SilenceThreshold) {
			silent += len(m.buffer)
		} else {
			silent = 0
			heardSpeech = true
		}

		if heardSpeech && silenceLimit > 0 && silent > silenceLimit {
			break
		}
		if len(samples) >= maxSamples {
			m.logger.Info("maximum recording length reached", "max", m.opts.MaxDuration)
			break
		}
	}

	return &application.Recording{
		Filename: fmt.Sprintf("recording-%s.wav", time.Now().Format("20060102-150405")),
		Data:     EncodeWAV(samples, m.sampleRate),
	}, nil
}
