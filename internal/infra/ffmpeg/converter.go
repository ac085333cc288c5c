package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"voice-journal/internal/application"
)

// Converter shells out to ffmpeg to produce 16 kHz mono WAV for transcription.
type Converter struct {
	binary string
	format application.AudioFormat
}

func NewConverter(binary string) *Converter {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Converter{
		binary: binary,
		format: application.DefaultAudioFormat(),
	}
}

// Available reports whether the ffmpeg binary can be found.
func (c *Converter) Available() bool {
	_, err := exec.LookPath(c.binary)
	return err == nil
}

func (c *Converter) Convert(ctx context.Context, audio []byte, filename string) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "journal-audio-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".bin"
	}
	in := filepath.Join(tmpDir, "input"+ext)
	out := filepath.Join(tmpDir, "output.wav")

	if err := os.WriteFile(in, audio, 0o600); err != nil {
		return nil, fmt.Errorf("writing input: %w", err)
	}

	// ffmpeg -y -i input -ac 1 -ar 16000 -f wav output
	cmd := exec.CommandContext(ctx, c.binary,
		"-hide_banner", "-loglevel", "error",
		"-y", "-i", in,
		"-ac", strconv.Itoa(c.format.Channels),
		"-ar", strconv.Itoa(c.format.SampleRate),
		"-sample_fmt", "s16",
		"-f", "wav",
		out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	converted, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("reading output: %w", err)
	}
	return converted, nil
}
