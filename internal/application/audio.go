package application

import (
	"context"
	"encoding/binary"
	"time"
)

// AudioConverter normalises uploaded audio into a format the speech provider accepts.
type AudioConverter interface {
	Convert(ctx context.Context, audio []byte, filename string) ([]byte, error)
}

type AudioFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

func DefaultAudioFormat() AudioFormat {
	return AudioFormat{
		SampleRate: 16000,
		Channels:   1,
		BitDepth:   16,
	}
}

// WAVDuration reads the duration of a PCM WAV file from its header.
// It returns false for anything that is not a well-formed RIFF/WAVE stream.
func WAVDuration(data []byte) (time.Duration, bool) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0, false
	}

	var byteRate uint32
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		body := offset + 8

		switch chunkID {
		case "fmt ":
			if body+12 > len(data) {
				return 0, false
			}
			byteRate = binary.LittleEndian.Uint32(data[body+8 : body+12])
		case "data":
			if byteRate == 0 {
				return 0, false
			}
			size := int64(chunkSize)
			// ffmpeg writes 0xFFFFFFFF when streaming to a pipe
			if available := int64(len(data) - body); size > available {
				size = available
			}
			return time.Duration(float64(size) / float64(byteRate) * float64(time.Second)), true
		}

		offset = body + int(chunkSize)
		if chunkSize%2 == 1 {
			offset++
		}
	}

	return 0, false
}

type Recording struct {
	Filename string
	Data     []byte
}

// RecordingSource yields finished recordings, one per call to Next.
type RecordingSource interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Next(ctx context.Context) (*Recording, error)
}
