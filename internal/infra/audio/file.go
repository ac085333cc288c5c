package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"voice-journal/internal/application"
)

var supportedExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".webm": true,
	".ogg":  true,
	".flac": true,
}

// IsSupported reports whether the file extension is one the API accepts.
func IsSupported(name string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(name))]
}

// FileSource watches a directory and yields each new audio file once.
type FileSource struct {
	dir       string
	interval  time.Duration
	processed map[string]bool
	mu        sync.Mutex
}

func NewFileSource(dir string) *FileSource {
	return &FileSource{
		dir:       dir,
		interval:  500 * time.Millisecond,
		processed: make(map[string]bool),
	}
}

func (f *FileSource) Name() string {
	return "file"
}

func (f *FileSource) Start(_ context.Context) error {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("creating audio dir: %w", err)
	}
	return nil
}

func (f *FileSource) Stop() error {
	return nil
}

func (f *FileSource) Next(ctx context.Context) (*application.Recording, error) {
	if rec, err := f.checkForNewFile(); err != nil || rec != nil {
		return rec, err
	}

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			rec, err := f.checkForNewFile()
			if err != nil {
				return nil, err
			}
			if rec != nil {
				return rec, nil
			}
		}
	}
}

func (f *FileSource) checkForNewFile() (*application.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("reading dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsSupported(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(f.dir, name)
		if f.processed[path] {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", name, err)
		}

		f.processed[path] = true
		return &application.Recording{Filename: name, Data: data}, nil
	}

	return nil, nil
}

// LoadFile reads a single audio file for upload.
func LoadFile(path string) (*application.Recording, error) {
	if !IsSupported(path) {
		return nil, fmt.Errorf("unsupported audio format %q", filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading audio file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("audio file %s is empty", path)
	}

	return &application.Recording{Filename: filepath.Base(path), Data: data}, nil
}
