package export

import (
	"fmt"
	"strings"
	"time"

	"voice-journal/internal/domain"
)

type Format string

const (
	FormatMarkdown Format = "md"
	FormatPDF      Format = "pdf"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unknown export format %q: %w", s, domain.ErrInvalidInput)
	}
}

func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/markdown; charset=utf-8"
}

func (f Format) Filename(generated time.Time) string {
	return fmt.Sprintf("journal-%s.%s", generated.Format("2006-01-02"), f)
}

type Metadata struct {
	Title     string
	Email     string
	Generated time.Time
	// Location is used for entry dates; UTC when nil.
	Location *time.Location
}

func (m Metadata) title() string {
	if m.Title != "" {
		return m.Title
	}
	return "Voice Journal"
}

func (m Metadata) local(t time.Time) time.Time {
	if m.Location != nil {
		return t.In(m.Location)
	}
	return t.UTC()
}

// Render writes thoughts in the requested format.
func Render(f Format, meta Metadata, thoughts []domain.Thought) ([]byte, error) {
	switch f {
	case FormatMarkdown:
		return []byte(RenderMarkdown(meta, thoughts)), nil
	case FormatPDF:
		return RenderPDF(meta, thoughts)
	default:
		return nil, fmt.Errorf("unknown export format %q: %w", f, domain.ErrInvalidInput)
	}
}
