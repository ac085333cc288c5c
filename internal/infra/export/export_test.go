package export_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"voice-journal/internal/domain"
	"voice-journal/internal/infra/export"
)

func sampleThoughts() []domain.Thought {
	return []domain.Thought{
		{
			ID:              "t2",
			RawTranscript:   "um so the garden",
			CleanedText:     "The garden needs water — and café tables.",
			Tags:            []string{"garden", "home"},
			Category:        "personal",
			DurationSeconds: 75,
			CreatedAt:       time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC),
		},
		{
			ID:            "t1",
			RawTranscript: "Quarterly review went fine.",
			CreatedAt:     time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC),
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]export.Format{
		"":         export.FormatMarkdown,
		"md":       export.FormatMarkdown,
		"Markdown": export.FormatMarkdown,
		"PDF":      export.FormatPDF,
	}
	for in, want := range tests {
		got, err := export.ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q): got %q, %v", in, got, err)
		}
	}

	if _, err := export.ParseFormat("docx"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("ParseFormat(docx): got %v", err)
	}
}

func TestRenderMarkdown(t *testing.T) {
	meta := export.Metadata{Email: "a@example.com", Generated: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)}

	md := export.RenderMarkdown(meta, sampleThoughts())

	wants := []string{
		"# Voice Journal",
		"- Account: a@example.com",
		"- Entries: 2",
		"## Monday, 2 March 2026 08:30",
		"Tags: #garden #home",
		"Length: 1:15",
		"The garden needs water",
		"Category: uncategorized",
		"Quarterly review went fine.",
	}
	for _, want := range wants {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}

	if strings.Index(md, "garden needs water") > strings.Index(md, "Quarterly review") {
		t.Error("entries should keep the given order")
	}
}

func TestRenderPDF(t *testing.T) {
	data, err := export.RenderPDF(export.Metadata{Generated: time.Now()}, sampleThoughts())
	if err != nil {
		t.Fatalf("RenderPDF: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Errorf("output does not look like a PDF: %q", data[:min(len(data), 16)])
	}

	empty, err := export.RenderPDF(export.Metadata{}, nil)
	if err != nil || len(empty) == 0 {
		t.Errorf("empty export: %d bytes, %v", len(empty), err)
	}
}

func TestRender_Dispatch(t *testing.T) {
	data, err := export.Render(export.FormatMarkdown, export.Metadata{}, nil)
	if err != nil || !strings.HasPrefix(string(data), "# Voice Journal") {
		t.Errorf("Render markdown: %q, %v", data, err)
	}

	if export.FormatPDF.ContentType() != "application/pdf" {
		t.Errorf("ContentType: %s", export.FormatPDF.ContentType())
	}
	if got := export.FormatPDF.Filename(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)); got != "journal-2026-01-02.pdf" {
		t.Errorf("Filename: %s", got)
	}
}
