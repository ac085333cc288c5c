package export

import (
	"fmt"
	"strings"
	"time"

	"voice-journal/internal/domain"
)

func RenderMarkdown(meta Metadata, thoughts []domain.Thought) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", meta.title())
	if meta.Email != "" {
		fmt.Fprintf(&b, "- Account: %s\n", meta.Email)
	}
	if !meta.Generated.IsZero() {
		fmt.Fprintf(&b, "- Generated: %s\n", meta.local(meta.Generated).Format(time.RFC1123))
	}
	fmt.Fprintf(&b, "- Entries: %d\n", len(thoughts))
	b.WriteString("\n---\n\n")

	for _, t := range thoughts {
		fmt.Fprintf(&b, "## %s\n\n", meta.local(t.CreatedAt).Format("Monday, 2 January 2006 15:04"))

		details := []string{"Category: " + orUncategorized(t.Category)}
		if len(t.Tags) > 0 {
			tags := make([]string, len(t.Tags))
			for i, tag := range t.Tags {
				tags[i] = "#" + tag
			}
			details = append(details, "Tags: "+strings.Join(tags, " "))
		}
		if t.DurationSeconds > 0 {
			details = append(details, "Length: "+formatDuration(t.DurationSeconds))
		}
		fmt.Fprintf(&b, "_%s_\n\n", strings.Join(details, " · "))

		fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(t.Text()))
	}

	return b.String()
}

func orUncategorized(category string) string {
	if category == "" {
		return domain.CategoryUncategorized
	}
	return category
}

func formatDuration(sec float64) string {
	d := time.Duration(sec * float64(time.Second)).Round(time.Second)
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", m, s)
}
