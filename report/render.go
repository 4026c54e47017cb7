package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Summary is everything a rendered report needs, decoupled from the
// pipeline's result type.
type Summary struct {
	Title    string
	Stats    map[string]int64
	Findings []Finding
	Issues   []Issue
}

// RenderMarkdown produces the sanitization report as Markdown.
func RenderMarkdown(s Summary) []byte {
	var b bytes.Buffer
	title := s.Title
	if title == "" {
		title = "Sanitization report"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	if len(s.Stats) > 0 {
		b.WriteString("## Statistics\n\n")
		keys := make([]string, 0, len(s.Stats))
		for k := range s.Stats {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("| Metric | Value |\n|---|---|\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "| %s | %d |\n", k, s.Stats[k])
		}
		b.WriteString("\n")
	}

	if len(s.Findings) > 0 {
		fmt.Fprintf(&b, "## Findings (%d)\n\n", len(s.Findings))
		for _, f := range s.Findings {
			loc := "document"
			if f.Ref != nil {
				loc = f.Ref.String()
			}
			fmt.Fprintf(&b, "- **%s** `%s` at %s (confidence %.2f): %s\n",
				strings.ToUpper(f.Severity.String()), f.Kind, loc, f.Confidence, f.Description)
		}
		b.WriteString("\n")
	}

	if len(s.Issues) > 0 {
		fmt.Fprintf(&b, "## Issues (%d)\n\n", len(s.Issues))
		for _, i := range s.Issues {
			fmt.Fprintf(&b, "- %s\n", i.String())
		}
		b.WriteString("\n")
	}
	return b.Bytes()
}

// RenderHTML converts the Markdown report to HTML.
func RenderHTML(s Summary) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var out bytes.Buffer
	if err := md.Convert(RenderMarkdown(s), &out); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return out.Bytes(), nil
}
