package detect

import (
	"context"
	"strings"

	"golang.org/x/net/html"

	"pdfsan/ir/raw"
	"pdfsan/report"
)

// RichTextDetector parses annotation rich-content (RC) values as HTML
// and flags content a viewer would not render: hidden styling and
// script elements. PDF rich text is an XHTML subset, so the tolerant
// x/net/html parser accepts the malformed variants found in the wild.
type RichTextDetector struct {
	cfg Config
}

func NewRichTextDetector(cfg Config) *RichTextDetector {
	return &RichTextDetector{cfg: cfg}
}

func (d *RichTextDetector) Name() string { return "richtext" }

func (d *RichTextDetector) Detect(_ context.Context, ref raw.ObjectRef, obj raw.Object) ([]report.Finding, []report.Issue) {
	dict, ok := obj.(raw.Dictionary)
	if !ok {
		return nil, nil
	}
	rc, ok := raw.DictStr(dict, "RC")
	if !ok || len(rc) == 0 {
		return nil, nil
	}
	root, err := html.Parse(strings.NewReader(decodeText(rc)))
	if err != nil {
		return nil, []report.Issue{{
			Severity:    report.SeverityLow,
			Ref:         refOf(ref),
			Description: "rich text value does not parse",
			Err:         err,
		}}
	}

	var findings []report.Finding
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.Data == "script" {
				findings = append(findings, report.Finding{
					Kind:        report.KindJavaScript,
					Ref:         refOf(ref),
					Description: "script element in annotation rich text",
					Confidence:  0.95,
					Severity:    report.SeverityHigh,
					Context:     clip(textContent(n), d.cfg.ContextSize),
				})
			}
			if style := attr(n, "style"); hiddenStyle(style) {
				findings = append(findings, report.Finding{
					Kind:        report.KindHiddenText,
					Ref:         refOf(ref),
					Description: "hidden text in annotation rich text",
					Confidence:  0.85,
					Severity:    report.SeverityMedium,
					Context:     clip(textContent(n), d.cfg.ContextSize),
				})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return findings, nil
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// hiddenStyle reports whether an inline style makes the element
// invisible while its text stays in the document.
func hiddenStyle(style string) bool {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	return strings.Contains(s, "display:none") ||
		strings.Contains(s, "visibility:hidden") ||
		strings.Contains(s, "font-size:0")
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
