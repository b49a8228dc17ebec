package explain

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// echoLines are prompt lines some backends echo back verbatim.
var echoLines = map[string]bool{
	"Explain this code across projects.":          true,
	"Explain the following code across projects.": true,
}

// FormatAsMarkdown cleans an explanation for display: fenced code is
// dropped, echoed prompt lines are removed, "Context sources:" becomes a
// heading, list items lose ": unknown" suffixes and runs of blank lines
// collapse to one.
func FormatAsMarkdown(content string) string {
	var out []string
	inFence := false

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence || echoLines[trimmed] {
			continue
		}

		switch {
		case strings.HasPrefix(line, "Context sources:"):
			out = append(out, "## Context Sources\n")
		case strings.HasPrefix(trimmed, "- "):
			cleaned := strings.TrimSuffix(line, ": unknown")
			cleaned = strings.TrimSuffix(cleaned, ": "+unknownSource)
			if strings.TrimSpace(cleaned) != "-" {
				out = append(out, cleaned)
			}
		case trimmed != "":
			out = append(out, line)
		case len(out) == 0 || out[len(out)-1] != "":
			out = append(out, "")
		}
	}
	return strings.Join(out, "\n")
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

var htmlPage = template.Must(template.New("explain").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { max-width: 860px; margin: 24px auto; padding: 0 16px; background: #020617; color: #e2e8f0; font: 14px/1.5 system-ui, sans-serif; }
code, pre { background: #0f172a; border-radius: 4px; }
a { color: #38bdf8; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>`))

// RenderHTML converts markdown into a standalone HTML page.
func RenderHTML(title, md string) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(md), &body); err != nil {
		return nil, fmt.Errorf("explain: convert markdown: %w", err)
	}
	var page bytes.Buffer
	err := htmlPage.Execute(&page, struct {
		Title string
		Body  template.HTML
	}{Title: title, Body: template.HTML(body.String())})
	if err != nil {
		return nil, fmt.Errorf("explain: render page: %w", err)
	}
	return page.Bytes(), nil
}
