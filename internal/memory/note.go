// Package memory manages pinned snippets stored as markdown notes under
// .linggen/memory/ and the "linggen memory: <id>" references that point at
// them from source code.
package memory

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Dir is the memory directory relative to a workspace root.
const Dir = ".linggen/memory"

const (
	frontmatterDelim = "---"
	summaryMax       = 80
	stampLayout      = "20060102-150405"
)

// ErrNotFound is returned by Find when no note carries the id.
var ErrNotFound = errors.New("memory: note not found")

var unsafeName = regexp.MustCompile(`[^\w.-]+`)

// Frontmatter is the YAML header of a note.
type Frontmatter struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name,omitempty"`
	Summary string `yaml:"summary,omitempty"`
	File    string `yaml:"file,omitempty"`
	Lines   string `yaml:"lines,omitempty"`
	Created string `yaml:"created,omitempty"`
}

// Note is a parsed memory file.
type Note struct {
	Path string
	Meta Frontmatter
	Body string
}

// ---------------------------------------------------------------------------
// Pin
// ---------------------------------------------------------------------------

// PinRequest describes a selection to pin. Lines are 1-based and may be
// given in either order.
type PinRequest struct {
	File      string // absolute or workspace-relative path of the source file
	StartLine int
	EndLine   int
	Code      string
	Note      string
	Language  string
}

// Stamp formats t the way note file names and "When" lines use it.
func Stamp(t time.Time) string {
	return t.Format(stampLayout)
}

// Pin writes a new note under root/.linggen/memory and returns it.
func Pin(root string, req PinRequest, now time.Time) (Note, error) {
	if strings.TrimSpace(req.Code) == "" {
		return Note{}, errors.New("memory: pin: empty selection")
	}
	start, end := req.StartLine, req.EndLine
	if start > end {
		start, end = end, start
	}

	rel := req.File
	if filepath.IsAbs(rel) {
		if r, err := filepath.Rel(root, rel); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
		}
	}
	rel = filepath.ToSlash(rel)

	base := unsafeName.ReplaceAllString(filepath.Base(req.File), "_")
	stamp := Stamp(now)
	name := fmt.Sprintf("%s-%s-L%d-L%d.md", stamp, base, start, end)

	note := strings.TrimSpace(req.Note)
	meta := Frontmatter{
		ID:      uuid.New().String(),
		Name:    base,
		Summary: summarize(note),
		File:    rel,
		Lines:   fmt.Sprintf("%d-%d", start, end),
		Created: now.Format(time.RFC3339),
	}
	if note == "" {
		note = "(empty)"
	}

	body := strings.Join([]string{
		"# Pin: " + base,
		"",
		fmt.Sprintf("- **File**: `%s:%d-%d`", rel, start, end),
		"- **When**: " + stamp,
		"",
		"## Note",
		note,
		"",
		"## Snippet",
		strings.TrimRight("```"+req.Language, " "),
		req.Code,
		"```",
		"",
	}, "\n")

	dir := filepath.Join(root, Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Note{}, fmt.Errorf("memory: create %s: %w", dir, err)
	}
	data, err := encode(meta, body)
	if err != nil {
		return Note{}, err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Note{}, fmt.Errorf("memory: write %s: %w", path, err)
	}
	return Note{Path: path, Meta: meta, Body: body}, nil
}

// summarize takes the first line of the note, capped.
func summarize(note string) string {
	first, _, _ := strings.Cut(note, "\n")
	return truncate(strings.TrimSpace(first), summaryMax)
}

func encode(meta Frontmatter, body string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(frontmatterDelim + "\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(meta); err != nil {
		return nil, fmt.Errorf("memory: encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("memory: encode frontmatter: %w", err)
	}
	buf.WriteString(frontmatterDelim + "\n\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}

// ---------------------------------------------------------------------------
// Load / Find
// ---------------------------------------------------------------------------

var (
	nameLine    = regexp.MustCompile(`name:\s*(.*)`)
	summaryLine = regexp.MustCompile(`summary:\s*(.*)`)
)

// Parse splits a note into frontmatter and body. Files without a YAML
// header (hand-written notes) fall back to scanning for "name:" and
// "summary:" lines.
func Parse(path string, data []byte) Note {
	text := string(data)
	n := Note{Path: path, Body: text}

	if rest, ok := strings.CutPrefix(text, frontmatterDelim+"\n"); ok {
		if header, body, ok := strings.Cut(rest, "\n"+frontmatterDelim+"\n"); ok {
			var meta Frontmatter
			if err := yaml.Unmarshal([]byte(header), &meta); err == nil {
				n.Meta = meta
				n.Body = strings.TrimPrefix(body, "\n")
				return n
			}
		}
	}

	if m := nameLine.FindStringSubmatch(text); m != nil {
		n.Meta.Name = strings.TrimSpace(m[1])
	}
	if m := summaryLine.FindStringSubmatch(text); m != nil {
		n.Meta.Summary = strings.TrimSpace(m[1])
	}
	return n
}

// Load reads and parses a note file.
func Load(path string) (Note, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Note{}, fmt.Errorf("memory: read %s: %w", path, err)
	}
	return Parse(path, data), nil
}

// Find locates the note for id under root: first <id>.md, then any note
// whose frontmatter id matches or whose text contains "id: <id>".
func Find(root, id string) (string, error) {
	dir := filepath.Join(root, Dir)

	direct := filepath.Join(dir, id+".md")
	if info, err := os.Stat(direct); err == nil && !info.IsDir() {
		return direct, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("memory: read %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if Parse(path, data).Meta.ID == id || bytes.Contains(data, []byte("id: "+id)) {
			return path, nil
		}
	}
	return "", ErrNotFound
}

// ---------------------------------------------------------------------------
// References
// ---------------------------------------------------------------------------

var referencePattern = regexp.MustCompile(`linggen memory: ([\w-]+)`)

// Reference is one "linggen memory: <id>" occurrence in a document.
type Reference struct {
	ID     string `json:"id"`
	Line   int    `json:"line"`   // 1-based
	Offset int    `json:"offset"` // byte offset of the end of the match
}

// References finds every memory reference in text.
func References(text string) []Reference {
	var refs []Reference
	for _, m := range referencePattern.FindAllStringSubmatchIndex(text, -1) {
		refs = append(refs, Reference{
			ID:     text[m[2]:m[3]],
			Line:   strings.Count(text[:m[0]], "\n") + 1,
			Offset: m[1],
		})
	}
	return refs
}

// ---------------------------------------------------------------------------
// Display
// ---------------------------------------------------------------------------

// Hint is the inline label shown after a reference: " | name: summary"
// with the summary cut at 40 characters, " | name", or " | summary" cut at
// 50. It is "" when the note has neither.
func Hint(n Note) string {
	name := strings.TrimSpace(n.Meta.Name)
	summary := strings.TrimSpace(n.Meta.Summary)
	switch {
	case name != "" && summary != "":
		return " | " + name + ": " + truncate(summary, 40)
	case name != "":
		return " | " + name
	case summary != "":
		return " | " + truncate(summary, 50)
	}
	return ""
}

// Title is the action label for a reference.
func Title(id string, n *Note) string {
	if n != nil && strings.TrimSpace(n.Meta.Name) != "" {
		return "Open Linggen Memory: " + strings.TrimSpace(n.Meta.Name)
	}
	return "Open Linggen Memory (" + id + ")"
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
