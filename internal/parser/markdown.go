package parser

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/harrison/parallelizer/internal/models"
)

// MarkdownParser reads task lists written as "## Task <id>: <description>"
// sections. Metadata lines inside a section set the task fields:
//
//	**Duration**: 1h30m
//	**Depends on**: Task 1, 2
//	**Resources**: models/user.go, db/schema.sql
//
// Any other paragraph text is appended to the description.
type MarkdownParser struct {
	markdown goldmark.Markdown
}

var (
	taskHeadingRegex = regexp.MustCompile(`^Task\s+([A-Za-z0-9_.-]+)\s*:\s*(.+)$`)
	metadataRegex    = regexp.MustCompile(`^\*\*([A-Za-z ]+?)(?::\*\*|\*\*\s*:)\s*(.*)$`)
	taskPrefixRegex  = regexp.MustCompile(`(?i)^task\s+`)
)

// markdownFrontmatter is the optional YAML block at the top of a task list
type markdownFrontmatter struct {
	Name string `yaml:"name"`
}

func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{
		markdown: goldmark.New(),
	}
}

func (p *MarkdownParser) Parse(r io.Reader) (*TaskFile, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	tf := &TaskFile{}
	content, frontmatter := extractFrontmatter(content)
	if frontmatter != nil {
		var fm markdownFrontmatter
		if err := yaml.Unmarshal(frontmatter, &fm); err != nil {
			return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
		}
		tf.Name = fm.Name
	}

	doc := p.markdown.Parser().Parse(text.NewReader(content))

	b := &taskBuilder{source: content}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if err := b.visit(n); err != nil {
			return nil, err
		}
	}
	b.flush()

	if tf.Name == "" {
		tf.Name = b.title
	}
	tf.Tasks = b.tasks
	if tf.Tasks == nil {
		tf.Tasks = []models.Task{}
	}
	return tf, nil
}

// taskBuilder accumulates tasks while visiting top-level blocks in order.
type taskBuilder struct {
	source  []byte
	title   string
	tasks   []models.Task
	current *models.Task
	body    []string

	// pendingKey is a metadata key whose values follow as a bullet list
	pendingKey string
}

func (b *taskBuilder) visit(n ast.Node) error {
	switch node := n.(type) {
	case *ast.Heading:
		if node.Level > 2 {
			return nil
		}
		b.flush()
		heading := nodeText(node, b.source)
		if node.Level == 1 {
			if b.title == "" {
				b.title = heading
			}
			return nil
		}
		if m := taskHeadingRegex.FindStringSubmatch(heading); m != nil {
			b.current = &models.Task{ID: m[1], Description: strings.TrimSpace(m[2])}
		}
	case *ast.Paragraph:
		if b.current == nil {
			return nil
		}
		return b.lines(blockLines(node, b.source))
	case *ast.List:
		if b.current == nil {
			return nil
		}
		return b.list(node)
	default:
		// Code blocks, quotes and tables carry no task metadata
		b.pendingKey = ""
	}
	return nil
}

// list visits bullet items. Items following a label with no value on its
// own line ("**Resources**:") become that label's values.
func (b *taskBuilder) list(node *ast.List) error {
	key := b.pendingKey
	b.pendingKey = ""
	for item := node.FirstChild(); item != nil; item = item.NextSibling() {
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			switch child := c.(type) {
			case *ast.TextBlock, *ast.Paragraph:
				lines := blockLines(child, b.source)
				if key == "" {
					if err := b.lines(lines); err != nil {
						return err
					}
					continue
				}
				for _, line := range lines {
					if err := b.apply(key, line); err != nil {
						return err
					}
				}
			case *ast.List:
				if err := b.list(child); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// lines applies metadata lines and collects the rest as description text.
func (b *taskBuilder) lines(lines []string) error {
	for _, line := range lines {
		m := metadataRegex.FindStringSubmatch(line)
		if m == nil || metadataKey(m[1]) == "" {
			b.body = append(b.body, line)
			b.pendingKey = ""
			continue
		}

		key, value := metadataKey(m[1]), strings.TrimSpace(m[2])
		if value == "" {
			b.pendingKey = key
			continue
		}
		b.pendingKey = ""
		if err := b.apply(key, value); err != nil {
			return err
		}
	}
	return nil
}

func (b *taskBuilder) apply(key, value string) error {
	switch key {
	case "duration":
		minutes, err := parseMinutes(value)
		if err != nil {
			return fmt.Errorf("task %s: invalid duration %q: %w", b.current.ID, value, err)
		}
		b.current.EstimatedDuration = minutes
	case "depends":
		b.current.DependsOn = append(b.current.DependsOn, parseDependencyList(value)...)
	case "resources":
		b.current.Resources = append(b.current.Resources, splitList(value)...)
	}
	return nil
}

func (b *taskBuilder) flush() {
	if b.current != nil {
		if len(b.body) > 0 {
			b.current.Description += "\n" + strings.Join(b.body, " ")
		}
		b.tasks = append(b.tasks, *b.current)
	}
	b.current = nil
	b.body = nil
	b.pendingKey = ""
}

// metadataKey maps a bold label to a task field, or "" for unknown labels.
func metadataKey(label string) string {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "duration", "estimated duration", "estimate", "time":
		return "duration"
	case "depends on", "dependencies", "dependency", "depends":
		return "depends"
	case "resources", "resource", "files", "file":
		return "resources"
	default:
		return ""
	}
}

// parseDependencyList parses "Task 1, 2, `setup`". "none" yields nothing.
func parseDependencyList(value string) []string {
	var deps []string
	for _, part := range splitList(value) {
		switch strings.ToLower(part) {
		case "none", "n/a", "-":
			continue
		}
		part = strings.TrimSpace(taskPrefixRegex.ReplaceAllString(part, ""))
		if part != "" {
			deps = append(deps, part)
		}
	}
	return deps
}

// splitList splits a comma separated value, dropping backticks and blanks.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(strings.Trim(strings.TrimSpace(part), "`"))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseMinutes accepts plain numbers (minutes), "45 min", and Go durations
// such as "30m", "1.5h" or "2h30m".
func parseMinutes(s string) (float64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for _, suffix := range []string{"minutes", "minute", "mins", "min"} {
		if strings.HasSuffix(s, suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
			break
		}
	}

	if minutes, err := strconv.ParseFloat(s, 64); err == nil {
		if minutes < 0 {
			return 0, fmt.Errorf("must be >= 0")
		}
		return minutes, nil
	}

	d, err := time.ParseDuration(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must be >= 0")
	}
	return d.Minutes(), nil
}

// blockLines returns the trimmed, non-empty raw source lines of a block.
func blockLines(n ast.Node, source []byte) []string {
	var out []string
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		if line := strings.TrimSpace(string(seg.Value(source))); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// nodeText concatenates the inline text under n.
func nodeText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}

// extractFrontmatter extracts YAML frontmatter from markdown content
// Returns the content without frontmatter and the frontmatter bytes
func extractFrontmatter(content []byte) ([]byte, []byte) {
	lines := bytes.Split(content, []byte("\n"))

	if len(lines) < 3 || !bytes.Equal(bytes.TrimSpace(lines[0]), []byte("---")) {
		return content, nil
	}

	for i := 1; i < len(lines); i++ {
		if bytes.Equal(bytes.TrimSpace(lines[i]), []byte("---")) {
			frontmatter := bytes.Join(lines[1:i], []byte("\n"))
			body := bytes.Join(lines[i+1:], []byte("\n"))
			return body, frontmatter
		}
	}

	// No closing delimiter found
	return content, nil
}
