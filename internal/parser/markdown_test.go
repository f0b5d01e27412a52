package parser

import (
	"reflect"
	"strings"
	"testing"
)

const sampleMarkdown = `---
name: Checkout revamp
---
# Checkout

Intro text that is not part of any task.

## Task 1: Create the user model
**Duration**: 30m
**Resources**: ` + "`models/user.go`" + `, db/schema.sql

Define the User struct and its table.

## Task 2: Build the login API
**Estimated duration**: 1h30m
**Depends on**: Task 1

Uses the user model.

` + "```go" + `
// **Depends on**: Task 9
func Login() {}
` + "```" + `

## Task setup-ci: Configure CI
- **Duration**: 45 min
- **Depends on**: none
- **Resources**:
  - .github/workflows/ci.yml

## Notes

**Depends on**: Task 1
`

func TestMarkdownParser_Parse(t *testing.T) {
	tf, err := NewMarkdownParser().Parse(strings.NewReader(sampleMarkdown))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if tf.Name != "Checkout revamp" {
		t.Errorf("Name = %q, want frontmatter name", tf.Name)
	}
	if len(tf.Tasks) != 3 {
		t.Fatalf("got %d tasks, want 3: %+v", len(tf.Tasks), tf.Tasks)
	}

	first := tf.Tasks[0]
	if first.ID != "1" || first.EstimatedDuration != 30 {
		t.Errorf("task 1 = %+v", first)
	}
	if !reflect.DeepEqual(first.Resources, []string{"models/user.go", "db/schema.sql"}) {
		t.Errorf("task 1 resources = %v", first.Resources)
	}
	if first.Description != "Create the user model\nDefine the User struct and its table." {
		t.Errorf("task 1 description = %q", first.Description)
	}
	if len(first.DependsOn) != 0 {
		t.Errorf("task 1 should have no dependencies, got %v", first.DependsOn)
	}

	second := tf.Tasks[1]
	if second.EstimatedDuration != 90 {
		t.Errorf("task 2 duration = %g, want 90", second.EstimatedDuration)
	}
	if !reflect.DeepEqual(second.DependsOn, []string{"1"}) {
		t.Errorf("task 2 dependencies = %v, code blocks must be ignored", second.DependsOn)
	}

	third := tf.Tasks[2]
	if third.ID != "setup-ci" || third.EstimatedDuration != 45 {
		t.Errorf("task setup-ci = %+v", third)
	}
	if len(third.DependsOn) != 0 {
		t.Errorf("\"none\" should yield no dependencies, got %v", third.DependsOn)
	}
	if !reflect.DeepEqual(third.Resources, []string{".github/workflows/ci.yml"}) {
		t.Errorf("nested resource list = %v", third.Resources)
	}
}

func TestMarkdownParser_TitleFallback(t *testing.T) {
	tf, err := NewMarkdownParser().Parse(strings.NewReader("# Sprint 4\n\n## Task A: Only task\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if tf.Name != "Sprint 4" {
		t.Errorf("Name = %q, want first H1", tf.Name)
	}
	if len(tf.Tasks) != 1 || tf.Tasks[0].ID != "A" || tf.Tasks[0].Description != "Only task" {
		t.Errorf("Tasks = %+v", tf.Tasks)
	}
}

func TestMarkdownParser_Empty(t *testing.T) {
	tf, err := NewMarkdownParser().Parse(strings.NewReader("# Nothing here\n\nJust prose.\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if tf.Tasks == nil || len(tf.Tasks) != 0 {
		t.Errorf("Tasks = %#v, want empty non-nil slice", tf.Tasks)
	}
}

func TestMarkdownParser_InvalidDuration(t *testing.T) {
	_, err := NewMarkdownParser().Parse(strings.NewReader("## Task 1: Broken\n**Duration**: soon\n"))
	if err == nil || !strings.Contains(err.Error(), "task 1: invalid duration") {
		t.Errorf("Parse() error = %v, want invalid duration error", err)
	}
}

func TestMarkdownParser_InvalidFrontmatter(t *testing.T) {
	_, err := NewMarkdownParser().Parse(strings.NewReader("---\nname: [broken\n---\n## Task 1: x\n"))
	if err == nil {
		t.Error("expected frontmatter error")
	}
}

func TestParseMinutes(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "30", want: 30},
		{in: "2.5", want: 2.5},
		{in: "45 min", want: 45},
		{in: "10 minutes", want: 10},
		{in: "30m", want: 30},
		{in: "1h", want: 60},
		{in: "1.5h", want: 90},
		{in: "2h30m", want: 150},
		{in: "1h 15m", want: 75},
		{in: "-5", wantErr: true},
		{in: "later", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseMinutes(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseMinutes(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseMinutes(%q) = %g, want %g", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseDependencyList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "Task 1, 2", want: []string{"1", "2"}},
		{in: "task setup, `api`", want: []string{"setup", "api"}},
		{in: "none", want: nil},
		{in: "N/A", want: nil},
		{in: " , ", want: nil},
	}

	for _, tt := range tests {
		if got := parseDependencyList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseDependencyList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestExtractFrontmatter(t *testing.T) {
	body, fm := extractFrontmatter([]byte("---\nname: x\n---\nbody\n"))
	if string(fm) != "name: x" || string(body) != "body\n" {
		t.Errorf("extractFrontmatter() = %q, %q", body, fm)
	}

	content := []byte("---\nunterminated\nstill going\n")
	body, fm = extractFrontmatter(content)
	if fm != nil || string(body) != string(content) {
		t.Error("unterminated frontmatter should be left as content")
	}
}
