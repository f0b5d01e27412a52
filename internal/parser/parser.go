// Package parser reads task lists, execution results, progress snapshots
// and task outcomes from Markdown, YAML and JSON files.
package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/harrison/parallelizer/internal/models"
)

// Format represents the format of an input file
type Format int

const (
	// FormatUnknown represents an unknown or unsupported file format
	FormatUnknown Format = iota
	// FormatMarkdown represents a Markdown (.md, .markdown) task list
	FormatMarkdown
	// FormatYAML represents a YAML (.yaml, .yml) document
	FormatYAML
	// FormatJSON represents a JSON (.json) document
	FormatJSON
)

// String returns the string representation of the Format
func (f Format) String() string {
	switch f {
	case FormatMarkdown:
		return "markdown"
	case FormatYAML:
		return "yaml"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// TaskFile is a parsed task list.
type TaskFile struct {
	Name     string        `json:"name,omitempty" yaml:"name,omitempty"`
	Tasks    []models.Task `json:"tasks" yaml:"tasks"`
	FilePath string        `json:"-" yaml:"-"`
}

// Parser is the interface that all task list parsers must implement
type Parser interface {
	// Parse reads from an io.Reader and returns the parsed task list
	Parse(r io.Reader) (*TaskFile, error)
}

// DetectFormat automatically detects the file format based on file extension
// Supported extensions:
//   - .md, .markdown -> FormatMarkdown
//   - .yaml, .yml -> FormatYAML
//   - .json -> FormatJSON
//   - all others -> FormatUnknown
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown":
		return FormatMarkdown
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	default:
		return FormatUnknown
	}
}

// NewParser creates a new task list parser for the specified format
// Returns an error if the format is unknown or unsupported
func NewParser(format Format) (Parser, error) {
	switch format {
	case FormatMarkdown:
		return NewMarkdownParser(), nil
	case FormatYAML, FormatJSON:
		return &documentParser{format: format}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %v", format)
	}
}

// documentParser reads task lists from YAML or JSON documents.
type documentParser struct {
	format Format
}

func (p *documentParser) Parse(r io.Reader) (*TaskFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	var tasks []models.Task
	name, err := decodeDocument(data, p.format, "tasks", &tasks)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return &TaskFile{Name: name, Tasks: tasks}, nil
}

// ParseFile is a convenience function that:
//  1. Detects if input is a directory (split task list) or file
//  2. For directories, calls ParseDirectory to load numbered files
//  3. For files, auto-detects format, opens it, and parses
//  4. Stores the absolute file path in TaskFile.FilePath
//
// A path of "-" reads a YAML or JSON task list from stdin.
func ParseFile(path string) (*TaskFile, error) {
	if path == "-" {
		return (&documentParser{format: FormatYAML}).Parse(os.Stdin)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}

	if info.IsDir() {
		return ParseDirectory(path)
	}

	tf, err := parseFile(path)
	if err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	tf.FilePath = absPath
	return tf, nil
}

// parseFile parses a single file after detecting its format
func parseFile(path string) (*TaskFile, error) {
	format := DetectFormat(path)
	if format == FormatUnknown {
		return nil, fmt.Errorf("unknown file format: %s (supported: .md, .markdown, .yaml, .yml, .json)", path)
	}

	parser, err := NewParser(format)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	tf, err := parser.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse task list: %w", err)
	}
	return tf, nil
}

var splitFilePattern = regexp.MustCompile(`^(\d+)-`)

// IsSplitTaskList detects if a directory contains numbered task files
// (1-setup.md, 2-api.yaml, ...)
func IsSplitTaskList(dirname string) bool {
	entries, err := os.ReadDir(dirname)
	if err != nil {
		return false
	}

	for _, entry := range entries {
		if !entry.IsDir() && splitFilePattern.MatchString(entry.Name()) && DetectFormat(entry.Name()) != FormatUnknown {
			return true
		}
	}
	return false
}

// ParseDirectory loads all numbered task files from a directory
// and merges them into a single task list, in file number order.
func ParseDirectory(dirname string) (*TaskFile, error) {
	return ParseDirectoryWithProgress(dirname, nil)
}

// ParseDirectoryWithProgress is ParseDirectory with a callback invoked before
// each numbered file is parsed. index is 1-based.
func ParseDirectoryWithProgress(dirname string, onFile func(path string, index, total int)) (*TaskFile, error) {
	info, err := os.Stat(dirname)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dirname)
	}

	entries, err := os.ReadDir(dirname)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	type taskFileEntry struct {
		index int
		path  string
		name  string
	}

	var files []taskFileEntry
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		match := splitFilePattern.FindStringSubmatch(entry.Name())
		if match == nil || DetectFormat(entry.Name()) == FormatUnknown {
			continue
		}

		var index int
		fmt.Sscanf(match[1], "%d", &index)
		files = append(files, taskFileEntry{index, filepath.Join(dirname, entry.Name()), entry.Name()})
	}

	absPath, err := filepath.Abs(dirname)
	if err != nil {
		absPath = dirname
	}

	if len(files) == 0 {
		return &TaskFile{Name: filepath.Base(dirname), Tasks: []models.Task{}, FilePath: absPath}, nil
	}

	sort.SliceStable(files, func(i, j int) bool { return files[i].index < files[j].index })

	var parts []*TaskFile
	for i, f := range files {
		if onFile != nil {
			onFile(f.path, i+1, len(files))
		}
		tf, err := parseFile(f.path)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", f.name, err)
		}
		parts = append(parts, tf)
	}

	merged, err := MergeTaskFiles(parts...)
	if err != nil {
		return nil, err
	}
	if merged.Name == "" {
		merged.Name = filepath.Base(dirname)
	}
	merged.FilePath = absPath
	return merged, nil
}

// MergeTaskFiles concatenates task lists in order. Duplicate task ids are an error.
func MergeTaskFiles(files ...*TaskFile) (*TaskFile, error) {
	merged := &TaskFile{Tasks: []models.Task{}}
	seen := make(map[string]bool)

	for _, tf := range files {
		if tf == nil {
			continue
		}
		if merged.Name == "" {
			merged.Name = tf.Name
		}
		for _, task := range tf.Tasks {
			if seen[task.ID] {
				return nil, fmt.Errorf("duplicate task id: %s", task.ID)
			}
			seen[task.ID] = true
			merged.Tasks = append(merged.Tasks, task)
		}
	}
	return merged, nil
}
