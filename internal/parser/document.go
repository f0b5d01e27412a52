package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/harrison/parallelizer/internal/models"
)

// decodeDocument decodes either a bare list or a mapping holding the list
// under key. The mapping's optional "name" is returned. Empty input decodes
// to nothing.
func decodeDocument(data []byte, format Format, key string, out interface{}) (string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return "", nil
	}
	if format == FormatJSON {
		return decodeJSONDocument(data, key, out)
	}
	return decodeYAMLDocument(data, key, out)
}

func decodeJSONDocument(data []byte, key string, out interface{}) (string, error) {
	trimmed := bytes.TrimSpace(data)
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, out); err != nil {
			return "", fmt.Errorf("failed to parse JSON: %w", err)
		}
		return "", nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return "", fmt.Errorf("failed to parse JSON: %w", err)
	}

	var name string
	if raw, ok := doc["name"]; ok {
		// A non-string name is ignored
		_ = json.Unmarshal(raw, &name)
	}

	raw, ok := doc[key]
	if !ok {
		return name, fmt.Errorf("missing %q list", key)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return name, fmt.Errorf("failed to parse %q: %w", key, err)
	}
	return name, nil
}

func decodeYAMLDocument(data []byte, key string, out interface{}) (string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return "", fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(root.Content) == 0 {
		return "", nil
	}

	doc := root.Content[0]
	switch doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(out); err != nil {
			return "", fmt.Errorf("failed to parse YAML: %w", err)
		}
		return "", nil
	case yaml.MappingNode:
		var name string
		var list *yaml.Node
		for i := 0; i+1 < len(doc.Content); i += 2 {
			switch doc.Content[i].Value {
			case "name":
				if doc.Content[i+1].Kind == yaml.ScalarNode {
					name = doc.Content[i+1].Value
				}
			case key:
				list = doc.Content[i+1]
			}
		}
		if list == nil {
			return name, fmt.Errorf("missing %q list", key)
		}
		if err := list.Decode(out); err != nil {
			return name, fmt.Errorf("failed to parse %q: %w", key, err)
		}
		return name, nil
	default:
		return "", fmt.Errorf("expected a list or a mapping with %q, got a scalar", key)
	}
}

// ParseResults reads execution results from a JSON or YAML document: a list,
// or a mapping with a "results" list. Missing optional fields stay empty.
func ParseResults(r io.Reader, format Format) ([]models.ExecutionResult, error) {
	var results []models.ExecutionResult
	if err := decodeReader(r, format, "results", &results); err != nil {
		return nil, err
	}
	if results == nil {
		results = []models.ExecutionResult{}
	}
	return results, nil
}

// ParseProgress reads agent snapshots from a list or an "agents" mapping.
func ParseProgress(r io.Reader, format Format) ([]models.AgentProgress, error) {
	var agents []models.AgentProgress
	if err := decodeReader(r, format, "agents", &agents); err != nil {
		return nil, err
	}
	if agents == nil {
		agents = []models.AgentProgress{}
	}
	return agents, nil
}

// ParseOutcomes reads task outcomes from a list or an "outcomes" mapping.
func ParseOutcomes(r io.Reader, format Format) ([]models.TaskOutcome, error) {
	var outcomes []models.TaskOutcome
	if err := decodeReader(r, format, "outcomes", &outcomes); err != nil {
		return nil, err
	}
	if outcomes == nil {
		outcomes = []models.TaskOutcome{}
	}
	return outcomes, nil
}

// ParseResultsFile reads execution results from path, or stdin for "-".
func ParseResultsFile(path string) ([]models.ExecutionResult, error) {
	var results []models.ExecutionResult
	err := withDocument(path, func(r io.Reader, format Format) error {
		var err error
		results, err = ParseResults(r, format)
		return err
	})
	return results, err
}

// ParseProgressFile reads agent snapshots from path, or stdin for "-".
func ParseProgressFile(path string) ([]models.AgentProgress, error) {
	var agents []models.AgentProgress
	err := withDocument(path, func(r io.Reader, format Format) error {
		var err error
		agents, err = ParseProgress(r, format)
		return err
	})
	return agents, err
}

// ParseOutcomesFile reads task outcomes from path, or stdin for "-".
func ParseOutcomesFile(path string) ([]models.TaskOutcome, error) {
	var outcomes []models.TaskOutcome
	err := withDocument(path, func(r io.Reader, format Format) error {
		var err error
		outcomes, err = ParseOutcomes(r, format)
		return err
	})
	return outcomes, err
}

func decodeReader(r io.Reader, format Format, key string, out interface{}) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	_, err = decodeDocument(data, format, key, out)
	return err
}

// withDocument opens path and hands it to fn with its detected format.
// Stdin and unknown extensions are read as YAML, which also accepts most JSON.
func withDocument(path string, fn func(io.Reader, Format) error) error {
	if path == "-" {
		return fn(os.Stdin, FormatYAML)
	}

	format := DetectFormat(path)
	switch format {
	case FormatMarkdown:
		return fmt.Errorf("%s: markdown is only supported for task lists", path)
	case FormatUnknown:
		format = FormatYAML
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if err := fn(file, format); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
