package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/harrison/parallelizer/internal/filelock"
)

// exportDocument is the on-disk form of an exported run.
type exportDocument struct {
	Run    `yaml:",inline"`
	Report interface{} `json:"report" yaml:"report"`
}

// EncodeRun renders run with its decoded report as "json" or "yaml".
func EncodeRun(run *Run, format string) ([]byte, error) {
	var report interface{}
	if run.Report != "" {
		if err := json.Unmarshal([]byte(run.Report), &report); err != nil {
			return nil, fmt.Errorf("decode stored report for run %s: %w", run.ID, err)
		}
	}
	doc := exportDocument{Run: *run, Report: report}

	switch strings.ToLower(format) {
	case "json":
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode run %s: %w", run.ID, err)
		}
		return append(data, '\n'), nil
	case "yaml", "yml":
		data, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encode run %s: %w", run.ID, err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (want json or yaml)", format)
	}
}

// FormatForPath picks the export format from the file extension, falling
// back to json.
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

// ExportRun writes the run matching id to path while holding a lock on the
// destination. An empty format is derived from the path extension.
func (s *Store) ExportRun(ctx context.Context, id, path, format string) (*Run, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = FormatForPath(path)
	}

	data, err := EncodeRun(run, format)
	if err != nil {
		return nil, err
	}
	if err := filelock.LockAndWrite(ctx, path, data); err != nil {
		return nil, fmt.Errorf("export run %s: %w", run.ID, err)
	}
	return run, nil
}
