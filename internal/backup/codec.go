// Package backup encodes snapshots and writes them on a schedule with retention.
package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hylla/shopfloor/internal/app"
)

// Format names one snapshot encoding.
type Format string

// Supported snapshot formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat reports an unsupported snapshot format name.
var ErrUnknownFormat = errors.New("unknown snapshot format")

// ParseFormat parses json, yaml, or yml.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
	}
}

// FormatFromPath picks a format from the file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Ext returns the file extension for f.
func (f Format) Ext() string {
	if f == FormatYAML {
		return ".yaml"
	}
	return ".json"
}

// EncodeSnapshot writes snap to w in the requested format.
// YAML output keeps the JSON field names.
func EncodeSnapshot(w io.Writer, snap app.Snapshot, format Format) error {
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("encode snapshot json: %w", err)
		}
		return nil
	case FormatYAML:
		generic, err := toGeneric(snap)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return fmt.Errorf("encode snapshot yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode snapshot yaml: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// DecodeSnapshot reads one snapshot document in the requested format.
func DecodeSnapshot(r io.Reader, format Format) (app.Snapshot, error) {
	var snap app.Snapshot
	switch format {
	case FormatJSON, "":
		if err := json.NewDecoder(r).Decode(&snap); err != nil {
			return app.Snapshot{}, fmt.Errorf("decode snapshot json: %w", err)
		}
	case FormatYAML:
		var generic any
		if err := yaml.NewDecoder(r).Decode(&generic); err != nil {
			return app.Snapshot{}, fmt.Errorf("decode snapshot yaml: %w", err)
		}
		raw, err := json.Marshal(generic)
		if err != nil {
			return app.Snapshot{}, fmt.Errorf("decode snapshot yaml: %w", err)
		}
		if err := json.Unmarshal(raw, &snap); err != nil {
			return app.Snapshot{}, fmt.Errorf("decode snapshot yaml: %w", err)
		}
	default:
		return app.Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return snap, nil
}

// toGeneric converts snap into maps and slices keyed by its JSON names.
func toGeneric(snap app.Snapshot) (any, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	var generic any
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&generic); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return integralNumbers(generic), nil
}

// integralNumbers rewrites whole floats as int64 so YAML prints counters and
// millisecond totals without exponents.
func integralNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			t[k] = integralNumbers(child)
		}
		return t
	case []any:
		for i, child := range t {
			t[i] = integralNumbers(child)
		}
		return t
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return int64(t)
		}
		return t
	default:
		return v
	}
}
