package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/blockplan/core/model"
	"github.com/kilianp07/blockplan/core/optimizer"
)

// Input is the content of a pool file.
type Input struct {
	Pool   []model.TimeBlock       `json:"pool"`
	Groups []optimizer.SourceGroup `json:"groups,omitempty"`
	Pinned []model.TimeBlock       `json:"pinned,omitempty"`
	// Base is where the day starts for travel simulation.
	Base *model.Location `json:"base,omitempty"`
	// Mode overrides the configured default travel mode.
	Mode model.TravelMode `json:"mode,omitempty"`
	// Date selects the day to recalculate.
	Date       time.Time `json:"date,omitempty"`
	MaxResults int       `json:"max_results,omitempty"`
}

// LoadInput reads a YAML or JSON pool file.
func LoadInput(path string) (Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Input{}, err
	}
	return DecodeInput(data, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
}

// DecodeInput decodes a pool document. YAML is converted to JSON first so a
// single set of field names applies to both formats. Bare dates such as
// 2024-03-06 are accepted wherever a date is expected.
func DecodeInput(data []byte, format string) (Input, error) {
	var raw any
	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Input{}, fmt.Errorf("decode yaml input: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return Input{}, fmt.Errorf("decode json input: %w", err)
		}
	default:
		return Input{}, fmt.Errorf("unsupported input format: %s", format)
	}
	normalized, err := json.Marshal(normalizeDates(raw, ""))
	if err != nil {
		return Input{}, fmt.Errorf("normalize input: %w", err)
	}
	var in Input
	if err := json.Unmarshal(normalized, &in); err != nil {
		return Input{}, fmt.Errorf("decode input: %w", err)
	}
	return in, nil
}

func normalizeDates(v any, key string) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeDates(val, k)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = normalizeDates(val, key)
		}
		return t
	case string:
		if key == "date" {
			if d, err := time.Parse(time.DateOnly, t); err == nil {
				return d.Format(time.RFC3339)
			}
		}
		return t
	default:
		return v
	}
}
