package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pool = `{
  "pool": [
    {"title": "School", "days": "mon,tue,wed,thu,fri", "start": "09:00", "end": "15:00"},
    {"title": "Piano", "days": "tue", "start": "16:00", "end": "17:00"},
    {"title": "Soccer", "days": "tue", "start": "16:30", "end": "18:00"}
  ],
  "date": "2024-03-05"
}`

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func writeFiles(t *testing.T) (dir, poolPath, cfgFile string) {
	t.Helper()
	dir = t.TempDir()
	poolPath = filepath.Join(dir, "pool.json")
	require.NoError(t, os.WriteFile(poolPath, []byte(pool), 0o644))
	cfgFile = filepath.Join(dir, "config.yaml")
	cfg := "store:\n  type: sqlite\n  conf:\n    path: " + filepath.Join(dir, "plan.db") + "\n"
	require.NoError(t, os.WriteFile(cfgFile, []byte(cfg), 0o644))
	return dir, poolPath, cfgFile
}

func TestSearchCommand(t *testing.T) {
	_, poolPath, cfgFile := writeFiles(t)
	out := execute(t, "search", "-c", cfgFile, "-n", "3", poolPath)

	var res struct {
		Combinations []struct {
			Blocks []map[string]any `json:"blocks"`
		} `json:"combinations"`
		Stop string `json:"stop"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "completed", res.Stop)
	assert.Len(t, res.Combinations, 2)
}

func TestOptimizeThenExport(t *testing.T) {
	dir, poolPath, cfgFile := writeFiles(t)
	out := execute(t, "optimize", "-c", cfgFile, poolPath)
	assert.Contains(t, out, `"run_id"`)

	icsPath := filepath.Join(dir, "plan.ics")
	execute(t, "export", "-c", cfgFile, "--week", "2024-03-04", "-o", icsPath)
	data, err := os.ReadFile(icsPath)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "BEGIN:VEVENT"))

	out = execute(t, "validate", "-c", cfgFile, poolPath, "Tutor", "14:00", "15:30")
	assert.Contains(t, out, `"previous_slot_conflict"`)
}

func TestEditCommands(t *testing.T) {
	_, poolPath, cfgFile := writeFiles(t)
	entries := func(out string) []map[string]any {
		var sim struct {
			Entries []map[string]any `json:"entries"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &sim))
		return sim.Entries
	}

	out := execute(t, "edit", "insert", "-c", cfgFile, poolPath, "Tutor", "18:00", "19:00")
	require.Len(t, entries(out), 4)

	out = execute(t, "edit", "swap", "-c", cfgFile, poolPath, "0", "3")
	got := entries(out)
	require.Len(t, got, 4)
	assert.Equal(t, "Tutor", got[0]["block"].(map[string]any)["title"])

	out = execute(t, "edit", "delete", "-c", cfgFile, poolPath, "0")
	assert.Len(t, entries(out), 3)
}
