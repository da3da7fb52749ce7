package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests for CLI commands
// These tests run the actual CLI commands against files in a temporary directory

type fixture struct {
	dir     string
	sex     string
	age     string
	records string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:     dir,
		sex:     filepath.Join(dir, "sex.csv"),
		age:     filepath.Join(dir, "age.csv"),
		records: filepath.Join(dir, "records.csv"),
	}
	write(t, f.sex, "male;*\nfemale;*\n")
	write(t, f.age, "20;20-29;*\n25;20-29;*\n31;30-39;*\n")
	write(t, f.records, "sex;age;income;released\n"+
		"male;20;1;1\n"+
		"male;25;3;1\n"+
		"female;31;2;1\n"+
		"female;31;2;1\n"+
		"male;31;5;1\n")
	return f
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (f *fixture) config(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(f.dir, "gta.yaml")
	write(t, path, "logging:\n  level: error\n"+body)
	return path
}

func (f *fixture) inputArgs() []string {
	return []string{"--records", f.records, "--hierarchy", f.sex, "--hierarchy", f.age}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	err := root.Execute()
	return out.String(), err
}

type partitionResult struct {
	PartitionID       string `json:"partition_id"`
	AnonymousRecords  int    `json:"anonymous_records"`
	SuppressedRecords int    `json:"suppressed_records"`
	Loss              struct {
		Real     float64 `json:"real"`
		Metadata struct {
			TotalPayout float64 `json:"total_payout"`
		} `json:"metadata"`
	} `json:"loss"`
}

type evaluation struct {
	RunID   string             `json:"run_id"`
	Best    string             `json:"best"`
	Results []*partitionResult `json:"results"`
}

func decodeEvaluation(t *testing.T, out string) *evaluation {
	t.Helper()
	var report evaluation
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	return &report
}

func (e *evaluation) result(id string) *partitionResult {
	for _, r := range e.Results {
		if r.PartitionID == id {
			return r
		}
	}
	return nil
}

func TestCLIIntegrationEvaluate(t *testing.T) {
	f := newFixture(t)
	cfg := f.config(t, "")

	out, err := execute(t, append([]string{"evaluate", "--config", cfg, "--format", "json"}, f.inputArgs()...)...)
	require.NoError(t, err)

	report := decodeEvaluation(t, out)
	assert.NotEmpty(t, report.RunID)
	assert.Len(t, report.Results, 6)
	assert.Equal(t, "[0,0]", report.Best)

	leaves := report.result("[0,0]")
	require.NotNil(t, leaves)
	assert.Equal(t, 5, leaves.AnonymousRecords)
	assert.Equal(t, 0, leaves.SuppressedRecords)
	assert.InDelta(t, 1200, leaves.Loss.Real, 1e-6)
	assert.InDelta(t, 4800, leaves.Loss.Metadata.TotalPayout, 1e-6)

	top := report.result("[1,2]")
	require.NotNil(t, top)
	assert.Equal(t, 5, top.SuppressedRecords)
	assert.InDelta(t, 6000, top.Loss.Real, 1e-6)
}

func TestCLIIntegrationEvaluateText(t *testing.T) {
	f := newFixture(t)
	cfg := f.config(t, "criterion:\n  attacker_model: prosecutor\n")

	args := append([]string{"evaluate", "--config", cfg, "-t", "0,0", "-t", "0,1", "--micro", "income"}, f.inputArgs()...)
	out, err := execute(t, args...)
	require.NoError(t, err)

	assert.Contains(t, out, "profitability (prosecutor)")
	assert.Contains(t, out, "[0,1]")
	assert.Contains(t, out, "Best transformation: [0,0]")
}

func TestCLIIntegrationEvaluateErrors(t *testing.T) {
	f := newFixture(t)
	cfg := f.config(t, "")

	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"unknown column", []string{"--qi", "sex,zip"}, "column \"zip\" not found"},
		{"bad transformation", []string{"-t", "0,x"}, "invalid transformation"},
		{"level out of range", []string{"-t", "0,3"}, "exceeds the height"},
		{"bad format", []string{"--format", "xml"}, "unsupported output format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"evaluate", "--config", cfg}, f.inputArgs()...)
			_, err := execute(t, append(args, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestCLIIntegrationSweep(t *testing.T) {
	f := newFixture(t)
	cfg := f.config(t, "")

	args := append([]string{"sweep", "--config", cfg, "--parameter", "publisher_benefit",
		"--values", "250,1200", "-t", "0,0", "--format", "json"}, f.inputArgs()...)
	out, err := execute(t, args...)
	require.NoError(t, err)

	var report struct {
		Parameter string `json:"parameter"`
		Points    []struct {
			Value             float64 `json:"value"`
			Best              string  `json:"best"`
			Loss              float64 `json:"loss"`
			SuppressedRecords int     `json:"suppressed_records"`
		} `json:"points"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "publisher_benefit", report.Parameter)
	require.Len(t, report.Points, 2)

	assert.Equal(t, 250.0, report.Points[0].Value)
	assert.Equal(t, 3, report.Points[0].SuppressedRecords)
	assert.InDelta(t, 1050, report.Points[0].Loss, 1e-6)

	assert.Equal(t, 1200.0, report.Points[1].Value)
	assert.Equal(t, 0, report.Points[1].SuppressedRecords)
	assert.InDelta(t, 1200, report.Points[1].Loss, 1e-6)

	_, err = execute(t, append([]string{"sweep", "--config", cfg, "--parameter", "budget"}, f.inputArgs()...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown parameter")
}

func TestCLIIntegrationCensus(t *testing.T) {
	f := newFixture(t)
	store := filepath.Join(f.dir, "store")
	require.NoError(t, os.MkdirAll(store, 0o755))

	// table dimensions: age, sex
	vocabulary := filepath.Join(f.dir, "local", "vocabulary.csv")
	frequencies := filepath.Join(f.dir, "local", "frequencies.csv")
	write(t, vocabulary, "dimension;id;value\n0;0;20\n0;1;25\n0;2;31\n1;0;male\n1;1;female\n")
	write(t, frequencies, "age;sex;count\n0;0;10\n1;0;10\n2;1;20\n2;0;10\n")

	cfg := f.config(t, `criterion:
  use_census: true
population:
  source:
    type: file
    file:
      base_path: `+store+`
  field_order: [1, 0]
`)

	out, err := execute(t, "population", "publish", "--config", cfg,
		"--vocabulary", vocabulary, "--frequencies", frequencies)
	require.NoError(t, err)
	assert.Contains(t, out, "Published vocabulary.csv")
	assert.FileExists(t, filepath.Join(store, "frequencies.csv"))

	out, err = execute(t, "population", "lookup", "--config", cfg, "--labels", "male,31")
	require.NoError(t, err)
	assert.Equal(t, "male,31\t10", strings.TrimSpace(out))

	out, err = execute(t, "population", "lookup", "--config", cfg, "--labels", "female,20")
	require.NoError(t, err)
	assert.Equal(t, "female,20\t0", strings.TrimSpace(out))

	out, err = execute(t, append([]string{"evaluate", "--config", cfg, "--format", "json"}, f.inputArgs()...)...)
	require.NoError(t, err)
	report := decodeEvaluation(t, out)
	assert.Equal(t, "[0,0]", report.Best)

	leaves := report.result("[0,0]")
	require.NotNil(t, leaves)
	assert.Equal(t, 5, leaves.AnonymousRecords)
	assert.InDelta(t, 120, leaves.Loss.Real, 1e-6)
}

func TestCLIIntegrationCensusMissingFromPopulation(t *testing.T) {
	f := newFixture(t)
	store := filepath.Join(f.dir, "store")
	write(t, filepath.Join(store, "vocabulary.csv"), "dimension;id;value\n0;0;20\n0;1;25\n0;2;31\n1;0;male\n1;1;female\n")
	write(t, filepath.Join(store, "frequencies.csv"), "age;sex;count\n0;0;10\n1;0;10\n2;1;20\n")

	cfg := f.config(t, `criterion:
  use_census: true
population:
  source:
    type: file
    file:
      base_path: `+store+`
  field_order: [1, 0]
`)

	_, err := execute(t, append([]string{"evaluate", "--config", cfg, "-t", "0,0"}, f.inputArgs()...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ABSENT_FROM_POPULATION")
}
