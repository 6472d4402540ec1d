package main

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

func runCLI(t *testing.T, input string, args ...string) (int, payload, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(input), &stdout, &stderr)
	var p payload
	if code == 0 {
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &p))
	}
	return code, p, stderr.String()
}

func TestRun_ScenarioWithHeader(t *testing.T) {
	code, p, _ := runCLI(t, "month,sales\nJan,100\nFeb,100\nMar,100\nApr,400\n")
	require.Equal(t, 0, code)
	require.Len(t, p.Data, 4)
	assert.Equal(t, "Apr", p.Data[3].Month)
	assert.Equal(t, 1.73, p.Data[3].ZScore)
	assert.False(t, p.Data[3].Anomaly)
	assert.Equal(t, 175.0, p.Summary.MeanSales)

	code, p, _ = runCLI(t, "Jan,100\nFeb,100\nMar,100\nApr,400\n", "-threshold", "1.5")
	require.Equal(t, 0, code)
	assert.True(t, p.Data[3].Anomaly)
	assert.Equal(t, 1.5, p.Summary.Threshold)
}

func TestRun_SingleColumnLabels(t *testing.T) {
	code, p, _ := runCLI(t, "0\n0\n0\n0\n5\n")
	require.Equal(t, 0, code)
	assert.Equal(t, "Month 1", p.Data[0].Month)
	assert.Equal(t, 2.0, p.Data[4].ZScore)
	assert.True(t, p.Data[4].Anomaly)
}

func TestRun_EmptyInput(t *testing.T) {
	code, p, _ := runCLI(t, "")
	require.Equal(t, 0, code)
	assert.Empty(t, p.Data)
	assert.Equal(t, 0, p.Summary.Count)
}

func TestRun_Precision(t *testing.T) {
	code, p, _ := runCLI(t, "1\n2\n4\n", "-precision", "-1")
	require.Equal(t, 0, code)
	assert.NotEqual(t, 1.34, p.Data[2].ZScore)
	assert.InDelta(t, 1.336, p.Data[2].ZScore, 0.001)
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name  string
		input string
		args  []string
		want  string
	}{
		{"nan", "Jan,1\nFeb,NaN\n", nil, "not a finite number"},
		{"inf", "Jan,1\nFeb,+Inf\n", nil, "not a finite number"},
		{"not a number", "Jan,1\nFeb,abc\n", nil, "line 2"},
		{"duplicate", "Jan,1\nJan,2\n", nil, "already seen"},
		{"too many columns", "Jan,1,2\n", nil, "columns"},
		{"missing file", "", []string{"/does/not/exist.csv"}, "no such file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tt.input, tt.args...)
			assert.Equal(t, 1, code)
			assert.Contains(t, stderr, tt.want)
		})
	}

	code, _, _ := runCLI(t, "", "-threshold")
	assert.Equal(t, 2, code)
}

func TestRun_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.csv")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nJan,10\nFeb,10\n"), 0o600))

	code, p, _ := runCLI(t, "", path)
	require.Equal(t, 0, code)
	assert.Len(t, p.Data, 2)
	assert.Equal(t, 0.0, p.Data[0].ZScore)
}
