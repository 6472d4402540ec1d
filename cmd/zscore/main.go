// Command zscore scores a sales series offline and prints the dashboard
// payload as JSON.
//
//	zscore [-threshold 2] [-precision 2] [file.csv]
//
// Input rows are "month,sales" or just "sales"; a header row is optional and
// stdin is read when no file is given.
package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"salesdash/internal/anomaly"
	"salesdash/internal/core"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type payload struct {
	Data    []anomaly.Row   `json:"data"`
	Summary anomaly.Summary `json:"summary"`
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("zscore", flag.ContinueOnError)
	fs.SetOutput(stderr)
	threshold := fs.Float64("threshold", anomaly.DefaultThreshold, "flag periods with |z| at or above this value")
	precision := fs.Int("precision", anomaly.DefaultPrecision, "decimals of the reported z-score, -1 for no rounding")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	in := stdin
	if fs.NArg() > 0 {
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(stderr, "zscore: %v\n", err)
			return 1
		}
		defer f.Close()
		in = f
	}

	series, err := readSeries(in)
	if err != nil {
		fmt.Fprintf(stderr, "zscore: %v\n", err)
		return 1
	}

	res, err := anomaly.NewDetector(*threshold, *precision).Detect(series)
	if err != nil {
		var invalid *core.InvalidInputError
		if errors.As(err, &invalid) {
			fmt.Fprintf(stderr, "zscore: %v\n", invalid)
		} else {
			fmt.Fprintf(stderr, "zscore: %v\n", err)
		}
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload{Data: anomaly.Rows(res), Summary: anomaly.Summarize(res)}); err != nil {
		fmt.Fprintf(stderr, "zscore: %v\n", err)
		return 1
	}
	return 0
}

// readSeries parses the CSV rows. A first row whose sales column is not a
// number is taken as a header. Textual NaN and Inf parse as numbers and are
// left to the detector to reject.
func readSeries(r io.Reader) ([]core.SalesObservation, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var out []core.SalesObservation
	seen := make(map[string]int)
	for line := 1; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}

		var label, raw string
		switch len(rec) {
		case 1:
			raw = rec[0]
		case 2:
			label, raw = strings.TrimSpace(rec[0]), rec[1]
		default:
			return nil, fmt.Errorf("line %d: want 1 or 2 columns, got %d", line, len(rec))
		}

		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("line %d: sales %q is not a number", line, raw)
		}
		if label == "" {
			label = fmt.Sprintf("Month %d", len(out)+1)
		}
		if prev, ok := seen[label]; ok {
			return nil, fmt.Errorf("line %d: period %q already seen on line %d", line, label, prev)
		}
		seen[label] = line
		out = append(out, core.SalesObservation{Period: label, Amount: v})
	}
}
