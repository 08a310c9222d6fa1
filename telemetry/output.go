// Package telemetry records solve, probe and frame timing logs as CSV.
package telemetry

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/fieldscope/config"
)

// OutputManager handles session output with CSV logging.
type OutputManager struct {
	dir       string
	solveFile *os.File
	probeFile *os.File
	perfFile  *os.File

	// Track if headers have been written
	solveHeaderWritten bool
	probeHeaderWritten bool
	perfHeaderWritten  bool
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	files := []struct {
		name string
		dst  **os.File
	}{
		{"solves.csv", &om.solveFile},
		{"probes.csv", &om.probeFile},
		{"perf.csv", &om.perfFile},
	}
	for _, f := range files {
		fh, err := os.Create(filepath.Join(dir, f.name))
		if err != nil {
			om.Close()
			return nil, fmt.Errorf("creating %s: %w", f.name, err)
		}
		*f.dst = fh
	}

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	configPath := filepath.Join(om.dir, "config.yaml")
	return cfg.WriteYAML(configPath)
}

// WriteSolve appends a record to solves.csv.
func (om *OutputManager) WriteSolve(rec SolveRecord) error {
	if om == nil {
		return nil
	}
	if err := writeRecords([]SolveRecord{rec}, om.solveFile, &om.solveHeaderWritten); err != nil {
		return fmt.Errorf("writing solve: %w", err)
	}
	return nil
}

// WriteProbes appends records to probes.csv.
func (om *OutputManager) WriteProbes(recs []ProbeRecord) error {
	if om == nil || len(recs) == 0 {
		return nil
	}
	if err := writeRecords(recs, om.probeFile, &om.probeHeaderWritten); err != nil {
		return fmt.Errorf("writing probes: %w", err)
	}
	return nil
}

// WritePerf appends a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, frame int64) error {
	if om == nil {
		return nil
	}
	if err := writeRecords([]PerfStatsCSV{stats.ToCSV(frame)}, om.perfFile, &om.perfHeaderWritten); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// writeRecords marshals with a header on the first write only.
func writeRecords[T any](records []T, w io.Writer, headerWritten *bool) error {
	if !*headerWritten {
		if err := gocsv.Marshal(records, w); err != nil {
			return err
		}
		*headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, w)
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, f := range []*os.File{om.solveFile, om.probeFile, om.perfFile} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
