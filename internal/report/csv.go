// Package report writes simulation results to files and summarizes return statistics.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gitwitcho/var-agent-model-sub001/internal/simulation"
)

// FileName returns the base name, without extension, used for every file of a run.
func FileName(res *simulation.Result) string {
	return fmt.Sprintf("run-%03d-seed-%d", res.Index, res.Seed)
}

// WriteCSV writes one row per tick and one column per series into dir and returns the path.
func WriteCSV(dir string, res *simulation.Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, FileName(res)+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	all := res.All()
	w := csv.NewWriter(f)
	header := append([]string{"tick"}, res.Names()...)
	if err := w.Write(header); err != nil {
		return "", err
	}
	row := make([]string, len(all)+1)
	for tick := 0; tick <= res.Ticks; tick++ {
		row[0] = strconv.Itoa(tick)
		for i, s := range all {
			v, err := s.Get(tick)
			if err != nil {
				return "", fmt.Errorf("series %s: %w", s.Name(), err)
			}
			row[i+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, f.Close()
}
