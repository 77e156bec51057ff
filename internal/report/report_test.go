package report

import (
	"context"
	"encoding/csv"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitwitcho/var-agent-model-sub001/internal/config"
	"github.com/gitwitcho/var-agent-model-sub001/internal/simulation"
)

func newResult(t *testing.T) *simulation.Result {
	t.Helper()
	cfg := config.Default()
	cfg.Ticks = 40
	cfg.Trend.Count = 2
	cfg.Value.Count = 2
	cfg.LongShort.Count = 1
	require.NoError(t, cfg.Validate())
	run, err := simulation.NewRun(cfg, 0, nil)
	require.NoError(t, err)
	res, err := run.Execute(context.Background())
	require.NoError(t, err)
	return res
}

func TestWriteCSV(t *testing.T) {
	res := newResult(t)
	path, err := WriteCSV(t.TempDir(), res)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "run-000-seed-42.csv"))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, res.Ticks+2)
	assert.Equal(t, append([]string{"tick"}, res.Names()...), rows[0])
	assert.Equal(t, "40", rows[len(rows)-1][0])

	lp, ok := res.Series("A1/log-price")
	require.True(t, ok)
	col := -1
	for i, name := range rows[0] {
		if name == "A1/log-price" {
			col = i
		}
	}
	require.Positive(t, col)
	got, err := strconv.ParseFloat(rows[11][col], 64)
	require.NoError(t, err)
	assert.Equal(t, lp.At(10), got)
}

func TestWriteHTML(t *testing.T) {
	res := newResult(t)
	path, err := WriteHTML(t.TempDir(), res)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(data)
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "Cumulative profit and loss by class")
	assert.Contains(t, html, "A2 net position by class")
}

func TestReturns(t *testing.T) {
	tests := []struct {
		name      string
		logPrices []float64
		want      Summary
	}{
		{name: "too short", logPrices: []float64{1, 2}, want: Summary{Returns: 1}},
		{name: "empty", want: Summary{}},
		{
			name:      "alternating",
			logPrices: []float64{0, 1, 0, 1, 0},
			want:      Summary{Returns: 4, Mean: 0, StdDev: 1, Kurtosis: -2, AbsAutocor: 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Returns(tt.logPrices)
			assert.Equal(t, tt.want.Returns, got.Returns)
			assert.InDelta(t, tt.want.Mean, got.Mean, 1e-12)
			assert.InDelta(t, tt.want.StdDev, got.StdDev, 1e-12)
			assert.InDelta(t, tt.want.Kurtosis, got.Kurtosis, 1e-12)
			assert.InDelta(t, tt.want.AbsAutocor, got.AbsAutocor, 1e-12)
		})
	}
}

func TestReturnsClusteredVolatility(t *testing.T) {
	// Calm and wild stretches alternate, so large moves follow large moves.
	lp := []float64{0}
	for block := 0; block < 10; block++ {
		size := 0.001
		if block%2 == 1 {
			size = 0.05
		}
		for i := 0; i < 20; i++ {
			sign := 1.0
			if i%2 == 1 {
				sign = -1
			}
			lp = append(lp, lp[len(lp)-1]+sign*size)
		}
	}
	s := Returns(lp)
	assert.Greater(t, s.AbsAutocor, 0.8)
	assert.Less(t, s.Kurtosis, 0.0, "two-point magnitudes give thin tails")
	assert.InDelta(t, math.Sqrt((0.001*0.001+0.05*0.05)/2), s.StdDev, 1e-4)
}

func TestSummarize(t *testing.T) {
	res := newResult(t)
	sums, err := Summarize(res)
	require.NoError(t, err)
	require.Len(t, sums, 2)
	for _, s := range sums {
		price, ok := res.Series(s.Asset + "/price")
		require.True(t, ok)
		assert.Equal(t, price.At(res.Ticks), s.FinalPrice)
		assert.Equal(t, res.Ticks, s.Returns)
		assert.Positive(t, s.StdDev)
	}
}
