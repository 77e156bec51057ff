package report

import (
	"fmt"
	"math"

	talib "github.com/markcheno/go-talib"

	"github.com/gitwitcho/var-agent-model-sub001/internal/simulation"
)

// Summary holds the stylized-fact statistics of one asset's log returns.
type Summary struct {
	Asset      string
	Returns    int
	Mean       float64
	StdDev     float64
	Kurtosis   float64 // excess; > 0 means fatter tails than normal
	AbsAutocor float64 // lag-1 autocorrelation of absolute returns (volatility clustering)
	FinalPrice float64
}

// Summarize computes a Summary per asset of res.
func Summarize(res *simulation.Result) ([]Summary, error) {
	out := make([]Summary, 0, len(res.Assets))
	for _, id := range res.Assets {
		lp, ok := res.Series(id + "/log-price")
		if !ok {
			return nil, fmt.Errorf("result %s has no log price for %s", res.RunID, id)
		}
		price, ok := res.Series(id + "/price")
		if !ok {
			return nil, fmt.Errorf("result %s has no price for %s", res.RunID, id)
		}
		s := Returns(lp.Values())
		s.Asset = id
		if last, err := price.Last(); err == nil {
			s.FinalPrice = last
		}
		out = append(out, s)
	}
	return out, nil
}

// Returns summarizes the first differences of a log price path.
func Returns(logPrices []float64) Summary {
	n := len(logPrices) - 1
	if n < 3 {
		return Summary{Returns: max(n, 0)}
	}
	r := make([]float64, n)
	abs := make([]float64, n)
	var sum float64
	for i := range r {
		r[i] = logPrices[i+1] - logPrices[i]
		abs[i] = math.Abs(r[i])
		sum += r[i]
	}
	mean := sum / float64(n)

	sd := talib.StdDev(r, n, 1)[n-1]
	var m2, m4 float64
	for _, v := range r {
		d := v - mean
		m2 += d * d
		m4 += d * d * d * d
	}
	m2 /= float64(n)
	m4 /= float64(n)
	kurt := 0.0
	if m2 > 0 {
		kurt = m4/(m2*m2) - 3
	}

	corr := talib.Correl(abs[:n-1], abs[1:], n-1)[n-2]
	if math.IsNaN(corr) || math.IsInf(corr, 0) {
		corr = 0
	}
	return Summary{
		Returns:    n,
		Mean:       mean,
		StdDev:     sd,
		Kurtosis:   kurt,
		AbsAutocor: corr,
	}
}
