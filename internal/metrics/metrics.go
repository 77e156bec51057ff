package metrics

import (
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gitwitcho/var-agent-model-sub001/internal/order"
	"github.com/gitwitcho/var-agent-model-sub001/internal/strategy"
	"github.com/gitwitcho/var-agent-model-sub001/internal/utils"
)

var (
	StepsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "sim_steps_total", Help: "Market ticks stepped over all runs"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sim_orders_total", Help: "Non-zero orders cleared"},
		[]string{"class", "side"},
	)
	VolumeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sim_volume_total", Help: "Absolute quantity cleared"},
		[]string{"class"},
	)
	BuysScaledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sim_buys_scaled_total", Help: "Agent ticks whose buys were scaled down to available cash"},
		[]string{"class"},
	)
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sim_runs_total", Help: "Finished simulation runs"},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(StepsTotal, OrdersTotal, VolumeTotal, BuysScaledTotal, RunsTotal)
}

// Observer feeds the market engine's clearing events into the counters.
type Observer struct{}

func (Observer) OrderCleared(kind strategy.Kind, o order.Order) {
	OrdersTotal.WithLabelValues(kind.String(), o.Side().String()).Inc()
	VolumeTotal.WithLabelValues(kind.String()).Add(o.Volume())
}

func (Observer) BuysScaled(kind strategy.Kind, _ float64) {
	BuysScaledTotal.WithLabelValues(kind.String()).Inc()
}

func (Observer) StepCompleted(int) { StepsTotal.Inc() }

// Serve exposes /metrics on addr. The listener is bound before Serve returns, so a bad
// address is reported to the caller; srv.Addr holds the bound address.
func Serve(addr string) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ln.Addr().String(), Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log := utils.GetLogger()
			log.Error().Err(err).Str("addr", srv.Addr).Msg("metrics server stopped")
		}
	}()
	return srv, nil
}
