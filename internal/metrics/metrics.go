package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ScanCycles = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "scan_cycles_total", Help: "Completed scan cycles"},
	)
	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "scan_cycle_duration_seconds", Help: "Wall time of a scan cycle", Buckets: prometheus.DefBuckets},
	)
	EvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "evaluations_total", Help: "Symbol evaluations attempted"},
		[]string{"symbol"},
	)
	InsufficientData = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "insufficient_data_total", Help: "Evaluations skipped for lack of bars"},
		[]string{"symbol"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Signals emitted"},
		[]string{"symbol", "kind"},
	)
	SymbolErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scan_symbol_errors_total", Help: "Unexpected faults isolated to one symbol"},
		[]string{"symbol"},
	)
	FetchErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bar_fetch_errors_total", Help: "Failed bar-series fetches"},
		[]string{"symbol", "interval"},
	)
	FetchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "bar_fetch_duration_seconds", Help: "Bar-series fetch latency", Buckets: prometheus.DefBuckets},
		[]string{"interval"},
	)
	DeliveryFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "alert_delivery_failures_total", Help: "Alerts that could not be delivered"},
		[]string{"channel"},
	)
	PersistFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "journal_append_failures_total", Help: "Journal appends that failed"},
		[]string{"sink"},
	)
)

func init() {
	prometheus.MustRegister(
		ScanCycles, CycleDuration, EvaluationsTotal, InsufficientData, SignalsTotal,
		SymbolErrors, FetchErrors, FetchLatency, DeliveryFailures, PersistFailures,
	)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
