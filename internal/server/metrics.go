package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// scansTotal counts scanned documents by language
	scansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "baseline_scans_total",
		Help: "Total scanned documents by language",
	}, []string{"language"})

	// findingsTotal counts reported findings by status
	findingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "baseline_findings_total",
		Help: "Total findings reported by baseline status",
	}, []string{"status"})

	// scanDuration tracks scan latency
	scanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "baseline_scan_duration_seconds",
		Help:    "Scan duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
	}, []string{"language"})

	// lookupsTotal counts lookups by result
	lookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "baseline_lookups_total",
		Help: "Total lookups by namespace and result",
	}, []string{"namespace", "result"})

	// IndexKeys reports the size of the published index.
	IndexKeys = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "baseline_index_keys",
		Help: "Number of keys in the published index by namespace",
	}, []string{"namespace"})

	// IndexBuilds counts index rebuilds by result.
	IndexBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "baseline_index_builds_total",
		Help: "Total index builds by result",
	}, []string{"result"})
)
