package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder mirrors a CacheCounters snapshot onto Prometheus
// gauges, following the same promauto factory pattern the teacher gateway
// uses for its own metrics (internal/metrics/metrics.go). It is entirely
// optional: the plain CacheCounters above work without a registry.
type PrometheusRecorder struct {
	hits, misses                         prometheus.Gauge
	loadSuccesses, loadFailures          prometheus.Gauge
	evictExpired, evictSize, evictManual prometheus.Gauge
	cryptoOps                            prometheus.Gauge
	compressBytesIn, compressBytesOut    prometheus.Gauge
}

// NewPrometheusRecorder registers gauges named "<name>_..." on reg and
// returns a recorder that can be refreshed from a CacheCounters snapshot.
func NewPrometheusRecorder(reg prometheus.Registerer, name string) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		hits: factory.NewGauge(prometheus.GaugeOpts{
			Name: name + "_cache_hits_total", Help: "Cache hits.",
		}),
		misses: factory.NewGauge(prometheus.GaugeOpts{
			Name: name + "_cache_misses_total", Help: "Cache misses.",
		}),
		loadSuccesses: factory.NewGauge(prometheus.GaugeOpts{
			Name: name + "_cache_load_successes_total", Help: "Successful cache loads.",
		}),
		loadFailures: factory.NewGauge(prometheus.GaugeOpts{
			Name: name + "_cache_load_failures_total", Help: "Failed cache loads.",
		}),
		evictExpired: factory.NewGauge(prometheus.GaugeOpts{
			Name: name + "_cache_evictions_expired_total", Help: "Evictions caused by TTL expiry.",
		}),
		evictSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: name + "_cache_evictions_size_total", Help: "Evictions caused by the size bound.",
		}),
		evictManual: factory.NewGauge(prometheus.GaugeOpts{
			Name: name + "_cache_evictions_manual_total", Help: "Explicit invalidations.",
		}),
		cryptoOps: factory.NewGauge(prometheus.GaugeOpts{
			Name: name + "_crypto_ops_total", Help: "Block-level encrypt/decrypt operations.",
		}),
		compressBytesIn: factory.NewGauge(prometheus.GaugeOpts{
			Name: name + "_compress_bytes_in_total", Help: "Bytes fed into compress/decompress operations.",
		}),
		compressBytesOut: factory.NewGauge(prometheus.GaugeOpts{
			Name: name + "_compress_bytes_out_total", Help: "Bytes produced by compress/decompress operations.",
		}),
	}
}

// Refresh pushes a snapshot's values onto the registered gauges.
func (r *PrometheusRecorder) Refresh(s CacheSnapshot) {
	r.hits.Set(float64(s.Hits))
	r.misses.Set(float64(s.Misses))
	r.loadSuccesses.Set(float64(s.LoadSuccesses))
	r.loadFailures.Set(float64(s.LoadFailures))
	r.evictExpired.Set(float64(s.EvictionsExpired))
	r.evictSize.Set(float64(s.EvictionsSize))
	r.evictManual.Set(float64(s.EvictionsManual))
	r.cryptoOps.Set(float64(s.CryptoOps))
	r.compressBytesIn.Set(float64(s.CompressBytesIn))
	r.compressBytesOut.Set(float64(s.CompressBytesOut))
}
