// Package metrics exposes a Prometheus /metrics endpoint (SPEC_FULL
// supplemented feature 6), gated by [global] metrics-listen, grounded
// on the teacher's prometheus.go (promauto.NewGaugeVec collectors) and
// main.go's promhttp.Handler() wiring.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openradiod/radiod/internal/channel"
)

// Collectors holds the gauges/counters this daemon publishes. All are
// registered with the default registry at construction time, matching
// the teacher's promauto pattern.
type Collectors struct {
	channelCount  prometheus.Gauge
	channelErrors *prometheus.GaugeVec
	channelBytes  *prometheus.GaugeVec
	channelFreq   *prometheus.GaugeVec
}

// NewCollectors registers and returns the metric set.
func NewCollectors() *Collectors {
	return &Collectors{
		channelCount: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "radiod",
			Name:      "channels_active",
			Help:      "Number of channels currently registered.",
		}),
		channelErrors: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "radiod",
			Name:      "channel_errors_total",
			Help:      "Cumulative RTCP and status send errors per channel.",
		}, []string{"ssrc", "section"}),
		channelBytes: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "radiod",
			Name:      "channel_rtp_bytes_total",
			Help:      "Cumulative RTP payload bytes sent per channel.",
		}, []string{"ssrc", "section"}),
		channelFreq: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "radiod",
			Name:      "channel_frequency_hz",
			Help:      "Current tuned frequency per channel, in Hz.",
		}, []string{"ssrc", "section"}),
	}
}

// Collect snapshots the registry into the gauge set. Called on a timer
// rather than at scrape time, since a registry scan briefly takes the
// registry lock and scrapes shouldn't block on that.
func (c *Collectors) Collect(reg *channel.Registry) {
	all := reg.All()
	c.channelCount.Set(float64(len(all)))
	for _, ch := range all {
		labels := prometheus.Labels{
			"ssrc":    formatSSRC(ch.SSRC),
			"section": ch.Section,
		}
		c.channelErrors.With(labels).Set(float64(ch.Errors()))
		c.channelBytes.With(labels).Set(float64(ch.Bytes()))
		c.channelFreq.With(labels).Set(ch.FreqHz)
	}
}

func formatSSRC(ssrc uint32) string {
	return strconv.FormatUint(uint64(ssrc), 10)
}

// Handler returns the promhttp handler for the default registry,
// matching the teacher's handlePrometheusMetrics -> promhttp.Handler().
func Handler() http.Handler {
	return promhttp.Handler()
}
