// Package metrics holds the Prometheus collectors shared by the talktime binaries
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FeedRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "talktime_feed_requests_total", Help: "Broadcast feed requests served"},
		[]string{"method", "result"},
	)
	FeedPublishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "talktime_feed_publishes_total", Help: "States published to the broadcast feed"},
		[]string{"sink", "result"},
	)
	PublishDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "talktime_feed_publish_duration_seconds",
			Help:    "Time taken to write a state to the broadcast feed",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"sink"},
	)
	Polls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "talktime_viewer_polls_total", Help: "Broadcast feed polls made by viewers"},
		[]string{"result"},
	)
	LocalSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "talktime_local_sends_total", Help: "Messages sent to the local display window"},
		[]string{"type", "result"},
	)
	Commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "talktime_control_commands_total", Help: "Operator commands handled"},
		[]string{"command", "result"},
	)
)

var registerOnce sync.Once

// Register adds every collector to the default registry; repeated calls are no-ops
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(FeedRequests, FeedPublishes, PublishDuration, Polls, LocalSends, Commands)
	})
}

// Handler serves the default registry in the Prometheus exposition format
func Handler() http.Handler {
	return promhttp.Handler()
}

// Result labels an outcome as "ok" or "error"
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
