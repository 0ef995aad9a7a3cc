package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LinesRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "authwatchd_lines_read_total",
		Help: "Number of raw log lines read from the active source.",
	})

	EventsParsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "authwatchd_events_parsed_total",
		Help: "Number of log lines parsed into events.",
	})

	ParseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "authwatchd_parse_failures_total",
		Help: "Number of lines downgraded to synthetic parser-error events.",
	})

	ReadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "authwatchd_read_failures_total",
		Help: "Number of polling ticks that failed to read the source.",
	})

	AlertsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "authwatchd_alerts_total",
		Help: "Number of security alerts raised, labelled by type.",
	}, []string{"type"})

	ConfigReloads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "authwatchd_config_reloads_total",
		Help: "Number of successful SIGHUP configuration reloads.",
	})
)

// StartServer exposes /metrics on the given address. Blocks.
func StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
