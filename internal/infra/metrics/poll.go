package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(pollTicksTotal, pollTransportErrorsTotal, pollLoopsLive) }

var pollTicksTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "studio_poll_ticks_total",
		Help: "Status-fetch ticks executed across all poll loops.",
	},
)

var pollTransportErrorsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "studio_poll_transport_errors_total",
		Help: "Status-fetch failures during polling, labeled by disposition.",
	},
	[]string{"disposition"}, // 'transient' (retried), 'definitive' (job failed)
)

var pollLoopsLive = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "studio_poll_loops_live",
		Help: "Currently live poll-loop timers.",
	},
)

func IncPollTick()                      { pollTicksTotal.Inc() }
func IncPollTransportError(disp string) { pollTransportErrorsTotal.WithLabelValues(disp).Inc() }
func SetPollLoopsLive(n int)            { pollLoopsLive.Set(float64(n)) }
