package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsSubmittedTotal, jobsFinishedTotal, jobDurationSeconds) }

var jobsSubmittedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "studio_jobs_submitted_total",
		Help: "Backend jobs submitted, labeled by kind.",
	},
	[]string{"kind"}, // 'video_generation', 'clip_merge', 'ad_scrape'
)

var jobsFinishedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "studio_jobs_finished_total",
		Help: "Backend jobs that reached a terminal state, labeled by kind and status.",
	},
	[]string{"kind", "status"}, // 'succeeded', 'failed'
)

var jobDurationSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "studio_job_duration_seconds",
		Help:    "Wall-clock time from submission to terminal state.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 240, 480, 900},
	},
	[]string{"kind"},
)

func IncJobSubmitted(kind string) {
	jobsSubmittedTotal.WithLabelValues(kind).Inc()
}

func IncJobFinished(kind, status string) {
	jobsFinishedTotal.WithLabelValues(kind, status).Inc()
}

func ObserveJobDuration(kind string, seconds float64) {
	jobDurationSeconds.WithLabelValues(kind).Observe(seconds)
}
