package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(videoSaveSyncTotal, mergeAttemptsTotal) }

var videoSaveSyncTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "studio_video_save_sync_total",
		Help: "Best-effort artifact saves to the backend, labeled by outcome.",
	},
	[]string{"outcome"}, // 'confirmed', 'failed'
)

var mergeAttemptsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "studio_merge_attempts_total",
		Help: "Clip merge attempts, labeled by outcome.",
	},
	[]string{"outcome"}, // 'succeeded', 'failed', 'rejected'
)

func IncVideoSaveSync(outcome string) { videoSaveSyncTotal.WithLabelValues(outcome).Inc() }
func IncMergeAttempt(outcome string)  { mergeAttemptsTotal.WithLabelValues(outcome).Inc() }
