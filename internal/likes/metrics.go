// internal/likes/metrics.go

package likes

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	likesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "likes_total",
			Help: "Total number of likes recorded",
		},
	)

	matchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "likes_matches_total",
			Help: "Total number of mutual matches created",
		},
	)

	dislikesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "likes_dislikes_total",
			Help: "Total number of dislikes recorded",
		},
	)
)

func recordLike(matched bool) {
	likesTotal.Inc()
	if matched {
		matchesTotal.Inc()
	}
}

func recordDislike() {
	dislikesTotal.Inc()
}
