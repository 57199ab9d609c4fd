// Package metrics exposes prometheus collectors for the comment wall.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CommentsAdded counts persisted comments per store kind.
	CommentsAdded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wall_comments_added_total",
		Help: "Comments persisted, by store.",
	}, []string{"store"})

	// AddErrors counts rejected or failed adds per store and error kind.
	AddErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wall_comment_add_errors_total",
		Help: "Failed comment adds, by store and kind (validation|persist).",
	}, []string{"store", "kind"})

	// SnapshotsDelivered counts snapshots handed to subscribers.
	SnapshotsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wall_snapshots_delivered_total",
		Help: "Snapshots delivered to subscribers, by store.",
	}, []string{"store"})

	// ActiveSubscriptions tracks live subscriptions per store.
	ActiveSubscriptions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wall_active_subscriptions",
		Help: "Live comment subscriptions, by store.",
	}, []string{"store"})

	// WebsocketConnections tracks connected wall screens.
	WebsocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wall_websocket_connections",
		Help: "Connected wall screens.",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
