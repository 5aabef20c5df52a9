package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

var (
	Registrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "registrations_total", Help: "Participant registrations by type and outcome"},
		[]string{"type", "outcome"},
	)
	TeamJoinRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "team_join_rejections_total", Help: "Rejected team joins by reason"},
		[]string{"reason"},
	)
	TournamentsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "tournaments_created_total", Help: "Tournaments persisted by assembly"},
	)
	BracketFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "bracket_failures_total", Help: "Bracket writes that failed during tournament assembly"},
	)
	AssetFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "asset_failures_total", Help: "Failed asset uploads or deletes by kind"},
		[]string{"kind"},
	)
	LiveClients = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "live_clients", Help: "Connected live feed websocket clients"},
	)
)

func Register() {
	prometheus.MustRegister(Registrations, TeamJoinRejections, TournamentsCreated, BracketFailures, AssetFailures, LiveClients)
}
