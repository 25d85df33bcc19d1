package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every Flight Lab collector plus the Go and process collectors.
var Registry = prometheus.NewRegistry()

var (
	// Watchers is the number of open watch streams per stream type
	// (config, status, command, feed).
	Watchers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flightlab_watchers",
			Help: "Number of open watch streams.",
		},
		[]string{"stream"},
	)

	// NotificationsDropped counts notifications rejected by a full watcher queue.
	NotificationsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flightlab_notifications_dropped_total",
			Help: "Notifications dropped because a watcher queue was full.",
		},
		[]string{"stream"},
	)

	// StatusUpdates counts UpdateStatus calls per reporting machine.
	StatusUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flightlab_status_updates_total",
			Help: "Status reports received from machines.",
		},
		[]string{"machine"},
	)

	// SystemState is 1 for the current aggregate state and 0 for the others.
	SystemState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flightlab_system_state",
			Help: "Current aggregate system state (1 for the active state).",
		},
		[]string{"state"},
	)

	// CommandsSent counts commands issued by the master.
	CommandsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flightlab_commands_sent_total",
			Help: "Commands issued to all machines.",
		},
		[]string{"command"},
	)

	// ControlConnectivity records the client's connection to the master.
	// 1 = Ready, 0 = Not Ready (Idle, Connecting, TransientFailure)
	ControlConnectivity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "flightlab_control_connectivity_status",
			Help: "The connectivity status to the master ControlService (1=Ready, 0=NotReady).",
		},
	)

	// Reconnects counts command stream (re)connections made by the client.
	Reconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flightlab_control_connects_total",
			Help: "Successful command stream connections to the master.",
		},
	)

	// DispatchLatency measures how long a component takes to handle a command.
	DispatchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flightlab_command_dispatch_seconds",
			Help:    "Time taken by a component to handle a command.",
			Buckets: []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"kind", "command"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		Watchers,
		NotificationsDropped,
		StatusUpdates,
		SystemState,
		CommandsSent,
		ControlConnectivity,
		Reconnects,
		DispatchLatency,
	)
}

// Handler serves Registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// SetSystemState marks state as the only active system state.
func SetSystemState(state string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		SystemState.WithLabelValues(s).Set(v)
	}
}
