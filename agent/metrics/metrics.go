package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RoutingDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_routing_decisions_total",
			Help: "Total number of routing decisions by target agent and decision source",
		},
		[]string{"agent_type", "source"},
	)

	AgentTurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatbot_agent_turn_duration_seconds",
			Help:    "Duration of one agent turn in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"agent_type"},
	)

	AgentTurnFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_agent_turn_failures_total",
			Help: "Total number of agent turns that returned an error",
		},
		[]string{"agent_type"},
	)

	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_tool_calls_total",
			Help: "Total number of tool invocations by tool and outcome",
		},
		[]string{"tool", "outcome"},
	)

	HandoffTickets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_handoff_tickets_total",
			Help: "Total number of handoff tickets submitted per sink",
		},
		[]string{"sink"},
	)
)

// Tool call outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeUserError = "user_error"
	OutcomeError     = "error"
)
