package agent

import "github.com/prometheus/client_golang/prometheus"

var (
	toolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agendabot_agent_tool_calls_total",
			Help: "Tool calls requested by the model",
		},
		[]string{"tool"},
	)

	turnRounds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "agendabot_agent_tool_rounds",
		Help:    "Tool rounds used per turn",
		Buckets: []float64{0, 1, 2, 3},
	})
)

func init() {
	prometheus.MustRegister(toolCallsTotal, turnRounds)
}
