package services

import "github.com/prometheus/client_golang/prometheus"

var webhookOutcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agendabot_webhook_events_total",
		Help: "Inbound WhatsApp events by outcome",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(webhookOutcomes)
}
