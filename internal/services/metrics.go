package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizflow_status_transitions_total",
			Help: "Total number of application status writes by source and target status",
		},
		[]string{"from", "to"},
	)

	NotificationDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizflow_notification_deliveries_total",
			Help: "Total number of notification deliveries by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	OutboxDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bizflow_outbox_dropped_total",
			Help: "Total number of deliveries dropped because the outbox was full or closed",
		},
	)

	PaymentReminders = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bizflow_payment_reminders_total",
			Help: "Total number of payment reminders sent",
		},
	)
)
