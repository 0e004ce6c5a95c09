package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		notificationsSentTotal,
		schedulerTicksTotal,
		usersRegisteredTotal,
		telegramCommandsReceivedTotal,
		telegramRateLimitTriggeredTotal,
	)
}

var (
	notificationsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Notifications emitted by the scheduler, by kind and delivery result.",
		},
		[]string{"kind", "result"}, // kind: congrats|reminder|error_notice
	)

	schedulerTicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_ticks_total",
			Help: "Total number of completed scheduler ticks.",
		},
	)

	usersRegisteredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "users_registered_total",
			Help: "Total number of /start registrations.",
		},
	)

	telegramCommandsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_commands_received_total",
			Help: "Counts incoming commands from users.",
		},
		[]string{"command"},
	)

	telegramRateLimitTriggeredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_rate_limit_triggered_total",
			Help: "Total number of times users have been rate-limited.",
		},
	)
)

func IncNotification(kind string, delivered bool) {
	result := "sent"
	if !delivered {
		result = "failed"
	}
	notificationsSentTotal.WithLabelValues(norm(kind), result).Inc()
}

func IncSchedulerTick() { schedulerTicksTotal.Inc() }

func IncUsersRegistered() { usersRegisteredTotal.Inc() }

func IncTelegramCommand(command string) {
	telegramCommandsReceivedTotal.WithLabelValues(norm(command)).Inc()
}

func IncRateLimitTriggered() { telegramRateLimitTriggeredTotal.Inc() }
