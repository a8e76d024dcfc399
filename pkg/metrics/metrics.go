package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы обработки одного элемента рассылки.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// Metrics - метрики фоновых задач. Все методы безопасны для nil.
type Metrics struct {
	ReminderItems       *prometheus.CounterVec
	ReminderRunDuration *prometheus.HistogramVec
	ReminderRunsRefused *prometheus.CounterVec

	ComplianceChanged prometheus.Counter
	TicketTransitions *prometheus.CounterVec
}

// New регистрирует метрики в reg. В main передаётся prometheus.DefaultRegisterer,
// в тестах - новый prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ReminderItems: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "compliance_reminder_items_total",
			Help: "Reminder items processed by kind and outcome",
		}, []string{"kind", "outcome"}),

		ReminderRunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "compliance_reminder_run_duration_seconds",
			Help:    "Duration of a whole reminder dispatch run",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"kind"}),

		ReminderRunsRefused: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "compliance_reminder_runs_refused_total",
			Help: "Reminder runs refused because the same kind is already running",
		}, []string{"kind"}),

		ComplianceChanged: factory.NewCounter(prometheus.CounterOpts{
			Name: "compliance_status_changes_total",
			Help: "Cached compliance statuses rewritten by the refresh job",
		}),

		TicketTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "compliance_ticket_transitions_total",
			Help: "Ticket status transitions by target status",
		}, []string{"to"}),
	}
}

func (m *Metrics) IncReminderItem(kind, outcome string) {
	if m != nil {
		m.ReminderItems.WithLabelValues(kind, outcome).Inc()
	}
}

func (m *Metrics) ObserveReminderRun(kind string, d time.Duration) {
	if m != nil {
		m.ReminderRunDuration.WithLabelValues(kind).Observe(d.Seconds())
	}
}

func (m *Metrics) IncRunRefused(kind string) {
	if m != nil {
		m.ReminderRunsRefused.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) AddComplianceChanged(n int) {
	if m != nil && n > 0 {
		m.ComplianceChanged.Add(float64(n))
	}
}

func (m *Metrics) IncTicketTransition(to string) {
	if m != nil {
		m.TicketTransitions.WithLabelValues(to).Inc()
	}
}
