package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mr1hm/go-trial-monitor/internal/models"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trialmonitor_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trialmonitor_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	alertsRaisedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trialmonitor_alerts_raised_total",
			Help: "Alerts raised by the evaluator",
		},
		[]string{"type"},
	)

	evaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trialmonitor_evaluations_total",
			Help: "Clinic evaluations run by the evaluator",
		},
		[]string{"result"},
	)

	streamDeliveriesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trialmonitor_stream_alerts_dropped_total",
			Help: "Alert deliveries skipped because a stream subscriber fell behind",
		},
	)

	clinicDelayed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trialmonitor_clinic_delayed",
			Help: "1 when the clinic's latest update is past the delay threshold",
		},
		[]string{"clinic_id"},
	)

	clinicHoursSinceUpdate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trialmonitor_clinic_hours_since_update",
			Help: "Hours since the clinic last submitted an update",
		},
		[]string{"clinic_id"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		alertsRaisedTotal,
		evaluationsTotal,
		streamDeliveriesDropped,
		clinicDelayed,
		clinicHoursSinceUpdate,
	)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func AlertRaised(t models.AlertType) {
	alertsRaisedTotal.WithLabelValues(string(t)).Inc()
}

func StreamDeliveryDropped() {
	streamDeliveriesDropped.Inc()
}

func EvaluationFailed() {
	evaluationsTotal.WithLabelValues("error").Inc()
}

func ClinicEvaluated(st models.ClinicStatus) {
	evaluationsTotal.WithLabelValues("ok").Inc()

	delayed := 0.0
	if st.Status == models.StatusDelayed {
		delayed = 1
	}
	clinicDelayed.WithLabelValues(st.ClinicID).Set(delayed)
	clinicHoursSinceUpdate.WithLabelValues(st.ClinicID).Set(st.HoursSinceUpdate)
}
