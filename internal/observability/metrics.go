package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce   sync.Once
	requestsTotal  *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	errorResponses *prometheus.CounterVec

	tuitionReconciliations *prometheus.CounterVec
	tuitionRecordsCreated  prometheus.Counter
	tuitionRecordsRemoved  prometheus.Counter

	uploadRequestsTotal  *prometheus.CounterVec
	uploadRejectedTotal  *prometheus.CounterVec
	uploadLatencySeconds prometheus.Histogram

	loginAttemptsTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "API requests served, by area (admin, student, auth, public).",
		}, []string{"area", "method", "route", "status"})

		requestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_request_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"area", "method", "route"})

		errorResponses = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_error_responses_total",
			Help: "Responses with a 4xx or 5xx status.",
		}, []string{"area", "method", "route", "status"})

		tuitionReconciliations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tuition_reconciliations_total",
			Help: "Batch reconciliations grouped by outcome.",
		}, []string{"result"})

		tuitionRecordsCreated = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tuition_records_created_total",
			Help: "Tuition records generated by batch creation or reconciliation.",
		})

		tuitionRecordsRemoved = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tuition_records_removed_total",
			Help: "Tuition records removed because the student left the class or the batch was deleted.",
		})

		uploadRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "material_uploads_total",
			Help: "Stored material uploads grouped by detected MIME type.",
		}, []string{"mime"})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "material_uploads_rejected_total",
			Help: "Rejected material uploads grouped by reason.",
		}, []string{"reason"})

		uploadLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "material_upload_latency_seconds",
			Help:    "Time spent validating and storing material uploads.",
			Buckets: prometheus.DefBuckets,
		})

		loginAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Login attempts grouped by outcome.",
		}, []string{"result"})

		prometheus.MustRegister(
			requestsTotal, requestLatency, errorResponses,
			tuitionReconciliations, tuitionRecordsCreated, tuitionRecordsRemoved,
			uploadRequestsTotal, uploadRejectedTotal, uploadLatencySeconds,
			loginAttemptsTotal,
		)
	})
}

// Requests exposes the request counter.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// Latency exposes the request latency histogram.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return requestLatency
}

// ErrorResponses exposes the error response counter.
func ErrorResponses() *prometheus.CounterVec {
	RegisterMetrics()
	return errorResponses
}

// TuitionReconciliations counts batch syncs by result label.
func TuitionReconciliations() *prometheus.CounterVec {
	RegisterMetrics()
	return tuitionReconciliations
}

// TuitionRecordsCreated counts generated tuition records.
func TuitionRecordsCreated() prometheus.Counter {
	RegisterMetrics()
	return tuitionRecordsCreated
}

// TuitionRecordsRemoved counts removed tuition records.
func TuitionRecordsRemoved() prometheus.Counter {
	RegisterMetrics()
	return tuitionRecordsRemoved
}

// UploadRequests counts stored uploads.
func UploadRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRequestsTotal
}

// UploadRejected counts rejected uploads.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

// UploadLatency exposes the upload latency histogram.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatencySeconds
}

// LoginAttempts counts login attempts by result.
func LoginAttempts() *prometheus.CounterVec {
	RegisterMetrics()
	return loginAttemptsTotal
}
