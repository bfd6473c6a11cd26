package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CardsScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sabis_cards_scanned_total",
			Help: "Total number of candidate cards evaluated",
		},
	)

	AssignmentsExtracted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sabis_assignments_extracted_total",
			Help: "Total number of assignment records surfaced after deduplication",
		},
	)

	CandidatesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sabis_candidates_rejected_total",
			Help: "Candidate cards rejected by the assignment gates",
		},
		[]string{"reason"},
	)

	ExamsExtracted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sabis_exams_extracted_total",
			Help: "Total number of exam rows mapped",
		},
	)

	PortalRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sabis_portal_requests_total",
			Help: "Portal HTTP requests by endpoint and outcome",
		},
		[]string{"endpoint", "status"},
	)

	PortalRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sabis_portal_request_duration_seconds",
			Help:    "Portal request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	ProjectedGrades = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sabis_projected_grades_total",
			Help: "Grade projections by resulting letter",
		},
		[]string{"letter", "method"},
	)
)
