package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	AnswerStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "answer_stage_duration_seconds",
			Help:    "Duration of each answer pipeline stage",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 20},
		},
		[]string{"stage"},
	)

	AnswerBranches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "answer_branches_total",
			Help: "Answers by terminal branch (live_quote, no_context, generate)",
		},
		[]string{"branch", "lang"},
	)

	RetrievalFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrieval_fallbacks_total",
			Help: "Source-language fallback rounds by outcome (accepted, rejected)",
		},
		[]string{"outcome"},
	)

	LiveQuotes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_quotes_total",
			Help: "Live price/stock lookups by result",
		},
		[]string{"result"},
	)

	GuardrailVerdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardrail_verdicts_total",
			Help: "Guardrail checks by direction and reason (safe when nothing matched)",
		},
		[]string{"direction", "reason"},
	)

	PlannerOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fact_planner_outcomes_total",
			Help: "Fact planner results by query type or decline reason",
		},
		[]string{"outcome"},
	)

	EscalationSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escalation_steps_total",
			Help: "Escalation sub-steps by result",
		},
		[]string{"step", "result"},
	)
)
