package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// promCollectors mirrors the in-process counters on a Prometheus registry.
// A nil *promCollectors is valid and records nothing.
type promCollectors struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	analyses        *prometheus.CounterVec
	analysesRunning prometheus.Gauge
	analysisSeconds prometheus.Histogram
	rejections      *prometheus.CounterVec
	tasksScored     *prometheus.CounterVec
	oracleCalls     *prometheus.CounterVec
	oracleSeconds   prometheus.Histogram
	fieldsDefaulted prometheus.Counter
}

func defaultCollectors() *promCollectors {
	return mustNewCollectors(prometheus.DefaultRegisterer)
}

// mustNewCollectors builds and registers the collectors. It panics on a
// registration conflict, like the promauto helpers.
func mustNewCollectors(reg prometheus.Registerer) *promCollectors {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &promCollectors{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workscan",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "workscan",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workscan",
			Subsystem: "pipeline",
			Name:      "analyses_total",
			Help:      "Workflow analyses by outcome.",
		}, []string{"outcome"}),
		analysesRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "workscan",
			Subsystem: "pipeline",
			Name:      "analyses_running",
			Help:      "Analyses currently being scored.",
		}),
		analysisSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "workscan",
			Subsystem: "pipeline",
			Name:      "analysis_duration_seconds",
			Help:      "Time from admission to ROI summary.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workscan",
			Subsystem: "governor",
			Name:      "rejections_total",
			Help:      "Analyses rejected by the rate governor by reason.",
		}, []string{"reason"}),
		tasksScored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workscan",
			Subsystem: "scorer",
			Name:      "tasks_scored_total",
			Help:      "Tasks scored by strategy.",
		}, []string{"strategy"}),
		oracleCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workscan",
			Subsystem: "oracle",
			Name:      "calls_total",
			Help:      "Oracle calls by result.",
		}, []string{"result"}),
		oracleSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "workscan",
			Subsystem: "oracle",
			Name:      "call_duration_seconds",
			Help:      "Oracle call latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}),
		fieldsDefaulted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "workscan",
			Subsystem: "scorer",
			Name:      "fields_defaulted_total",
			Help:      "Oracle response fields replaced by defaults.",
		}),
	}

	reg.MustRegister(
		c.requests, c.requestDuration,
		c.analyses, c.analysesRunning, c.analysisSeconds,
		c.rejections, c.tasksScored,
		c.oracleCalls, c.oracleSeconds, c.fieldsDefaulted,
	)
	return c
}

func (c *promCollectors) request(route, method string, status int, latencyMs int64) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(route, method).Observe(float64(latencyMs) / 1000)
}

func (c *promCollectors) analysisStarted() {
	if c == nil {
		return
	}
	c.analyses.WithLabelValues("started").Inc()
	c.analysesRunning.Inc()
}

func (c *promCollectors) analysisCompleted(d time.Duration) {
	if c == nil {
		return
	}
	c.analyses.WithLabelValues("completed").Inc()
	c.analysesRunning.Dec()
	c.analysisSeconds.Observe(d.Seconds())
}

func (c *promCollectors) rejected(reason string) {
	if c == nil {
		return
	}
	c.rejections.WithLabelValues(reason).Inc()
}

func (c *promCollectors) taskScored(strategy string) {
	if c == nil {
		return
	}
	c.tasksScored.WithLabelValues(strategy).Inc()
}

func (c *promCollectors) oracleCall(success bool, d time.Duration) {
	if c == nil {
		return
	}
	result := "ok"
	if !success {
		result = "error"
	}
	c.oracleCalls.WithLabelValues(result).Inc()
	c.oracleSeconds.Observe(d.Seconds())
}

func (c *promCollectors) addFieldsDefaulted(n int) {
	if c == nil {
		return
	}
	c.fieldsDefaulted.Add(float64(n))
}
