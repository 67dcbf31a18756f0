// Package metrics records sync run outcomes as Prometheus metrics and pushes
// them to a Pushgateway, since a run is a short-lived batch job.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/cocoaheadsnl/cloudsync/pkg/errors"
	"github.com/cocoaheadsnl/cloudsync/pkg/pipeline"
)

// Job is the Pushgateway job name.
const Job = "cloudsync"

// Metrics holds the collectors of one run.
type Metrics struct {
	registry *prometheus.Registry

	records      *prometheus.GaugeVec
	stageSeconds *prometheus.GaugeVec
	runSeconds   prometheus.Gauge
	lastSuccess  prometheus.Gauge
	failures     *prometheus.GaugeVec
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cloudsync_stage_records",
			Help: "Records handled by the last run, labelled by stage and outcome.",
		}, []string{"stage", "outcome"}),
		stageSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cloudsync_stage_duration_seconds",
			Help: "Duration of each stage of the last run.",
		}, []string{"stage"}),
		runSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cloudsync_run_duration_seconds",
			Help: "Duration of the last run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cloudsync_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}),
		failures: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cloudsync_run_failed",
			Help: "1 if the last run failed, labelled by the failing stage.",
		}, []string{"stage"}),
	}
	// lastSuccess is pushed separately, only for successful runs
	m.registry.MustRegister(m.records, m.stageSeconds, m.runSeconds, m.failures)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe records a run result.
func (m *Metrics) Observe(res *pipeline.Result) {
	if res == nil {
		return
	}
	for _, s := range res.Stages {
		m.records.WithLabelValues(s.Stage, "upserted").Set(float64(s.Upserted))
		m.records.WithLabelValues(s.Stage, "deleted").Set(float64(s.Deleted))
		m.records.WithLabelValues(s.Stage, "matched").Set(float64(s.Matched))
		m.records.WithLabelValues(s.Stage, "inserted").Set(float64(s.Inserted))
		m.records.WithLabelValues(s.Stage, "skipped").Set(float64(s.Skipped))
		m.stageSeconds.WithLabelValues(s.Stage).Set(s.Duration.Seconds())
	}
	m.runSeconds.Set(res.Duration.Seconds())

	if res.Succeeded() {
		m.lastSuccess.Set(float64(res.StartTime.Add(res.Duration).Unix()))
		m.failures.WithLabelValues("").Set(0)
		return
	}
	m.failures.WithLabelValues(res.FailedStage).Set(1)
}

// Push sends the collected metrics to the Pushgateway at url. Metrics are
// added to the group rather than replacing it, so after a failed run the
// gateway still holds the last-success time of the previous good run.
func (m *Metrics) Push(ctx context.Context, url, instance string, succeeded bool) error {
	if url == "" {
		return nil
	}
	p := push.New(url, Job).Gatherer(m.registry)
	if instance != "" {
		p = p.Grouping("instance", instance)
	}
	if succeeded {
		p = p.Collector(m.lastSuccess)
	}
	if err := p.AddContext(ctx); err != nil {
		return errors.WrapAPI("pushgateway", url, err)
	}
	return nil
}
