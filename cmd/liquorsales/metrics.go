package main

import (
	"context"
	"time"

	"liquorsales/internal/config"
	"liquorsales/internal/metrics"
	"liquorsales/internal/metrics/datadog"
	"liquorsales/internal/metrics/prompush"
)

// setupMetrics installs the configured metrics backend and returns the
// function that flushes it. Backend init failures fall back to the nop
// backend.
func (a *app) setupMetrics(ctx context.Context, cfg config.MetricsConfig) func() {
	switch cfg.Backend {
	case "pushgateway":
		b, err := prompush.NewBackend(cfg.Job, cfg.PushgatewayURL)
		if err != nil {
			a.logger.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return func() {}
		}
		a.logger.Printf("metrics: url=%v, backend=%v, job_name=%v", cfg.PushgatewayURL, cfg.Backend, cfg.Job)
		metrics.SetBackend(b)
		return func() {
			if err := metrics.Flush(); err != nil {
				a.logger.Printf("metrics: flush error: %v", err)
			}
		}

	case "datadog":
		tags := datadog.ParseTagsCSV(cfg.Tags)
		b, err := datadog.NewBackend(ctx, datadog.Options{
			JobName:    cfg.Job,
			Tags:       tags,
			FlushEvery: 60 * time.Second,
		})
		if err != nil {
			a.logger.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return func() {}
		}
		a.logger.Printf("metrics: backend=%v job_name=%v tags=%v", cfg.Backend, cfg.Job, tags)
		metrics.SetBackend(b)
		// Close stops the periodic flush loop and submits one last time.
		return func() {
			if err := b.Close(); err != nil {
				a.logger.Printf("metrics: datadog close/flush error: %v", err)
			}
		}

	default:
		if a.verbose {
			a.logger.Printf("metrics: disabled (backend=%q)", cfg.Backend)
		}
		return func() {}
	}
}
