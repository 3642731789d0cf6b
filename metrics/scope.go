// Package metrics builds the tally scope the windows report into.
package metrics

import (
	"io"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/uber-go/tally/v4"
	"github.com/uber-go/tally/v4/prometheus"
)

type Options struct {
	Prefix   string
	Tags     map[string]string
	Interval time.Duration
	// Registry defaults to a fresh registry, so several scopes can coexist in one process.
	Registry *prom.Registry
}

// Scope is a tally root scope reporting into a prometheus registry.
type Scope struct {
	tally.Scope
	closer   io.Closer
	reporter prometheus.Reporter
}

func NewPrometheusScope(options Options) *Scope {
	registry := options.Registry
	if registry == nil {
		registry = prom.NewRegistry()
	}
	if options.Interval <= 0 {
		options.Interval = time.Second
	}
	reporter := prometheus.NewReporter(prometheus.Options{
		Registerer:               registry,
		Gatherer:                 registry,
		DefaultTimerType:         prometheus.HistogramTimerType,
		DefaultHistogramBuckets:  prometheus.DefaultHistogramBuckets(),
		DefaultSummaryObjectives: prometheus.DefaultSummaryObjectives(),
	})
	scope, closer := tally.NewRootScope(tally.ScopeOptions{
		Tags:           options.Tags,
		Prefix:         options.Prefix,
		CachedReporter: reporter,
		Separator:      prometheus.DefaultSeparator,
	}, options.Interval)
	return &Scope{Scope: scope, closer: closer, reporter: reporter}
}

// Handler serves the registry in the prometheus exposition format.
func (s *Scope) Handler() http.Handler {
	return s.reporter.HTTPHandler()
}

// Close flushes pending values and stops the reporting loop.
func (s *Scope) Close() error {
	return s.closer.Close()
}
