// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is what the hub and the server report to.
type Metrics interface {
	ObserveCommand(cmdType, outcome string, d time.Duration)
	IncPersistFailures()
	IncFlushes()
	SetViewers(n int)
}

var _ Metrics = (*MetricsService)(nil)

// MetricsService holds all the Prometheus metrics of the server.
type MetricsService struct {
	Commands        *prometheus.CounterVec
	CommandDuration prometheus.Histogram
	PersistFailures prometheus.Counter
	Flushes         prometheus.Counter
	Viewers         prometheus.Gauge
}

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewMetricsService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewMetricsService(registerer ...prometheus.Registerer) *MetricsService {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &MetricsService{
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scorebook_commands_total",
			Help: "The total number of commands handled, by type and outcome.",
		}, []string{"type", "outcome"}),
		CommandDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scorebook_command_duration_seconds",
			Help:    "Time spent applying a command in the hub.",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		PersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scorebook_persist_failures_total",
			Help: "The total number of snapshot writes that failed.",
		}),
		Flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scorebook_flushes_total",
			Help: "The total number of successful snapshot flushes.",
		}),
		Viewers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scorebook_viewers",
			Help: "The number of connected live scoreboard viewers.",
		}),
	}

	reg.MustRegister(
		s.Commands,
		s.CommandDuration,
		s.PersistFailures,
		s.Flushes,
		s.Viewers,
	)

	return s
}

func (s *MetricsService) ObserveCommand(cmdType, outcome string, d time.Duration) {
	s.Commands.WithLabelValues(cmdType, outcome).Inc()
	s.CommandDuration.Observe(d.Seconds())
}

func (s *MetricsService) IncPersistFailures() {
	s.PersistFailures.Inc()
}

func (s *MetricsService) IncFlushes() {
	s.Flushes.Inc()
}

func (s *MetricsService) SetViewers(n int) {
	s.Viewers.Set(float64(n))
}
