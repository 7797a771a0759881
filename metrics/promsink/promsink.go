// Package promsink counts auth events in Prometheus. Wire it into an
// Authenticator through WithActivitySink.
package promsink

import (
	"context"

	idbridge "github.com/arcline/go-idbridge"
	"github.com/prometheus/client_golang/prometheus"
)

type Sink struct {
	events *prometheus.CounterVec
}

var _ idbridge.ActivitySink = (*Sink)(nil)

// New creates an unregistered sink. Call Register before use.
func New() *Sink {
	return &Sink{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idbridge_auth_events_total",
				Help: "Total number of auth events by kind.",
			},
			[]string{"kind"},
		),
	}
}

// Register attaches the sink's collectors to the given registerer.
func (s *Sink) Register(reg prometheus.Registerer) error {
	return reg.Register(s.events)
}

// Record implements idbridge.ActivitySink.
func (s *Sink) Record(_ context.Context, event idbridge.ActivityEvent) error {
	s.events.WithLabelValues(event.Kind).Inc()
	return nil
}
