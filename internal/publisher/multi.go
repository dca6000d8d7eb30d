package publisher

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/linelogic/internal/metrics"
	"github.com/yourusername/linelogic/internal/models"
)

// Sink receives emitted decisions.
type Sink interface {
	SaveDecisions(ctx context.Context, decisions []models.StakeDecision) error
}

// NamedSink labels a sink for logging and failure metrics.
type NamedSink struct {
	Name string
	Sink Sink
}

// MultiSink delivers decisions to every configured sink. A failing sink does
// not stop delivery to the rest.
type MultiSink struct {
	sinks  []NamedSink
	logger *logrus.Logger
}

// NewMultiSink creates a fan-out sink. Nil sinks are ignored.
func NewMultiSink(logger *logrus.Logger, sinks ...NamedSink) *MultiSink {
	m := &MultiSink{logger: logger}
	for _, s := range sinks {
		if s.Sink != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Len returns the number of sinks.
func (m *MultiSink) Len() int {
	return len(m.sinks)
}

// SaveDecisions delivers to each sink in order and joins the failures.
func (m *MultiSink) SaveDecisions(ctx context.Context, decisions []models.StakeDecision) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Sink.SaveDecisions(ctx, decisions); err != nil {
			metrics.RecordPublishFailure(s.Name)
			m.logger.WithError(err).WithFields(logrus.Fields{
				"sink":      s.Name,
				"decisions": len(decisions),
			}).Error("Failed to deliver decisions")
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}
