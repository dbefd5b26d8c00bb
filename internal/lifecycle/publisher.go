// Package lifecycle carries the registry's "specialist unhealthy" signal to
// the external lifecycle manager. The core never restarts specialist
// processes itself; it only emits events and hears back through
// re-registration or continued probes.
package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Event is one health transition worth telling the lifecycle manager about.
type Event struct {
	SpecialistID        string    `json:"specialist_id"`
	Name                string    `json:"name"`
	Version             string    `json:"version"`
	State               string    `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Timestamp           time.Time `json:"timestamp"`
}

// Publisher delivers lifecycle events. Implementations must not block the
// caller for long; the prober invokes Publish from its probe loop.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// LogPublisher writes lifecycle events to the structured log. It is the
// default when no Kafka brokers are configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a log-only publisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, ev Event) error {
	p.logger.WarnContext(ctx, "specialist unhealthy",
		"specialist_id", ev.SpecialistID,
		"version", ev.Version,
		"consecutive_failures", ev.ConsecutiveFailures,
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Recorder captures events in memory for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
