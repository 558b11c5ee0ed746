// Package audit records operator actions taken through the console: which rule
// was created, modified, combined, deleted or evaluated, by which request, and
// whether the rule service accepted it. Events are written asynchronously so a
// slow sink never delays the page.
package audit

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Action constants for audit logging
const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionDeleted   = "deleted"
	ActionCombined  = "combined"
	ActionEvaluated = "evaluated"
)

// Status constants for audit logging
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Clock interface for testable time operations
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using time.Now()
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// IDGenerator interface for testable ID generation
type IDGenerator interface {
	Generate() string
}

// UUIDGenerator implements IDGenerator using UUID v4
type UUIDGenerator struct{}

func (UUIDGenerator) Generate() string { return uuid.NewString() }

// Source represents request metadata
type Source struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
}

// Event is one operator action.
type Event struct {
	OccurredAt time.Time `json:"occurred_at"`
	RequestID  string    `json:"request_id"`
	Source     Source    `json:"source"`
	Action     string    `json:"action"`
	Rule       string    `json:"rule"`
	Status     string    `json:"status"`
	Message    string    `json:"message,omitempty"`
}

// NewEvent starts an event from the request that triggered it.
func NewEvent(r *http.Request, action, rule string, ok bool, message string) Event {
	status := StatusSuccess
	if !ok {
		status = StatusFailure
	}
	return Event{
		RequestID: middleware.GetReqID(r.Context()),
		Source: Source{
			IPAddress: r.RemoteAddr,
			UserAgent: r.UserAgent(),
		},
		Action:  action,
		Rule:    rule,
		Status:  status,
		Message: message,
	}
}

// Sink persists audit events.
type Sink interface {
	Write(ctx context.Context, event Event) error
}

// LogSink writes events as structured log lines.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink creates a sink on log.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log.With().Str("stream", "audit").Logger()}
}

func (s *LogSink) Write(_ context.Context, e Event) error {
	ev := s.log.Info()
	if e.Status == StatusFailure {
		ev = s.log.Warn()
	}
	ev.Time("occurred_at", e.OccurredAt).
		Str("request_id", e.RequestID).
		Str("ip", e.Source.IPAddress).
		Str("user_agent", e.Source.UserAgent).
		Str("action", e.Action).
		Str("rule", e.Rule).
		Str("status", e.Status).
		Str("message", e.Message).
		Msg("operator action")
	return nil
}

// MemorySink keeps events in memory.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func (m *MemorySink) Write(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

// Events returns a copy of what has been written.
func (m *MemorySink) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Service provides audit logging functionality
type Service struct {
	sink    Sink
	clock   Clock
	idgen   IDGenerator
	log     zerolog.Logger
	queue   chan Event
	stopCh  chan struct{}
	doneCh  chan struct{}
	closed  int32 // atomic flag to prevent double-close
	dropped atomic.Int64
}

// NewService creates a new audit service and starts its worker.
func NewService(sink Sink, clock Clock, idgen IDGenerator, log zerolog.Logger, queueSize int) *Service {
	if clock == nil {
		clock = SystemClock{}
	}
	if idgen == nil {
		idgen = UUIDGenerator{}
	}
	if queueSize <= 0 {
		queueSize = 256
	}

	s := &Service{
		sink:   sink,
		clock:  clock,
		idgen:  idgen,
		log:    log,
		queue:  make(chan Event, queueSize),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go s.worker()

	return s
}

// worker processes audit events in the background
func (s *Service) worker() {
	defer close(s.doneCh)
	for {
		select {
		case event := <-s.queue:
			s.write(event)
		case <-s.stopCh:
			// Drain remaining events before stopping
			for {
				select {
				case event := <-s.queue:
					s.write(event)
				default:
					return
				}
			}
		}
	}
}

func (s *Service) write(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.sink.Write(ctx, event); err != nil {
		s.log.Error().Err(err).Str("action", event.Action).Msg("audit: failed to write event")
	}
}

// Close stops the worker after draining queued events. Safe to call more than once.
func (s *Service) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil
	}
	close(s.stopCh)
	<-s.doneCh
	return nil
}

// Log queues an event. It never blocks; when the queue is full the event is dropped.
func (s *Service) Log(event Event) {
	if s == nil || atomic.LoadInt32(&s.closed) == 1 {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.clock.Now()
	}
	if event.RequestID == "" {
		event.RequestID = s.idgen.Generate()
	}

	select {
	case s.queue <- event:
	default:
		s.dropped.Add(1)
		s.log.Warn().Str("action", event.Action).Str("rule", event.Rule).Msg("audit: queue full, dropping event")
	}
}

// Dropped reports how many events were discarded because the queue was full.
func (s *Service) Dropped() int64 { return s.dropped.Load() }
