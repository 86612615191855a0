/*
Package dispatch delivers post-commit side effects.

PURPOSE:
  Audit trail entries and user notifications accompany leave and attendance
  mutations but must never decide their outcome. The Dispatcher runs each
  delivery on its own goroutine after the primary transaction has committed:
  commit-then-enqueue. A failed delivery is logged and dropped; a crash
  between commit and enqueue loses the event. That bounded inconsistency is
  the contract, not an oversight.

SINKS:
  AuditSink and Notifier are the collaborator interfaces. Production wiring
  uses logging sinks (the real audit store and mailer live outside this
  core); tests use the in-memory recorders in memory.go.

SEE ALSO:
  - leave/service.go, attendance/service.go: emit after WithTx commits
  - memory.go: test recorders
*/
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// AuditEntry describes one auditable action.
type AuditEntry struct {
	ActorID      string
	Action       string
	ResourceType string
	ResourceID   string
	Metadata     map[string]string
	IPAddress    string
}

// AuditSink records audit entries. Asynchronous, best-effort.
type AuditSink interface {
	Record(ctx context.Context, e AuditEntry) error
}

// Notification describes one user-facing event.
type Notification struct {
	UserID    string
	EventType string
	Payload   map[string]string
}

// Notifier delivers notifications. Asynchronous, best-effort.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// =============================================================================
// DISPATCHER - Commit-then-enqueue, failures logged and swallowed
// =============================================================================

// Dispatcher fans committed events out to the audit and notification sinks.
// Either sink may be nil; deliveries to nil sinks are skipped.
type Dispatcher struct {
	audit    AuditSink
	notifier Notifier
	log      *logrus.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

func New(log *logrus.Logger, audit AuditSink, notifier Notifier) *Dispatcher {
	if log == nil {
		log = logrus.New()
	}
	return &Dispatcher{
		audit:    audit,
		notifier: notifier,
		log:      log,
		timeout:  5 * time.Second,
	}
}

// Audit delivers an audit entry in the background. Never returns an error
// to the caller; a sink failure is logged at Warn.
func (d *Dispatcher) Audit(e AuditEntry) {
	if d == nil || d.audit == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.audit.Record(ctx, e); err != nil {
			d.log.WithFields(logrus.Fields{
				"action":   e.Action,
				"resource": e.ResourceType + "/" + e.ResourceID,
			}).WithError(err).Warn("audit delivery failed")
		}
	}()
}

// Notify delivers a notification in the background, same contract as Audit.
func (d *Dispatcher) Notify(n Notification) {
	if d == nil || d.notifier == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.notifier.Notify(ctx, n); err != nil {
			d.log.WithFields(logrus.Fields{
				"user":  n.UserID,
				"event": n.EventType,
			}).WithError(err).Warn("notification delivery failed")
		}
	}()
}

// Wait blocks until in-flight deliveries finish. Used at shutdown and in
// tests; business operations never call it.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

// =============================================================================
// LOGGING SINKS - Production stand-ins for the external audit/mail systems
// =============================================================================

// LogAudit writes audit entries to the structured log.
type LogAudit struct {
	Log *logrus.Logger
}

func (s *LogAudit) Record(_ context.Context, e AuditEntry) error {
	s.Log.WithFields(logrus.Fields{
		"actor":    e.ActorID,
		"action":   e.Action,
		"resource": e.ResourceType + "/" + e.ResourceID,
		"metadata": e.Metadata,
	}).Info("audit")
	return nil
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	Log *logrus.Logger
}

func (s *LogNotifier) Notify(_ context.Context, n Notification) error {
	s.Log.WithFields(logrus.Fields{
		"user":    n.UserID,
		"event":   n.EventType,
		"payload": n.Payload,
	}).Info("notify")
	return nil
}
