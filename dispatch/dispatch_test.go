package dispatch_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/workforce-core/dispatch"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func TestDispatcher_DeliversAfterWait(t *testing.T) {
	// GIVEN: Memory sinks behind the dispatcher
	// WHEN: Emitting an audit entry and a notification, then draining
	// THEN: Both were delivered

	audit := &dispatch.MemoryAudit{}
	notes := &dispatch.MemoryNotifier{}
	d := dispatch.New(quietLogger(), audit, notes)

	d.Audit(dispatch.AuditEntry{ActorID: "emp-1", Action: "attendance.clock_in"})
	d.Notify(dispatch.Notification{UserID: "emp-1", EventType: "leave.approved"})
	d.Wait()

	require.Len(t, audit.Entries(), 1)
	assert.Equal(t, "attendance.clock_in", audit.Entries()[0].Action)
	require.Len(t, notes.Notifications(), 1)
	assert.Equal(t, "leave.approved", notes.Notifications()[0].EventType)
}

func TestDispatcher_SinkFailure_Swallowed(t *testing.T) {
	// A failing sink is logged, never propagated; no panic, no retry loop.
	audit := &dispatch.MemoryAudit{Fail: true}
	notes := &dispatch.MemoryNotifier{Fail: true}
	d := dispatch.New(quietLogger(), audit, notes)

	d.Audit(dispatch.AuditEntry{Action: "leave.request.created"})
	d.Notify(dispatch.Notification{EventType: "leave.rejected"})
	d.Wait()

	assert.Empty(t, audit.Entries())
	assert.Empty(t, notes.Notifications())
}

func TestDispatcher_NilReceiver_Safe(t *testing.T) {
	// Services built without a dispatcher call through a nil pointer.
	var d *dispatch.Dispatcher

	assert.NotPanics(t, func() {
		d.Audit(dispatch.AuditEntry{Action: "noop"})
		d.Notify(dispatch.Notification{EventType: "noop"})
		d.Wait()
	})
}
