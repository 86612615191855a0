package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/warp/workforce-core/core"
	"github.com/warp/workforce-core/dispatch"
	"github.com/warp/workforce-core/lease"
)

// DebounceTTL bounds how long a check-in lease shields against duplicate
// submissions. Advisory only; the store constraints carry correctness.
const DebounceTTL = 5 * time.Second

// =============================================================================
// SERVICE
// =============================================================================

// Service records attendance events over a Store, guarded by an advisory
// lease and the store's conditional updates.
type Service struct {
	store    Store
	dir      Directory
	leases   lease.Store // may be nil: debounce disabled
	dispatch *dispatch.Dispatcher
	log      *logrus.Logger
	now      func() time.Time
}

func NewService(store Store, dir Directory, leases lease.Store, d *dispatch.Dispatcher, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{store: store, dir: dir, leases: leases, dispatch: d, log: log, now: time.Now}
}

// ClockInInput carries one check-in submission.
type ClockInInput struct {
	EmployeeID string
	Method     Method
	Latitude   *float64
	Longitude  *float64
	At         *time.Time // nil means now
}

// ClockIn opens the employee's record for the day.
//
// A short debounce lease keyed by employee collapses rapid retries: a held
// lease means an identical submission is already in flight, which is a
// conflict. An unreachable lease store fails OPEN - the operation proceeds
// and the store's UNIQUE (employee, day) constraint plus the only-if-NULL
// check-in update keep the exactly-once guarantee.
func (s *Service) ClockIn(ctx context.Context, in ClockInInput) (*Record, error) {
	at := s.at(in.At)
	day := core.Day(at)

	if s.leases != nil {
		ok, err := s.leases.Acquire(ctx, "attendance:checkin:"+in.EmployeeID, DebounceTTL)
		if err != nil {
			s.log.WithError(err).WithField("employee", in.EmployeeID).
				Warn("lease store unreachable, proceeding without debounce")
		} else if !ok {
			return nil, &core.ConflictError{Reason: "check-in already in progress"}
		}
		// The lease is left to expire on its own TTL so that retries
		// arriving just after commit are still collapsed.
	}

	var rec Record
	err := s.store.WithTx(ctx, func(tx Tx) error {
		existing, err := tx.GetRecord(ctx, in.EmployeeID, day)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.CheckIn != nil {
				return &core.ConflictError{Reason: "already clocked in"}
			}
			// Record exists without a check-in (pre-created manually);
			// claim it with the conditional update.
			if err := tx.SetCheckIn(ctx, existing.ID, at, StatusPresent, in.Method); err != nil {
				return err
			}
			rec = *existing
			rec.CheckIn = &at
			rec.Status = StatusPresent
			rec.Method = in.Method
		} else {
			now := s.now().UTC()
			rec = Record{
				ID:         uuid.NewString(),
				EmployeeID: in.EmployeeID,
				Day:        day,
				CheckIn:    &at,
				Status:     StatusPresent,
				Method:     in.Method,
				Latitude:   in.Latitude,
				Longitude:  in.Longitude,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := tx.InsertRecord(ctx, rec); err != nil {
				return err
			}
		}
		return tx.AppendLog(ctx, Log{
			ID:       uuid.NewString(),
			RecordID: rec.ID,
			Type:     LogIn,
			At:       at,
			ActorID:  in.EmployeeID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.dispatch.Audit(dispatch.AuditEntry{
		ActorID:      in.EmployeeID,
		Action:       "attendance.clock_in",
		ResourceType: "attendance_record",
		ResourceID:   rec.ID,
		Metadata:     map[string]string{"day": core.FormatDate(day), "method": string(in.Method)},
	})
	return &rec, nil
}

// ClockOut closes the employee's record for the day and derives worked
// minutes. The already-checked-out guard is explicit and checked before any
// write; the store's only-if-NULL update backs it under concurrency.
func (s *Service) ClockOut(ctx context.Context, employeeID string, method Method, atOpt *time.Time) (*Record, error) {
	at := s.at(atOpt)
	day := core.Day(at)

	var rec Record
	err := s.store.WithTx(ctx, func(tx Tx) error {
		existing, err := tx.GetRecord(ctx, employeeID, day)
		if err != nil {
			return err
		}
		if existing == nil || existing.CheckIn == nil {
			return &core.NotFoundError{Resource: "check-in for today", ID: employeeID}
		}
		if existing.CheckOut != nil {
			return &core.ConflictError{Reason: "already checked out"}
		}
		if at.Before(*existing.CheckIn) {
			return &core.ValidationError{Field: "timestamp", Reason: "check-out before check-in"}
		}

		minutes := WorkMinutes(*existing.CheckIn, at)
		if err := tx.SetCheckOut(ctx, existing.ID, at, minutes); err != nil {
			return err
		}
		rec = *existing
		rec.CheckOut = &at
		rec.WorkMinutes = minutes

		return tx.AppendLog(ctx, Log{
			ID:       uuid.NewString(),
			RecordID: rec.ID,
			Type:     LogOut,
			At:       at,
			ActorID:  employeeID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.dispatch.Audit(dispatch.AuditEntry{
		ActorID:      employeeID,
		Action:       "attendance.clock_out",
		ResourceType: "attendance_record",
		ResourceID:   rec.ID,
		Metadata:     map[string]string{"day": core.FormatDate(day), "method": string(method)},
	})
	return &rec, nil
}

// ManualInput carries an administrative record creation.
type ManualInput struct {
	EmployeeID string
	Day        time.Time
	CheckIn    *time.Time
	CheckOut   *time.Time
	Status     Status
	Note       string
}

// ManualEntry creates a day's record on the administrator/manager path.
// Bypasses the debounce lease. A manager may only act on direct reports;
// an admin may act on anyone. The target day must have no record yet.
func (s *Service) ManualEntry(ctx context.Context, in ManualInput, actor core.Actor) (*Record, error) {
	if err := s.authorize(ctx, in.EmployeeID, actor); err != nil {
		return nil, err
	}
	if in.CheckOut != nil && in.CheckIn == nil {
		return nil, &core.ValidationError{Field: "checkIn", Reason: "required when checkOut is set"}
	}
	if in.CheckIn != nil && in.CheckOut != nil && in.CheckOut.Before(*in.CheckIn) {
		return nil, &core.ValidationError{Field: "checkOut", Reason: "before checkIn"}
	}
	status := in.Status
	if status == "" {
		status = StatusPresent
	}

	day := core.Day(in.Day)
	var rec Record
	err := s.store.WithTx(ctx, func(tx Tx) error {
		existing, err := tx.GetRecord(ctx, in.EmployeeID, day)
		if err != nil {
			return err
		}
		if existing != nil {
			return &core.ConflictError{Reason: "record already exists for " + core.FormatDate(day)}
		}

		now := s.now().UTC()
		rec = Record{
			ID:         uuid.NewString(),
			EmployeeID: in.EmployeeID,
			Day:        day,
			CheckIn:    in.CheckIn,
			CheckOut:   in.CheckOut,
			Status:     status,
			Method:     MethodManual,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if rec.CheckIn != nil && rec.CheckOut != nil {
			rec.WorkMinutes = WorkMinutes(*rec.CheckIn, *rec.CheckOut)
		}
		if err := tx.InsertRecord(ctx, rec); err != nil {
			return err
		}
		return tx.AppendLog(ctx, Log{
			ID:       uuid.NewString(),
			RecordID: rec.ID,
			Type:     LogManual,
			At:       s.now().UTC(),
			ActorID:  actor.ID,
			Note:     in.Note,
		})
	})
	if err != nil {
		return nil, err
	}

	s.dispatch.Audit(dispatch.AuditEntry{
		ActorID:      actor.ID,
		Action:       "attendance.manual_entry",
		ResourceType: "attendance_record",
		ResourceID:   rec.ID,
		Metadata:     map[string]string{"employee": in.EmployeeID, "day": core.FormatDate(day)},
	})
	return &rec, nil
}

// UpdateInput patches a day's record on the administrative path. Nil fields
// are left unchanged.
type UpdateInput struct {
	CheckIn  *time.Time
	CheckOut *time.Time
	Status   *Status
	Note     string
}

// Update retroactively edits a record. Worked minutes are recomputed
// whenever both timestamps are present after the edit.
func (s *Service) Update(ctx context.Context, recordID string, in UpdateInput, actor core.Actor) (*Record, error) {
	var rec Record
	err := s.store.WithTx(ctx, func(tx Tx) error {
		existing, err := tx.GetRecordByID(ctx, recordID)
		if err != nil {
			return err
		}
		if existing == nil {
			return &core.NotFoundError{Resource: "attendance record", ID: recordID}
		}
		if err := s.authorize(ctx, existing.EmployeeID, actor); err != nil {
			return err
		}

		rec = *existing
		if in.CheckIn != nil {
			rec.CheckIn = in.CheckIn
		}
		if in.CheckOut != nil {
			rec.CheckOut = in.CheckOut
		}
		if in.Status != nil {
			rec.Status = *in.Status
		}
		if rec.CheckOut != nil && rec.CheckIn == nil {
			return &core.ValidationError{Field: "checkIn", Reason: "required when checkOut is set"}
		}
		if rec.CheckIn != nil && rec.CheckOut != nil {
			if rec.CheckOut.Before(*rec.CheckIn) {
				return &core.ValidationError{Field: "checkOut", Reason: "before checkIn"}
			}
			rec.WorkMinutes = WorkMinutes(*rec.CheckIn, *rec.CheckOut)
		}
		rec.UpdatedAt = s.now().UTC()
		if err := tx.UpdateRecord(ctx, rec); err != nil {
			return err
		}
		return tx.AppendLog(ctx, Log{
			ID:       uuid.NewString(),
			RecordID: rec.ID,
			Type:     LogManual,
			At:       s.now().UTC(),
			ActorID:  actor.ID,
			Note:     in.Note,
		})
	})
	if err != nil {
		return nil, err
	}

	s.dispatch.Audit(dispatch.AuditEntry{
		ActorID:      actor.ID,
		Action:       "attendance.update",
		ResourceType: "attendance_record",
		ResourceID:   rec.ID,
	})
	return &rec, nil
}

// Records returns an employee's records in [from, to], oldest first.
func (s *Service) Records(ctx context.Context, employeeID string, from, to time.Time) ([]Record, error) {
	if core.Day(to).Before(core.Day(from)) {
		return nil, fmt.Errorf("%w: from %s after to %s",
			core.ErrInvalidRange, core.FormatDate(from), core.FormatDate(to))
	}
	return s.store.ListRecords(ctx, employeeID, core.Day(from), core.Day(to))
}

// Logs returns the append-only trail for one record.
func (s *Service) Logs(ctx context.Context, recordID string) ([]Log, error) {
	return s.store.ListLogs(ctx, recordID)
}

// =============================================================================
// HELPERS
// =============================================================================

// WorkMinutes is floor((out - in) / 1 minute).
func WorkMinutes(in, out time.Time) int {
	return int(out.Sub(in) / time.Minute)
}

func (s *Service) authorize(ctx context.Context, employeeID string, actor core.Actor) error {
	if actor.Admin {
		return nil
	}
	mgr, err := s.dir.ManagerOf(ctx, employeeID)
	if err != nil {
		return err
	}
	if mgr == "" || mgr != actor.ID {
		return fmt.Errorf("%w: %s is not the manager of %s", core.ErrUnauthorized, actor.ID, employeeID)
	}
	return nil
}

func (s *Service) at(opt *time.Time) time.Time {
	if opt != nil {
		return opt.UTC()
	}
	return s.now().UTC()
}
