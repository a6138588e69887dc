package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shs-health/booking-engine/internal/metrics"
	redisclient "github.com/shs-health/booking-engine/internal/redis"
	"github.com/shs-health/booking-engine/internal/schedule"
	"github.com/shs-health/booking-engine/internal/serial"
)

const (
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentReaped    = "APPOINTMENT_REAPED"
)

var (
	ErrInvalidDate             = errors.New("appointment date must be today or tomorrow")
	ErrDoctorNotAccepting      = errors.New("doctor is not accepting patients")
	ErrDoctorDayClosed         = errors.New("doctor's hours for today have already ended")
	ErrDuplicateBooking        = errors.New("patient already has an appointment with this doctor on this date")
	ErrNotOwner                = errors.New("appointment belongs to another patient")
	ErrNotCancellable          = errors.New("completed appointments cannot be cancelled")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrNotMissed               = errors.New("appointment is not currently missed")
	ErrSweepInProgress         = errors.New("a cleanup sweep is already running")
)

// WindowResolver is the slice of the schedule registry the service needs.
type WindowResolver interface {
	ResolveWindow(ctx context.Context, doctorID uuid.UUID, date time.Time) (*schedule.Window, error)
}

// Service composes the schedule registry, serial allocator, time estimator
// and classifier into the public booking operations.
type Service struct {
	repo      Repository
	schedules WindowResolver
	locker    redisclient.Locker
	metrics   *metrics.BookingMetrics
	grace     time.Duration
	log       zerolog.Logger

	// now is swappable for tests.
	now func() time.Time
}

func NewService(repo Repository, schedules WindowResolver, locker redisclient.Locker, m *metrics.BookingMetrics, grace time.Duration, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		schedules: schedules,
		locker:    locker,
		metrics:   m,
		grace:     grace,
		log:       log,
		now:       time.Now,
	}
}

type BookRequest struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Date      time.Time
	Notes     string
}

// Book creates a same-day or next-day appointment. Serial allocation and
// appointment persistence happen inside one transaction in the repository,
// so a failure on either side leaves no trace.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	now := s.now()
	date := DateOnly(req.Date)
	today := DateOnly(now)
	tomorrow := today.AddDate(0, 0, 1)

	if !sameDate(date, today) && !sameDate(date, tomorrow) {
		return nil, ErrInvalidDate
	}

	doctor, err := s.repo.GetDoctorByID(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	if !doctor.AcceptingPatients {
		return nil, ErrDoctorNotAccepting
	}

	if _, err := s.repo.GetPatientByID(ctx, req.PatientID); err != nil {
		return nil, err
	}

	win, err := s.schedules.ResolveWindow(ctx, req.DoctorID, date)
	if err != nil {
		return nil, err
	}

	// Same-day bookings after the doctor's hours have ended are refused;
	// tomorrow is always bookable within the window rules.
	if win != nil && sameDate(date, today) && schedule.ClockTime(now) >= win.End {
		return nil, ErrDoctorDayClosed
	}

	dup, err := s.repo.HasActiveAppointment(ctx, req.PatientID, req.DoctorID, date)
	if err != nil {
		return nil, fmt.Errorf("check duplicate booking: %w", err)
	}
	if dup {
		return nil, ErrDuplicateBooking
	}

	appt, err := s.repo.CreateWithSerial(ctx, CreateParams{
		DoctorID:  req.DoctorID,
		PatientID: req.PatientID,
		Date:      date,
		Notes:     req.Notes,
		Window:    win,
	})
	if err != nil {
		if errors.Is(err, serial.ErrAllocationConflict) {
			s.metrics.ObserveAllocationConflict()
			s.metrics.ObserveBooking("conflict")
		} else {
			s.metrics.ObserveBooking("error")
		}
		return nil, err
	}

	s.metrics.ObserveBooking("created")
	s.logEvent(ctx, appt.ID, EventAppointmentBooked, map[string]any{
		"doctor_id":     req.DoctorID.String(),
		"patient_id":    req.PatientID.String(),
		"date":          date.Format("2006-01-02"),
		"serial_number": appt.SerialNumber,
	})

	s.log.Info().
		Str("appointment_number", appt.AppointmentNumber).
		Int("serial_number", appt.SerialNumber).
		Bool("time_overflow", appt.TimeOverflow).
		Msg("appointment booked")

	return appt, nil
}

// Get retrieves an appointment with its read-time classification.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*ClassifiedAppointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ClassifiedAppointment{Appointment: *appt, State: Classify(appt, s.now())}, nil
}

// Cancel removes a patient's own non-completed appointment. The row is
// deleted outright; the serial counter stays put, so the freed serial is
// never reissued and other patients keep their numbers.
func (s *Service) Cancel(ctx context.Context, id, patientID uuid.UUID) error {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return err
	}
	if appt.PatientID != patientID {
		return ErrNotOwner
	}
	if appt.Status == StatusCompleted {
		return ErrNotCancellable
	}

	deleted, err := s.repo.DeleteAppointment(ctx, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if !deleted {
		return ErrAppointmentNotFound
	}

	s.logEvent(ctx, id, EventAppointmentCancelled, map[string]any{
		"serial_number": appt.SerialNumber,
		"by":            "patient",
	})
	return nil
}

// Confirm moves a pending appointment to confirmed.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.advance(ctx, id, StatusPending, StatusConfirmed, EventAppointmentConfirmed)
}

// Complete moves a confirmed appointment to completed. Recording the
// prescription that completion implies is the medical-record component's
// concern.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.advance(ctx, id, StatusConfirmed, StatusCompleted, EventAppointmentCompleted)
}

func (s *Service) advance(ctx context.Context, id uuid.UUID, from, to Status, event string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != from {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateStatus(ctx, id, from, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// The precondition moved underneath us.
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.logEvent(ctx, id, event, map[string]any{})
	return updated, nil
}

// DoctorDay builds the doctor's queue view for one date. Classification is
// recomputed against the current clock on every call. Appointments with an
// estimate come first in time order; the no-time tail is ordered by serial.
func (s *Service) DoctorDay(ctx context.Context, doctorID uuid.UUID, date time.Time) (*DayView, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}

	date = DateOnly(date)
	appts, err := s.repo.ListByDoctorAndDate(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("list day appointments: %w", err)
	}

	now := s.now()
	view := &DayView{Date: date}

	var timed, untimed []ClassifiedAppointment
	for i := range appts {
		a := appts[i]
		if a.Status == StatusCompleted {
			continue
		}

		ca := ClassifiedAppointment{Appointment: a, State: Classify(&a, now)}
		switch ca.State {
		case StateUpcoming:
			view.UpcomingCount++
		case StateMissed:
			view.MissedCount++
		case StateNoTime:
			view.NoTimeCount++
		}

		if a.ApproximateTime != nil {
			timed = append(timed, ca)
		} else {
			untimed = append(untimed, ca)
		}
	}

	sort.SliceStable(timed, func(i, j int) bool {
		if *timed[i].ApproximateTime != *timed[j].ApproximateTime {
			return *timed[i].ApproximateTime < *timed[j].ApproximateTime
		}
		return timed[i].SerialNumber < timed[j].SerialNumber
	})

	view.Appointments = append(timed, untimed...)
	view.Total = len(view.Appointments)
	return view, nil
}

// DoctorUpcoming lists all future-dated appointments for a doctor. Time-of-
// day classification is only meaningful for today, so these stay unlabeled.
func (s *Service) DoctorUpcoming(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.repo.ListFutureByDoctor(ctx, doctorID, DateOnly(s.now()))
}

// PatientAppointments splits a patient's appointments into upcoming and past
// for the dashboard.
func (s *Service) PatientAppointments(ctx context.Context, patientID uuid.UUID) (*PatientView, error) {
	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		return nil, err
	}

	appts, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list patient appointments: %w", err)
	}

	today := DateOnly(s.now())
	view := &PatientView{}
	for _, a := range appts {
		if !a.Date.Before(today) && a.Status != StatusCompleted {
			view.Upcoming = append(view.Upcoming, a)
		} else {
			view.Past = append(view.Past, a)
		}
	}

	sort.Slice(view.Upcoming, func(i, j int) bool {
		if !view.Upcoming[i].Date.Equal(view.Upcoming[j].Date) {
			return view.Upcoming[i].Date.Before(view.Upcoming[j].Date)
		}
		return view.Upcoming[i].SerialNumber < view.Upcoming[j].SerialNumber
	})

	return view, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("marshal event payload")
		data = nil
	}

	apptID := appointmentID
	ev := BookingEvent{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("insert booking event")
	}
}
