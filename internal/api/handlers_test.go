package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shs-health/booking-engine/internal/booking"
	"github.com/shs-health/booking-engine/internal/schedule"
	"github.com/shs-health/booking-engine/internal/serial"
)

// stubBookings lets each test plug in just the calls it exercises.
type stubBookings struct {
	book           func(ctx context.Context, req booking.BookRequest) (*booking.Appointment, error)
	get            func(ctx context.Context, id uuid.UUID) (*booking.ClassifiedAppointment, error)
	cancel         func(ctx context.Context, id, patientID uuid.UUID) error
	confirm        func(ctx context.Context, id uuid.UUID) (*booking.Appointment, error)
	complete       func(ctx context.Context, id uuid.UUID) (*booking.Appointment, error)
	doctorDay      func(ctx context.Context, doctorID uuid.UUID, date time.Time) (*booking.DayView, error)
	doctorUpcoming func(ctx context.Context, doctorID uuid.UUID) ([]booking.Appointment, error)
	patientAppts   func(ctx context.Context, patientID uuid.UUID) (*booking.PatientView, error)
	deleteIfMissed func(ctx context.Context, id uuid.UUID) error
	cleanupMissed  func(ctx context.Context) (*booking.CleanupResult, error)
}

func (s *stubBookings) Book(ctx context.Context, req booking.BookRequest) (*booking.Appointment, error) {
	return s.book(ctx, req)
}

func (s *stubBookings) Get(ctx context.Context, id uuid.UUID) (*booking.ClassifiedAppointment, error) {
	return s.get(ctx, id)
}

func (s *stubBookings) Cancel(ctx context.Context, id, patientID uuid.UUID) error {
	return s.cancel(ctx, id, patientID)
}

func (s *stubBookings) Confirm(ctx context.Context, id uuid.UUID) (*booking.Appointment, error) {
	return s.confirm(ctx, id)
}

func (s *stubBookings) Complete(ctx context.Context, id uuid.UUID) (*booking.Appointment, error) {
	return s.complete(ctx, id)
}

func (s *stubBookings) DoctorDay(ctx context.Context, doctorID uuid.UUID, date time.Time) (*booking.DayView, error) {
	return s.doctorDay(ctx, doctorID, date)
}

func (s *stubBookings) DoctorUpcoming(ctx context.Context, doctorID uuid.UUID) ([]booking.Appointment, error) {
	return s.doctorUpcoming(ctx, doctorID)
}

func (s *stubBookings) PatientAppointments(ctx context.Context, patientID uuid.UUID) (*booking.PatientView, error) {
	return s.patientAppts(ctx, patientID)
}

func (s *stubBookings) DeleteIfMissed(ctx context.Context, id uuid.UUID) error {
	return s.deleteIfMissed(ctx, id)
}

func (s *stubBookings) CleanupMissed(ctx context.Context) (*booking.CleanupResult, error) {
	return s.cleanupMissed(ctx)
}

type stubSchedules struct {
	list       func(ctx context.Context, doctorID uuid.UUID) ([]schedule.Window, error)
	get        func(ctx context.Context, doctorID uuid.UUID, day time.Weekday) (*schedule.Window, error)
	upsert     func(ctx context.Context, doctorID uuid.UUID, p schedule.WindowParams) (*schedule.Window, error)
	deactivate func(ctx context.Context, doctorID uuid.UUID, day time.Weekday) error
}

func (s *stubSchedules) ListWindows(ctx context.Context, doctorID uuid.UUID) ([]schedule.Window, error) {
	return s.list(ctx, doctorID)
}

func (s *stubSchedules) GetWindow(ctx context.Context, doctorID uuid.UUID, day time.Weekday) (*schedule.Window, error) {
	return s.get(ctx, doctorID, day)
}

func (s *stubSchedules) UpsertWindow(ctx context.Context, doctorID uuid.UUID, p schedule.WindowParams) (*schedule.Window, error) {
	return s.upsert(ctx, doctorID, p)
}

func (s *stubSchedules) DeactivateWindow(ctx context.Context, doctorID uuid.UUID, day time.Weekday) error {
	return s.deactivate(ctx, doctorID, day)
}

func newTestRouter(bookings BookingService, schedules ScheduleService) http.Handler {
	return NewRouter(RouterConfig{
		Bookings:  bookings,
		Schedules: schedules,
		Logger:    zerolog.Nop(),
		Env:       "test",
		Version:   "test",
	})
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sampleAppointment(serialNumber int) *booking.Appointment {
	approx, _ := schedule.ParseTimeOfDay("09:40")
	return &booking.Appointment{
		ID:                uuid.New(),
		AppointmentNumber: "APT-20260831-1A2B3C",
		DoctorID:          uuid.New(),
		PatientID:         uuid.New(),
		Date:              time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		SerialNumber:      serialNumber,
		ApproximateTime:   &approx,
		Status:            booking.StatusPending,
	}
}

func TestBookAppointmentCreated(t *testing.T) {
	appt := sampleAppointment(5)
	svc := &stubBookings{
		book: func(_ context.Context, req booking.BookRequest) (*booking.Appointment, error) {
			assert.Equal(t, appt.DoctorID, req.DoctorID)
			assert.Equal(t, "running late", req.Notes)
			return appt, nil
		},
	}
	h := newTestRouter(svc, nil)

	rec := doRequest(t, h, http.MethodPost, "/appointments", map[string]string{
		"doctor_id":        appt.DoctorID.String(),
		"patient_id":       appt.PatientID.String(),
		"appointment_date": "2026-08-31",
		"patient_notes":    "running late",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.SerialNumber)
	require.NotNil(t, resp.ApproximateTime)
	assert.Equal(t, "09:40", *resp.ApproximateTime)
	assert.Equal(t, "2026-08-31", resp.AppointmentDate)
	assert.Empty(t, resp.State)
}

func TestBookAppointmentValidation(t *testing.T) {
	h := newTestRouter(&stubBookings{}, nil)

	cases := []struct {
		name string
		body map[string]string
	}{
		{"bad doctor id", map[string]string{"doctor_id": "nope", "patient_id": uuid.NewString(), "appointment_date": "2026-08-31"}},
		{"bad patient id", map[string]string{"doctor_id": uuid.NewString(), "patient_id": "nope", "appointment_date": "2026-08-31"}},
		{"bad date", map[string]string{"doctor_id": uuid.NewString(), "patient_id": uuid.NewString(), "appointment_date": "31-08-2026"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, h, http.MethodPost, "/appointments", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestBookAppointmentErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{booking.ErrInvalidDate, http.StatusBadRequest},
		{booking.ErrDoctorNotFound, http.StatusNotFound},
		{booking.ErrPatientNotFound, http.StatusNotFound},
		{booking.ErrDoctorNotAccepting, http.StatusForbidden},
		{booking.ErrDoctorDayClosed, http.StatusForbidden},
		{booking.ErrDuplicateBooking, http.StatusConflict},
		{serial.ErrAllocationConflict, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			svc := &stubBookings{
				book: func(context.Context, booking.BookRequest) (*booking.Appointment, error) {
					return nil, tc.err
				},
			}
			h := newTestRouter(svc, nil)

			rec := doRequest(t, h, http.MethodPost, "/appointments", map[string]string{
				"doctor_id":        uuid.NewString(),
				"patient_id":       uuid.NewString(),
				"appointment_date": "2026-08-31",
			})
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestGetAppointmentIncludesState(t *testing.T) {
	appt := sampleAppointment(3)
	svc := &stubBookings{
		get: func(_ context.Context, id uuid.UUID) (*booking.ClassifiedAppointment, error) {
			assert.Equal(t, appt.ID, id)
			return &booking.ClassifiedAppointment{Appointment: *appt, State: booking.StateMissed}, nil
		},
	}
	h := newTestRouter(svc, nil)

	rec := doRequest(t, h, http.MethodGet, "/appointments/"+appt.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "missed", resp.State)
}

func TestGetAppointmentBadID(t *testing.T) {
	h := newTestRouter(&stubBookings{}, nil)

	rec := doRequest(t, h, http.MethodGet, "/appointments/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelAppointment(t *testing.T) {
	appt := sampleAppointment(1)
	svc := &stubBookings{
		cancel: func(_ context.Context, id, patientID uuid.UUID) error {
			assert.Equal(t, appt.ID, id)
			assert.Equal(t, appt.PatientID, patientID)
			return nil
		},
	}
	h := newTestRouter(svc, nil)

	rec := doRequest(t, h, http.MethodDelete,
		"/appointments/"+appt.ID.String()+"?patient_id="+appt.PatientID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, h, http.MethodDelete, "/appointments/"+appt.ID.String(), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelAppointmentNotOwner(t *testing.T) {
	svc := &stubBookings{
		cancel: func(context.Context, uuid.UUID, uuid.UUID) error { return booking.ErrNotOwner },
	}
	h := newTestRouter(svc, nil)

	rec := doRequest(t, h, http.MethodDelete,
		"/appointments/"+uuid.NewString()+"?patient_id="+uuid.NewString(), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStatusTransitionEndpoints(t *testing.T) {
	appt := sampleAppointment(1)
	appt.Status = booking.StatusConfirmed
	svc := &stubBookings{
		confirm: func(context.Context, uuid.UUID) (*booking.Appointment, error) { return appt, nil },
		complete: func(context.Context, uuid.UUID) (*booking.Appointment, error) {
			return nil, booking.ErrInvalidStatusTransition
		},
	}
	h := newTestRouter(svc, nil)

	rec := doRequest(t, h, http.MethodPost, "/appointments/"+appt.ID.String()+"/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "confirmed", resp.Status)

	rec = doRequest(t, h, http.MethodPost, "/appointments/"+appt.ID.String()+"/complete", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteIfMissedEndpoint(t *testing.T) {
	svc := &stubBookings{
		deleteIfMissed: func(context.Context, uuid.UUID) error { return booking.ErrNotMissed },
	}
	h := newTestRouter(svc, nil)

	rec := doRequest(t, h, http.MethodDelete, "/appointments/"+uuid.NewString()+"/if-missed", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCleanupMissedEndpoint(t *testing.T) {
	svc := &stubBookings{
		cleanupMissed: func(context.Context) (*booking.CleanupResult, error) {
			return &booking.CleanupResult{Examined: 12, Deleted: 4, Failed: 1}, nil
		},
	}
	h := newTestRouter(svc, nil)

	rec := doRequest(t, h, http.MethodPost, "/appointments/cleanup-missed", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CleanupResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, CleanupResponse{Examined: 12, Deleted: 4, Failed: 1}, resp)
}

func TestCleanupMissedSweepInProgress(t *testing.T) {
	svc := &stubBookings{
		cleanupMissed: func(context.Context) (*booking.CleanupResult, error) {
			return nil, booking.ErrSweepInProgress
		},
	}
	h := newTestRouter(svc, nil)

	rec := doRequest(t, h, http.MethodPost, "/appointments/cleanup-missed", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDoctorTodayView(t *testing.T) {
	doctorID := uuid.New()
	appt := sampleAppointment(1)
	svc := &stubBookings{
		doctorDay: func(_ context.Context, id uuid.UUID, date time.Time) (*booking.DayView, error) {
			assert.Equal(t, doctorID, id)
			return &booking.DayView{
				Date:          booking.DateOnly(date),
				Total:         1,
				UpcomingCount: 1,
				Appointments: []booking.ClassifiedAppointment{
					{Appointment: *appt, State: booking.StateUpcoming},
				},
			}, nil
		},
	}
	h := newTestRouter(svc, nil)

	rec := doRequest(t, h, http.MethodGet, "/doctors/"+doctorID.String()+"/appointments/today", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DayViewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Appointments, 1)
	assert.Equal(t, "upcoming", resp.Appointments[0].State)
}

func TestPatientAppointmentsEndpoint(t *testing.T) {
	patientID := uuid.New()
	svc := &stubBookings{
		patientAppts: func(_ context.Context, id uuid.UUID) (*booking.PatientView, error) {
			assert.Equal(t, patientID, id)
			return &booking.PatientView{
				Upcoming: []booking.Appointment{*sampleAppointment(2)},
				Past:     []booking.Appointment{*sampleAppointment(1)},
			}, nil
		},
	}
	h := newTestRouter(svc, nil)

	rec := doRequest(t, h, http.MethodGet, "/patients/"+patientID.String()+"/appointments", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PatientAppointmentsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Upcoming, 1)
	assert.Len(t, resp.Past, 1)
}

func TestUpsertScheduleWindow(t *testing.T) {
	doctorID := uuid.New()
	svc := &stubSchedules{
		upsert: func(_ context.Context, id uuid.UUID, p schedule.WindowParams) (*schedule.Window, error) {
			assert.Equal(t, doctorID, id)
			assert.Equal(t, time.Monday, p.DayOfWeek)
			return &schedule.Window{
				DoctorID:  id,
				DayOfWeek: p.DayOfWeek,
				Start:     p.Start,
				End:       p.End,
				IsActive:  true,
			}, nil
		},
	}
	h := newTestRouter(nil, svc)

	rec := doRequest(t, h, http.MethodPut, "/doctors/"+doctorID.String()+"/schedule/1", WindowRequest{
		StartTime: "09:00",
		EndTime:   "12:00",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp WindowResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.DayOfWeek)
	assert.Equal(t, "09:00", resp.StartTime)
	assert.True(t, resp.IsActive)
}

func TestUpsertScheduleWindowValidation(t *testing.T) {
	svc := &stubSchedules{
		upsert: func(context.Context, uuid.UUID, schedule.WindowParams) (*schedule.Window, error) {
			return nil, schedule.ErrInvalidWindow
		},
	}
	h := newTestRouter(nil, svc)
	doctorID := uuid.NewString()

	// day outside 0..6 is rejected before the service is called
	rec := doRequest(t, h, http.MethodPut, "/doctors/"+doctorID+"/schedule/7", WindowRequest{
		StartTime: "09:00", EndTime: "12:00",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, h, http.MethodPut, "/doctors/"+doctorID+"/schedule/1", WindowRequest{
		StartTime: "not-a-time", EndTime: "12:00",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, h, http.MethodPut, "/doctors/"+doctorID+"/schedule/1", WindowRequest{
		StartTime: "12:00", EndTime: "09:00",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpsertScheduleWindowConflict(t *testing.T) {
	svc := &stubSchedules{
		upsert: func(context.Context, uuid.UUID, schedule.WindowParams) (*schedule.Window, error) {
			return nil, schedule.ErrScheduleConflict
		},
	}
	h := newTestRouter(nil, svc)

	rec := doRequest(t, h, http.MethodPut, "/doctors/"+uuid.NewString()+"/schedule/1", WindowRequest{
		StartTime: "09:00", EndTime: "12:00",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetScheduleWindowNotFound(t *testing.T) {
	svc := &stubSchedules{
		get: func(context.Context, uuid.UUID, time.Weekday) (*schedule.Window, error) {
			return nil, schedule.ErrWindowNotFound
		},
	}
	h := newTestRouter(nil, svc)

	rec := doRequest(t, h, http.MethodGet, "/doctors/"+uuid.NewString()+"/schedule/2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeactivateScheduleWindow(t *testing.T) {
	svc := &stubSchedules{
		deactivate: func(context.Context, uuid.UUID, time.Weekday) error { return nil },
	}
	h := newTestRouter(nil, svc)

	rec := doRequest(t, h, http.MethodDelete, "/doctors/"+uuid.NewString()+"/schedule/3", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
