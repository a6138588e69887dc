package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shs-health/booking-engine/internal/booking"
	"github.com/shs-health/booking-engine/internal/serial"
)

// BookingService is the slice of the booking orchestrator the handlers use.
type BookingService interface {
	Book(ctx context.Context, req booking.BookRequest) (*booking.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (*booking.ClassifiedAppointment, error)
	Cancel(ctx context.Context, id, patientID uuid.UUID) error
	Confirm(ctx context.Context, id uuid.UUID) (*booking.Appointment, error)
	Complete(ctx context.Context, id uuid.UUID) (*booking.Appointment, error)
	DoctorDay(ctx context.Context, doctorID uuid.UUID, date time.Time) (*booking.DayView, error)
	DoctorUpcoming(ctx context.Context, doctorID uuid.UUID) ([]booking.Appointment, error)
	PatientAppointments(ctx context.Context, patientID uuid.UUID) (*booking.PatientView, error)
	DeleteIfMissed(ctx context.Context, id uuid.UUID) error
	CleanupMissed(ctx context.Context) (*booking.CleanupResult, error)
}

func bookAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		date, err := time.ParseInLocation("2006-01-02", req.AppointmentDate, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "appointment_date must be YYYY-MM-DD")
			return
		}

		appt, err := svc.Book(r.Context(), booking.BookRequest{
			DoctorID:  doctorID,
			PatientID: patientID,
			Date:      date,
			Notes:     req.PatientNotes,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt, ""))
	}
}

func getAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		appt, err := svc.Get(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(&appt.Appointment, appt.State))
	}
}

func cancelAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		patientID, err := uuid.Parse(r.URL.Query().Get("patient_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id query parameter must be a valid UUID")
			return
		}

		if err := svc.Cancel(r.Context(), id, patientID); err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
	}
}

func confirmAppointmentHandler(svc BookingService) http.HandlerFunc {
	return statusTransitionHandler(func(ctx context.Context, id uuid.UUID) (*booking.Appointment, error) {
		return svc.Confirm(ctx, id)
	})
}

func completeAppointmentHandler(svc BookingService) http.HandlerFunc {
	return statusTransitionHandler(func(ctx context.Context, id uuid.UUID) (*booking.Appointment, error) {
		return svc.Complete(ctx, id)
	})
}

func statusTransitionHandler(transition func(ctx context.Context, id uuid.UUID) (*booking.Appointment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		appt, err := transition(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt, ""))
	}
}

func deleteIfMissedHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		if err := svc.DeleteIfMissed(r.Context(), id); err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	}
}

func cleanupMissedHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.CleanupMissed(r.Context())
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, CleanupResponse{
			Examined: result.Examined,
			Deleted:  result.Deleted,
			Failed:   result.Failed,
		})
	}
}

func doctorTodayHandler(svc BookingService) http.HandlerFunc {
	return doctorDayHandler(svc, 0)
}

func doctorTomorrowHandler(svc BookingService) http.HandlerFunc {
	return doctorDayHandler(svc, 1)
}

func doctorDayHandler(svc BookingService, daysAhead int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		view, err := svc.DoctorDay(r.Context(), doctorID, time.Now().AddDate(0, 0, daysAhead))
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := DayViewResponse{
			Date:          view.Date.Format("2006-01-02"),
			Total:         view.Total,
			UpcomingCount: view.UpcomingCount,
			MissedCount:   view.MissedCount,
			NoTimeCount:   view.NoTimeCount,
			Appointments:  make([]AppointmentResponse, 0, len(view.Appointments)),
		}
		for i := range view.Appointments {
			resp.Appointments = append(resp.Appointments, toAppointmentResponse(&view.Appointments[i].Appointment, view.Appointments[i].State))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func doctorUpcomingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		appts, err := svc.DoctorUpcoming(r.Context(), doctorID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := AppointmentListResponse{
			Total:        len(appts),
			Appointments: make([]AppointmentResponse, 0, len(appts)),
		}
		for i := range appts {
			resp.Appointments = append(resp.Appointments, toAppointmentResponse(&appts[i], ""))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func patientAppointmentsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		view, err := svc.PatientAppointments(r.Context(), patientID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := PatientAppointmentsResponse{
			Upcoming: make([]AppointmentResponse, 0, len(view.Upcoming)),
			Past:     make([]AppointmentResponse, 0, len(view.Past)),
		}
		for i := range view.Upcoming {
			resp.Upcoming = append(resp.Upcoming, toAppointmentResponse(&view.Upcoming[i], ""))
		}
		for i := range view.Past {
			resp.Past = append(resp.Past, toAppointmentResponse(&view.Past[i], ""))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
	case errors.Is(err, booking.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, booking.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrDoctorNotAccepting):
		writeError(w, http.StatusForbidden, "doctor_not_accepting", err.Error())
	case errors.Is(err, booking.ErrDoctorDayClosed):
		writeError(w, http.StatusForbidden, "doctor_day_closed", err.Error())
	case errors.Is(err, booking.ErrNotOwner):
		writeError(w, http.StatusForbidden, "not_owner", err.Error())
	case errors.Is(err, booking.ErrDuplicateBooking):
		writeError(w, http.StatusConflict, "duplicate_booking", err.Error())
	case errors.Is(err, serial.ErrAllocationConflict):
		writeError(w, http.StatusConflict, "allocation_conflict", "could not allocate a serial number, please retry")
	case errors.Is(err, booking.ErrNotMissed):
		writeError(w, http.StatusConflict, "not_missed", err.Error())
	case errors.Is(err, booking.ErrNotCancellable):
		writeError(w, http.StatusConflict, "not_cancellable", err.Error())
	case errors.Is(err, booking.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, booking.ErrSweepInProgress):
		writeError(w, http.StatusConflict, "sweep_in_progress", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
