package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shs-health/booking-engine/internal/booking"
)

type BookAppointmentRequest struct {
	DoctorID        string `json:"doctor_id"`
	PatientID       string `json:"patient_id"`
	AppointmentDate string `json:"appointment_date"` // YYYY-MM-DD, today or tomorrow
	PatientNotes    string `json:"patient_notes,omitempty"`
}

type AppointmentResponse struct {
	ID                uuid.UUID `json:"id"`
	AppointmentNumber string    `json:"appointment_number"`
	DoctorID          uuid.UUID `json:"doctor_id"`
	PatientID         uuid.UUID `json:"patient_id"`
	AppointmentDate   string    `json:"appointment_date"`
	SerialNumber      int       `json:"serial_number"`
	ApproximateTime   *string   `json:"approximate_time"`
	TimeOverflow      bool      `json:"time_overflow"`
	Status            string    `json:"status"`
	State             string    `json:"state,omitempty"`
	PatientNotes      string    `json:"patient_notes,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

func toAppointmentResponse(a *booking.Appointment, state booking.State) AppointmentResponse {
	resp := AppointmentResponse{
		ID:                a.ID,
		AppointmentNumber: a.AppointmentNumber,
		DoctorID:          a.DoctorID,
		PatientID:         a.PatientID,
		AppointmentDate:   a.Date.Format("2006-01-02"),
		SerialNumber:      a.SerialNumber,
		TimeOverflow:      a.TimeOverflow,
		Status:            string(a.Status),
		State:             string(state),
		PatientNotes:      a.PatientNotes,
		CreatedAt:         a.CreatedAt,
	}
	if a.ApproximateTime != nil {
		s := a.ApproximateTime.String()
		resp.ApproximateTime = &s
	}
	return resp
}

type DayViewResponse struct {
	Date          string                `json:"date"`
	Total         int                   `json:"total"`
	UpcomingCount int                   `json:"upcoming_count"`
	MissedCount   int                   `json:"missed_count"`
	NoTimeCount   int                   `json:"no_time_count"`
	Appointments  []AppointmentResponse `json:"appointments"`
}

type AppointmentListResponse struct {
	Total        int                   `json:"total"`
	Appointments []AppointmentResponse `json:"appointments"`
}

type PatientAppointmentsResponse struct {
	Upcoming []AppointmentResponse `json:"upcoming"`
	Past     []AppointmentResponse `json:"past"`
}

type CleanupResponse struct {
	Examined int `json:"examined"`
	Deleted  int `json:"deleted"`
	Failed   int `json:"failed"`
}

type WindowRequest struct {
	StartTime string `json:"start_time"` // HH:MM
	EndTime   string `json:"end_time"`   // HH:MM
}

type WindowResponse struct {
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	IsActive  bool   `json:"is_active"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
