package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shs-health/booking-engine/internal/schedule"
)

// ScheduleService is the slice of the schedule registry the handlers use.
type ScheduleService interface {
	ListWindows(ctx context.Context, doctorID uuid.UUID) ([]schedule.Window, error)
	GetWindow(ctx context.Context, doctorID uuid.UUID, day time.Weekday) (*schedule.Window, error)
	UpsertWindow(ctx context.Context, doctorID uuid.UUID, p schedule.WindowParams) (*schedule.Window, error)
	DeactivateWindow(ctx context.Context, doctorID uuid.UUID, day time.Weekday) error
}

func toWindowResponse(w *schedule.Window) WindowResponse {
	return WindowResponse{
		DayOfWeek: int(w.DayOfWeek),
		StartTime: w.Start.String(),
		EndTime:   w.End.String(),
		IsActive:  w.IsActive,
	}
}

func listScheduleHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		windows, err := svc.ListWindows(r.Context(), doctorID)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		resp := make([]WindowResponse, 0, len(windows))
		for i := range windows {
			resp = append(resp, toWindowResponse(&windows[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getScheduleWindowHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, day, ok := parseScheduleParams(w, r)
		if !ok {
			return
		}

		win, err := svc.GetWindow(r.Context(), doctorID, day)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toWindowResponse(win))
	}
}

func upsertScheduleWindowHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, day, ok := parseScheduleParams(w, r)
		if !ok {
			return
		}

		var req WindowRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		start, err := schedule.ParseTimeOfDay(req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_time", err.Error())
			return
		}
		end, err := schedule.ParseTimeOfDay(req.EndTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end_time", err.Error())
			return
		}

		win, err := svc.UpsertWindow(r.Context(), doctorID, schedule.WindowParams{
			DayOfWeek: day,
			Start:     start,
			End:       end,
		})
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toWindowResponse(win))
	}
}

func deactivateScheduleWindowHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, day, ok := parseScheduleParams(w, r)
		if !ok {
			return
		}

		if err := svc.DeactivateWindow(r.Context(), doctorID, day); err != nil {
			handleScheduleError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func parseScheduleParams(w http.ResponseWriter, r *http.Request) (uuid.UUID, time.Weekday, bool) {
	doctorID, ok := parseIDParam(w, r, "id")
	if !ok {
		return uuid.Nil, 0, false
	}

	day, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil || day < 0 || day > 6 {
		writeError(w, http.StatusBadRequest, "invalid_day_of_week", "day must be 0 (Sunday) through 6 (Saturday)")
		return uuid.Nil, 0, false
	}

	return doctorID, time.Weekday(day), true
}

func handleScheduleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrInvalidWindow):
		writeError(w, http.StatusBadRequest, "invalid_window", err.Error())
	case errors.Is(err, schedule.ErrScheduleConflict):
		writeError(w, http.StatusConflict, "schedule_conflict", err.Error())
	case errors.Is(err, schedule.ErrWindowNotFound):
		writeError(w, http.StatusNotFound, "window_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
