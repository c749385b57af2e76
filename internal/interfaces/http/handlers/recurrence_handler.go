package handlers

import (
	"net/http"
	"strconv"

	"github.com/turtacn/taskboard/internal/application/calendar"
	"github.com/turtacn/taskboard/internal/application/recurrence"
	"github.com/turtacn/taskboard/internal/infrastructure/monitoring/logging"
)

// RecurrenceHandler serves the series lifecycle endpoints.
type RecurrenceHandler struct {
	svc      recurrence.Service
	calendar calendar.Service
	logger   logging.Logger
}

// NewRecurrenceHandler creates a new RecurrenceHandler.  A nil calendar
// service disables the ICS endpoint.
func NewRecurrenceHandler(svc recurrence.Service, cal calendar.Service, logger logging.Logger) *RecurrenceHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &RecurrenceHandler{svc: svc, calendar: cal, logger: logger.Named("http")}
}

// CompleteRecurring handles POST /api/v1/tasks/{taskID}/complete-recurring
func (h *RecurrenceHandler) CompleteRecurring(w http.ResponseWriter, r *http.Request) {
	taskID, err := taskIDParam(r)
	if err != nil {
		writeAppError(w, err)
		return
	}

	var req recurrence.CompleteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	req.TaskID = taskID

	resp, err := h.svc.CompleteRecurring(r.Context(), &req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SkipOccurrence handles POST /api/v1/tasks/{taskID}/skip-occurrence
func (h *RecurrenceHandler) SkipOccurrence(w http.ResponseWriter, r *http.Request) {
	taskID, err := taskIDParam(r)
	if err != nil {
		writeAppError(w, err)
		return
	}

	resp, err := h.svc.SkipOccurrence(r.Context(), taskID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Summary handles GET /api/v1/tasks/{taskID}/recurrence-summary
func (h *RecurrenceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	taskID, err := taskIDParam(r)
	if err != nil {
		writeAppError(w, err)
		return
	}

	resp, err := h.svc.Summary(r.Context(), taskID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Calendar handles GET /api/v1/tasks/{taskID}/calendar.ics
func (h *RecurrenceHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	if h.calendar == nil {
		http.NotFound(w, r)
		return
	}
	taskID, err := taskIDParam(r)
	if err != nil {
		writeAppError(w, err)
		return
	}

	data, err := h.calendar.ExportTask(r.Context(), taskID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="task-`+taskID+`.ics"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Debug("write calendar body", logging.Err(err))
	}
}

// Preview handles POST /api/v1/recurrence/preview
func (h *RecurrenceHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req recurrence.PreviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	resp, err := h.svc.Preview(r.Context(), &req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

//Personal.AI order the ending
