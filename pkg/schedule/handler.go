package schedule

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/klokku/agenda/internal/rest"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	store *Store
	query *Query
}

type EventDTO struct {
	UID             string `json:"uid,omitempty"`
	Position        int    `json:"position,omitempty"`
	Name            string `json:"name"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
	Category        string `json:"category"`
}

type EventUpdateDTO struct {
	Name            *string `json:"name,omitempty"`
	Date            *string `json:"date,omitempty"`
	Time            *string `json:"time,omitempty"`
	DurationMinutes *int    `json:"durationMinutes,omitempty"`
	Category        *string `json:"category,omitempty"`
}

type conflictResponse struct {
	rest.ErrorResponse
	ConflictsWith string `json:"conflictsWith"`
}

func NewHandler(store *Store, query *Query) *Handler {
	return &Handler{store: store, query: query}
}

// GetEvents serves the sorted views: view=all|today|week, days=N, category=X, from/to=YYYY-MM-DD.
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	var events []Event
	var err error
	switch {
	case params.Has("from") || params.Has("to"):
		events, err = h.query.ByDateRange(params.Get("from"), params.Get("to"))
	case params.Has("category"):
		events = h.query.ByCategory(params.Get("category"))
	case params.Has("days"):
		days, convErr := strconv.Atoi(params.Get("days"))
		if convErr != nil {
			rest.WriteError(w, http.StatusBadRequest, "Invalid days", "'days' must be a whole number")
			return
		}
		events, err = h.query.NextDays(days)
	default:
		switch params.Get("view") {
		case "", "all":
			events = h.query.SortedAll()
		case "today":
			events = h.query.Today()
		case "week":
			events = h.query.Week()
		default:
			rest.WriteError(w, http.StatusBadRequest, "Invalid view", "'view' must be one of all, today, week")
			return
		}
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, toDTOs(events, h.positions()))
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var dto EventDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	created, err := h.store.Add(r.Context(), dtoToEvent(dto), overrideRequested(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	log.Debugf("created event %s (%s)", created.UID, created.Name)
	rest.WriteJSON(w, http.StatusCreated, eventToDTO(created, h.positions()[created.UID]))
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	uid, err := uuid.Parse(mux.Vars(r)["eventUid"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid event uid", err.Error())
		return
	}
	update, ok := decodeUpdate(w, r)
	if !ok {
		return
	}

	edited, err := h.store.EditByUID(r.Context(), uid, update, overrideRequested(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, eventToDTO(edited, h.positions()[edited.UID]))
}

func (h *Handler) UpdateEventAtPosition(w http.ResponseWriter, r *http.Request) {
	position, ok := positionVar(w, r)
	if !ok {
		return
	}
	update, ok := decodeUpdate(w, r)
	if !ok {
		return
	}

	edited, err := h.store.Edit(r.Context(), position, update, overrideRequested(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, eventToDTO(edited, h.positions()[edited.UID]))
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	uid, err := uuid.Parse(mux.Vars(r)["eventUid"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid event uid", err.Error())
		return
	}
	if _, err := h.store.RemoveByUID(r.Context(), uid); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteEventAtPosition(w http.ResponseWriter, r *http.Request) {
	position, ok := positionVar(w, r)
	if !ok {
		return
	}
	removed, err := h.store.Remove(r.Context(), position)
	if err != nil {
		h.writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, eventToDTO(removed, 0))
}

func (h *Handler) ExportICS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="agenda.ics"`)
	if err := WriteICS(w, h.store.All(), time.Now()); err != nil {
		log.Errorf("failed to export calendar: %v", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var conflict *ConflictError
	switch {
	case errors.As(err, &conflict):
		rest.WriteJSON(w, http.StatusConflict, conflictResponse{
			ErrorResponse: rest.ErrorResponse{Error: "Event conflict", Details: err.Error()},
			ConflictsWith: conflict.Name,
		})
	case errors.Is(err, ErrInvalidFormat):
		rest.WriteError(w, http.StatusBadRequest, "Invalid event", err.Error())
	case errors.Is(err, ErrIndexOutOfRange), errors.Is(err, ErrEventNotFound):
		rest.WriteError(w, http.StatusNotFound, "Event not found", err.Error())
	default:
		log.Errorf("request failed: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Internal error", err.Error())
	}
}

// positions maps every event UID to its 1-based position in the full sorted view.
func (h *Handler) positions() map[uuid.UUID]int {
	sorted := h.query.SortedAll()
	positions := make(map[uuid.UUID]int, len(sorted))
	for i, e := range sorted {
		positions[e.UID] = i + 1
	}
	return positions
}

func positionVar(w http.ResponseWriter, r *http.Request) (int, bool) {
	position, err := strconv.Atoi(mux.Vars(r)["position"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid position", "position must be a whole number")
		return 0, false
	}
	return position, true
}

func decodeUpdate(w http.ResponseWriter, r *http.Request) (EventUpdate, bool) {
	var dto EventUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return EventUpdate{}, false
	}
	return EventUpdate{
		Name:            dto.Name,
		Date:            dto.Date,
		Time:            dto.Time,
		DurationMinutes: dto.DurationMinutes,
		Category:        dto.Category,
	}, true
}

func overrideRequested(r *http.Request) bool {
	override, _ := strconv.ParseBool(r.URL.Query().Get("override"))
	return override
}

func toDTOs(events []Event, positions map[uuid.UUID]int) []EventDTO {
	dtos := make([]EventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, eventToDTO(e, positions[e.UID]))
	}
	return dtos
}

func eventToDTO(e Event, position int) EventDTO {
	return EventDTO{
		UID:             e.UID.String(),
		Position:        position,
		Name:            e.Name,
		Date:            e.Date,
		Time:            e.Time,
		DurationMinutes: e.DurationMinutes,
		Category:        e.Category,
	}
}

func dtoToEvent(dto EventDTO) Event {
	return Event{
		Name:            dto.Name,
		Date:            dto.Date,
		Time:            dto.Time,
		DurationMinutes: dto.DurationMinutes,
		Category:        dto.Category,
	}
}
