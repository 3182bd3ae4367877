package schedule

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/klokku/agenda/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandlerTest(t *testing.T, initial ...Event) (*Handler, *Store) {
	store, _ := setupStore(t, initial...)
	clock := &utils.MockClock{}
	clock.SetNow(time.Date(2025, 3, 10, 8, 0, 0, 0, time.Local))
	return NewHandler(store, NewQuery(store, clock)), store
}

func postEvent(t *testing.T, handler *Handler, target string, dto EventDTO) *httptest.ResponseRecorder {
	body, err := json.Marshal(dto)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.CreateEvent(w, req)
	return w
}

func decodeEvents(t *testing.T, w *httptest.ResponseRecorder) []EventDTO {
	var dtos []EventDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&dtos))
	return dtos
}

func TestHandler_CreateEvent(t *testing.T) {
	t.Run("should create an event", func(t *testing.T) {
		handler, store := setupHandlerTest(t)

		w := postEvent(t, handler, "/api/events", EventDTO{Name: "Math Lecture", Date: "2025-03-10", Time: "09:00", Category: "lecture"})

		assert.Equal(t, http.StatusCreated, w.Code)
		var created EventDTO
		require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
		assert.NotEmpty(t, created.UID)
		assert.Equal(t, 1, created.Position)
		assert.Equal(t, "Math Lecture", created.Name)
		assert.Len(t, store.All(), 1)
	})

	t.Run("should answer 409 with the conflicting event", func(t *testing.T) {
		handler, store := setupHandlerTest(t, Event{Name: "Math Lecture", Date: "2025-03-10", Time: "09:00", Category: "lecture"})

		w := postEvent(t, handler, "/api/events", EventDTO{Name: "Advisor Meeting", Date: "2025-03-10", Time: "09:30", Category: "meeting"})

		assert.Equal(t, http.StatusConflict, w.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "Math Lecture", body["conflictsWith"])
		assert.Len(t, store.All(), 1)
	})

	t.Run("should add a conflicting event when overridden", func(t *testing.T) {
		handler, store := setupHandlerTest(t, Event{Name: "Math Lecture", Date: "2025-03-10", Time: "09:00", Category: "lecture"})

		w := postEvent(t, handler, "/api/events?override=true", EventDTO{Name: "Advisor Meeting", Date: "2025-03-10", Time: "09:30", Category: "meeting"})

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Len(t, store.All(), 2)
	})

	t.Run("should answer 400 for invalid events", func(t *testing.T) {
		handler, _ := setupHandlerTest(t)

		w := postEvent(t, handler, "/api/events", EventDTO{Name: "Exam", Date: "2025-03-10", Time: "24:00"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should answer 400 for malformed bodies", func(t *testing.T) {
		handler, _ := setupHandlerTest(t)
		req := httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader("{"))
		w := httptest.NewRecorder()

		handler.CreateEvent(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_GetEvents(t *testing.T) {
	handler, _ := setupHandlerTest(t,
		Event{Name: "Next week", Date: "2025-03-20", Time: "10:00", Category: "travel"},
		Event{Name: "Gym", Date: "2025-03-10", Time: "18:00", Category: "sport"},
		Event{Name: "Math Lecture", Date: "2025-03-10", Time: "09:00", Category: "lecture"},
		Event{Name: "Seminar", Date: "2025-03-12", Time: "10:00", Category: "Lecture"},
	)

	testCases := []struct {
		name   string
		target string
		want   []string
	}{
		{name: "All sorted", target: "/api/events", want: []string{"Math Lecture", "Gym", "Seminar", "Next week"}},
		{name: "Today", target: "/api/events?view=today", want: []string{"Math Lecture", "Gym"}},
		{name: "Week", target: "/api/events?view=week", want: []string{"Math Lecture", "Gym", "Seminar"}},
		{name: "Days", target: "/api/events?days=1", want: []string{"Math Lecture", "Gym"}},
		{name: "Category", target: "/api/events?category=lecture", want: []string{"Math Lecture", "Seminar"}},
		{name: "Date range", target: "/api/events?from=2025-03-11&to=2025-03-31", want: []string{"Seminar", "Next week"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.GetEvents(w, httptest.NewRequest(http.MethodGet, tc.target, nil))

			require.Equal(t, http.StatusOK, w.Code)
			dtos := decodeEvents(t, w)
			got := make([]string, 0, len(dtos))
			for _, dto := range dtos {
				got = append(got, dto.Name)
			}
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("positions refer to the full sorted view", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.GetEvents(w, httptest.NewRequest(http.MethodGet, "/api/events?category=lecture", nil))

		dtos := decodeEvents(t, w)
		require.Len(t, dtos, 2)
		assert.Equal(t, 1, dtos[0].Position)
		assert.Equal(t, 3, dtos[1].Position)
	})

	for _, target := range []string{"/api/events?view=month", "/api/events?days=x", "/api/events?days=-1", "/api/events?from=2025-03-12&to=2025-03-01"} {
		t.Run("should reject "+target, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.GetEvents(w, httptest.NewRequest(http.MethodGet, target, nil))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandler_UpdateEvent(t *testing.T) {
	t.Run("should update by uid", func(t *testing.T) {
		handler, store := setupHandlerTest(t, Event{Name: "Gym", Date: "2025-03-10", Time: "18:00", Category: "sport"})
		uid := store.All()[0].UID
		req := httptest.NewRequest(http.MethodPut, "/api/events/"+uid.String(), strings.NewReader(`{"time": "19:30"}`))
		req = mux.SetURLVars(req, map[string]string{"eventUid": uid.String()})
		w := httptest.NewRecorder()

		handler.UpdateEvent(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "19:30", store.All()[0].Time)
		assert.Equal(t, "sport", store.All()[0].Category)
	})

	t.Run("should update by position", func(t *testing.T) {
		handler, store := setupHandlerTest(t,
			Event{Name: "Later", Date: "2025-03-11", Time: "09:00"},
			Event{Name: "Earlier", Date: "2025-03-10", Time: "09:00"},
		)
		req := httptest.NewRequest(http.MethodPut, "/api/events/position/1", strings.NewReader(`{"name": "First"}`))
		req = mux.SetURLVars(req, map[string]string{"position": "1"})
		w := httptest.NewRecorder()

		handler.UpdateEventAtPosition(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "First", store.All()[1].Name)
	})

	t.Run("should answer 404 for unknown events", func(t *testing.T) {
		handler, _ := setupHandlerTest(t)
		req := httptest.NewRequest(http.MethodPut, "/api/events/position/3", strings.NewReader(`{}`))
		req = mux.SetURLVars(req, map[string]string{"position": "3"})
		w := httptest.NewRecorder()

		handler.UpdateEventAtPosition(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("should answer 400 for malformed uids", func(t *testing.T) {
		handler, _ := setupHandlerTest(t)
		req := httptest.NewRequest(http.MethodPut, "/api/events/abc", strings.NewReader(`{}`))
		req = mux.SetURLVars(req, map[string]string{"eventUid": "abc"})
		w := httptest.NewRecorder()

		handler.UpdateEvent(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_DeleteEvent(t *testing.T) {
	t.Run("should delete by uid", func(t *testing.T) {
		handler, store := setupHandlerTest(t, Event{Name: "Gym", Date: "2025-03-10", Time: "18:00"})
		uid := store.All()[0].UID.String()
		req := mux.SetURLVars(httptest.NewRequest(http.MethodDelete, "/api/events/"+uid, nil), map[string]string{"eventUid": uid})
		w := httptest.NewRecorder()

		handler.DeleteEvent(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, store.All())
	})

	t.Run("should delete by position and return the removed event", func(t *testing.T) {
		handler, store := setupHandlerTest(t,
			Event{Name: "Later", Date: "2025-03-11", Time: "09:00"},
			Event{Name: "Earlier", Date: "2025-03-10", Time: "09:00"},
		)
		req := mux.SetURLVars(httptest.NewRequest(http.MethodDelete, "/api/events/position/2", nil), map[string]string{"position": "2"})
		w := httptest.NewRecorder()

		handler.DeleteEventAtPosition(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var removed EventDTO
		require.NoError(t, json.NewDecoder(w.Body).Decode(&removed))
		assert.Equal(t, "Later", removed.Name)
		assert.Equal(t, []string{"Earlier"}, names(store.All()))
	})

	t.Run("should answer 404 for positions out of range", func(t *testing.T) {
		handler, _ := setupHandlerTest(t)
		req := mux.SetURLVars(httptest.NewRequest(http.MethodDelete, "/api/events/position/1", nil), map[string]string{"position": "1"})
		w := httptest.NewRecorder()

		handler.DeleteEventAtPosition(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandler_ExportICS(t *testing.T) {
	handler, _ := setupHandlerTest(t, Event{Name: "Gym", Date: "2025-03-10", Time: "18:00"})
	w := httptest.NewRecorder()

	handler.ExportICS(w, httptest.NewRequest(http.MethodGet, "/api/events/export.ics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/calendar")
	assert.Contains(t, w.Body.String(), "SUMMARY:Gym")
}
