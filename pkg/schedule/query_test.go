package schedule

import (
	"testing"
	"time"

	"github.com/klokku/agenda/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot []Event

func (s snapshot) All() []Event { return s }

func setupQuery(events ...Event) *Query {
	clock := &utils.MockClock{}
	clock.SetNow(time.Date(2025, 3, 10, 15, 4, 0, 0, time.Local))
	return NewQuery(snapshot(events), clock)
}

func TestQuery_SortedAll(t *testing.T) {
	query := setupQuery(
		Event{Name: "Late", Date: "2025-03-11", Time: "08:00"},
		Event{Name: "Evening", Date: "2025-03-10", Time: "18:00"},
		Event{Name: "Padded", Date: "2025-03-10", Time: "9:30"},
		Event{Name: "Tie first", Date: "2025-03-10", Time: "12:00"},
		Event{Name: "Tie second", Date: "2025-03-10", Time: "12:00"},
	)

	sorted := query.SortedAll()

	assert.Equal(t, []string{"Padded", "Tie first", "Tie second", "Evening", "Late"}, names(sorted))
}

func TestQuery_Today(t *testing.T) {
	query := setupQuery(
		Event{Name: "Yesterday", Date: "2025-03-09", Time: "10:00"},
		Event{Name: "Afternoon", Date: "2025-03-10", Time: "16:00"},
		Event{Name: "Morning", Date: "2025-03-10", Time: "08:00"},
		Event{Name: "Tomorrow", Date: "2025-03-11", Time: "10:00"},
	)

	assert.Equal(t, []string{"Morning", "Afternoon"}, names(query.Today()))
}

func TestQuery_NextDays(t *testing.T) {
	query := setupQuery(
		Event{Name: "Past", Date: "2025-03-09", Time: "23:59"},
		Event{Name: "Today", Date: "2025-03-10", Time: "00:00"},
		Event{Name: "Last day", Date: "2025-03-17", Time: "23:00"},
		Event{Name: "Too far", Date: "2025-03-18", Time: "00:00"},
		Event{Name: "Tomorrow", Date: "2025-03-11", Time: "12:00"},
	)

	t.Run("should include today through today+n", func(t *testing.T) {
		events, err := query.NextDays(7)
		require.NoError(t, err)
		assert.Equal(t, []string{"Today", "Tomorrow", "Last day"}, names(events))
	})

	t.Run("should list only today for zero days", func(t *testing.T) {
		events, err := query.NextDays(0)
		require.NoError(t, err)
		assert.Equal(t, []string{"Today"}, names(events))
	})

	t.Run("should reject negative days", func(t *testing.T) {
		_, err := query.NextDays(-1)
		assert.ErrorIs(t, err, ErrInvalidFormat)
	})

	t.Run("should use the configured week", func(t *testing.T) {
		assert.Equal(t, []string{"Today", "Tomorrow", "Last day"}, names(query.Week()))
		assert.Equal(t, []string{"Today", "Tomorrow"}, names(setupQuery(query.source.All()...).WithWeekDays(1).Week()))
	})
}

func TestQuery_NextDaysAcrossMonthEnd(t *testing.T) {
	clock := &utils.MockClock{}
	clock.SetNow(time.Date(2025, 2, 27, 9, 0, 0, 0, time.Local))
	query := NewQuery(snapshot{
		{Name: "March", Date: "2025-03-01", Time: "10:00"},
		{Name: "Out of range", Date: "2025-03-07", Time: "10:00"},
	}, clock)

	events, err := query.NextDays(3)

	require.NoError(t, err)
	assert.Equal(t, []string{"March"}, names(events))
}

func TestQuery_ByCategory(t *testing.T) {
	query := setupQuery(
		Event{Name: "Seminar", Date: "2025-03-12", Time: "10:00", Category: "Lecture"},
		Event{Name: "Gym", Date: "2025-03-10", Time: "18:00", Category: "sport"},
		Event{Name: "Math", Date: "2025-03-10", Time: "09:00", Category: "lecture"},
		Event{Name: "Free", Date: "2025-03-10", Time: "12:00"},
	)

	assert.Equal(t, []string{"Math", "Seminar"}, names(query.ByCategory(" LECTURE ")))
	assert.Equal(t, []string{"Free"}, names(query.ByCategory("")))
	assert.Empty(t, query.ByCategory("travel"))
}

func TestQuery_ByDateRange(t *testing.T) {
	query := setupQuery(
		Event{Name: "Before", Date: "2025-03-01", Time: "10:00"},
		Event{Name: "Start", Date: "2025-03-05", Time: "10:00"},
		Event{Name: "End", Date: "2025-03-07", Time: "10:00"},
		Event{Name: "After", Date: "2025-03-08", Time: "10:00"},
	)

	t.Run("should include both ends", func(t *testing.T) {
		events, err := query.ByDateRange("2025-03-05", "2025-03-07")
		require.NoError(t, err)
		assert.Equal(t, []string{"Start", "End"}, names(events))
	})

	t.Run("should accept a single day", func(t *testing.T) {
		events, err := query.ByDateRange("2025-03-08", "2025-03-08")
		require.NoError(t, err)
		assert.Equal(t, []string{"After"}, names(events))
	})

	t.Run("should reject a reversed range", func(t *testing.T) {
		_, err := query.ByDateRange("2025-03-07", "2025-03-05")
		assert.ErrorIs(t, err, ErrInvalidFormat)
	})

	t.Run("should reject malformed dates", func(t *testing.T) {
		_, err := query.ByDateRange("March 5", "2025-03-07")
		assert.ErrorIs(t, err, ErrInvalidFormat)
	})
}

func TestQuery_DoesNotMutateSource(t *testing.T) {
	events := snapshot{
		{Name: "B", Date: "2025-03-11", Time: "10:00"},
		{Name: "A", Date: "2025-03-10", Time: "10:00"},
	}
	query := setupQuery(events...)

	_ = query.SortedAll()

	assert.Equal(t, []string{"B", "A"}, names(events))
}
