package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetector_HasConflict(t *testing.T) {
	existing := []Event{
		{Name: "Math Lecture", Date: "2025-03-10", Time: "09:00", Category: "lecture"},
		{Name: "Lunch", Date: "2025-03-10", Time: "12:00", DurationMinutes: 30},
		{Name: "Other day", Date: "2025-03-11", Time: "09:00"},
	}

	testCases := []struct {
		name      string
		date      string
		time      string
		duration  int
		conflict  bool
		conflicts string
	}{
		{name: "Starts inside existing event", date: "2025-03-10", time: "09:30", duration: 60, conflict: true, conflicts: "Math Lecture"},
		{name: "Ends inside existing event", date: "2025-03-10", time: "08:30", duration: 60, conflict: true, conflicts: "Math Lecture"},
		{name: "Contains existing event", date: "2025-03-10", time: "08:00", duration: 180, conflict: true, conflicts: "Math Lecture"},
		{name: "Inside existing event", date: "2025-03-10", time: "09:15", duration: 15, conflict: true, conflicts: "Math Lecture"},
		{name: "Ends when existing starts", date: "2025-03-10", time: "08:00", duration: 60},
		{name: "Starts when existing ends", date: "2025-03-10", time: "10:00", duration: 60},
		{name: "Same time on another date", date: "2025-03-12", time: "09:00", duration: 60},
		{name: "Default duration is one hour", date: "2025-03-10", time: "08:01", duration: 0, conflict: true, conflicts: "Math Lecture"},
		{name: "Existing events last one hour regardless of their duration", date: "2025-03-10", time: "12:45", duration: 15, conflict: true, conflicts: "Lunch"},
		{name: "Unparseable candidate never conflicts", date: "2025-03-10", time: "nine", duration: 60},
	}

	detector := NewDetector(PolicyFixed)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conflict, name := detector.HasConflict(existing, tc.date, tc.time, tc.duration)
			assert.Equal(t, tc.conflict, conflict)
			assert.Equal(t, tc.conflicts, name)
		})
	}
}

func TestDetector_FirstConflictInStoreOrder(t *testing.T) {
	existing := []Event{
		{Name: "Later but stored first", Date: "2025-03-10", Time: "10:00"},
		{Name: "Earlier but stored second", Date: "2025-03-10", Time: "09:00"},
	}

	conflict, name := NewDetector(PolicyFixed).HasConflict(existing, "2025-03-10", "09:30", 60)

	assert.True(t, conflict)
	assert.Equal(t, "Later but stored first", name)
}

func TestDetector_StoredPolicyUsesOwnDuration(t *testing.T) {
	existing := []Event{
		{Name: "Lunch", Date: "2025-03-10", Time: "12:00", DurationMinutes: 30},
		{Name: "Workshop", Date: "2025-03-10", Time: "14:00", DurationMinutes: 180},
	}
	detector := NewDetector(PolicyStored)

	conflict, _ := detector.HasConflict(existing, "2025-03-10", "12:30", 30)
	assert.False(t, conflict, "lunch is over at 12:30")

	conflict, name := detector.HasConflict(existing, "2025-03-10", "16:00", 30)
	assert.True(t, conflict)
	assert.Equal(t, "Workshop", name)
}

func TestParseConflictPolicy(t *testing.T) {
	policy, err := ParseConflictPolicy("")
	assert.NoError(t, err)
	assert.Equal(t, PolicyFixed, policy)

	policy, err = ParseConflictPolicy(" Stored ")
	assert.NoError(t, err)
	assert.Equal(t, PolicyStored, policy)

	_, err = ParseConflictPolicy("sometimes")
	assert.Error(t, err)
}
