package event_bus

const (
	TopicEventAdded   Topic = "schedule.event.added"
	TopicEventRemoved Topic = "schedule.event.removed"
	TopicEventEdited  Topic = "schedule.event.edited"
)

// ScheduleChange describes a committed mutation of the event store.
type ScheduleChange struct {
	UID             string
	Name            string
	Date            string
	Time            string
	DurationMinutes int
	Category        string
	// Overridden is set when the event was added or edited despite a conflict.
	Overridden bool
}
