package schedule

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/klokku/agenda/internal/utils"
)

// DefaultWeekDays is the span of the "next days" view.
const DefaultWeekDays = 7

// Snapshotter provides an internally consistent copy of the stored events.
type Snapshotter interface {
	All() []Event
}

// Query produces sorted, filtered views of the store. It never mutates it.
type Query struct {
	source   Snapshotter
	clock    utils.Clock
	weekDays int
}

func NewQuery(source Snapshotter, clock utils.Clock) *Query {
	return &Query{source: source, clock: clock, weekDays: DefaultWeekDays}
}

// WithWeekDays overrides how many days past today Week covers.
func (q *Query) WithWeekDays(days int) *Query {
	if days >= 0 {
		q.weekDays = days
	}
	return q
}

// SortedAll returns every event ordered by (date, time); equal keys keep insertion order.
func (q *Query) SortedAll() []Event {
	return Sorted(q.source.All())
}

func (q *Query) Today() []Event {
	today := utils.Today(q.clock)
	return q.filter(func(e Event) bool { return e.Date == today })
}

// NextDays returns events dated from today through today+n inclusive.
func (q *Query) NextDays(n int) ([]Event, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: number of days must not be negative, got %d", ErrInvalidFormat, n)
	}
	today, err := ParseDate(utils.Today(q.clock))
	if err != nil {
		return nil, err
	}
	return q.between(today, today.AddDate(0, 0, n)), nil
}

func (q *Query) Week() []Event {
	events, _ := q.NextDays(q.weekDays)
	return events
}

// ByCategory matches the label case-insensitively, ignoring surrounding whitespace.
func (q *Query) ByCategory(label string) []Event {
	label = strings.TrimSpace(label)
	return q.filter(func(e Event) bool { return strings.EqualFold(strings.TrimSpace(e.Category), label) })
}

// ByDateRange returns events dated within [start, end], both inclusive.
func (q *Query) ByDateRange(start, end string) ([]Event, error) {
	from, err := ParseDate(start)
	if err != nil {
		return nil, err
	}
	to, err := ParseDate(end)
	if err != nil {
		return nil, err
	}
	if from.After(to) {
		return nil, fmt.Errorf("%w: range start %s is after end %s", ErrInvalidFormat, start, end)
	}
	return q.between(from, to), nil
}

func (q *Query) between(from, to time.Time) []Event {
	return q.filter(func(e Event) bool {
		d, err := ParseDate(e.Date)
		if err != nil {
			return false
		}
		return !d.Before(from) && !d.After(to)
	})
}

func (q *Query) filter(keep func(Event) bool) []Event {
	all := q.source.All()
	matched := make([]Event, 0, len(all))
	for _, e := range all {
		if keep(e) {
			matched = append(matched, e)
		}
	}
	return Sorted(matched)
}

// Sorted returns a stably sorted copy of events ordered by (date, time).
func Sorted(events []Event) []Event {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b Event) int {
		return cmp.Or(
			strings.Compare(a.Date, b.Date),
			strings.Compare(sortableTime(a.Time), sortableTime(b.Time)),
		)
	})
	return sorted
}

// sortableTime pads single-digit hours of records written by older versions.
func sortableTime(clock string) string {
	t, err := time.Parse(TimeLayout, clock)
	if err != nil {
		return clock
	}
	return t.Format(TimeLayout)
}
