package schedule

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// ConflictPolicy decides how long an already scheduled event is assumed to last.
type ConflictPolicy string

const (
	// PolicyFixed treats every existing event as exactly DefaultDurationMinutes long.
	PolicyFixed ConflictPolicy = "fixed"
	// PolicyStored uses the existing event's own duration.
	PolicyStored ConflictPolicy = "stored"
)

func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch ConflictPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyFixed, "":
		return PolicyFixed, nil
	case PolicyStored:
		return PolicyStored, nil
	default:
		return "", fmt.Errorf("unknown conflict policy %q (expected %q or %q)", s, PolicyFixed, PolicyStored)
	}
}

type Detector struct {
	policy ConflictPolicy
}

func NewDetector(policy ConflictPolicy) Detector {
	if policy == "" {
		policy = PolicyFixed
	}
	return Detector{policy: policy}
}

// HasConflict reports whether [start, start+duration) of the candidate overlaps any existing
// event on the same date, and the name of the first such event in store order.
func (d Detector) HasConflict(existing []Event, date, clock string, durationMinutes int) (bool, string) {
	conflicting, ok := d.FindConflict(existing, date, clock, durationMinutes)
	if !ok {
		return false, ""
	}
	return true, conflicting.Name
}

func (d Detector) FindConflict(existing []Event, date, clock string, durationMinutes int) (Event, bool) {
	candidate := Event{Date: date, Time: clock, DurationMinutes: durationMinutes}
	start, err := candidate.Start()
	if err != nil {
		log.Debugf("skipping conflict check for unparseable candidate %s %s: %v", date, clock, err)
		return Event{}, false
	}
	end := start.Add(candidate.Duration())

	for _, e := range existing {
		if e.Date != date {
			continue
		}
		existingStart, err := e.Start()
		if err != nil {
			continue
		}
		existingEnd := existingStart.Add(d.existingDuration(e))
		if start.Before(existingEnd) && end.After(existingStart) {
			return e, true
		}
	}
	return Event{}, false
}

func (d Detector) existingDuration(e Event) time.Duration {
	if d.policy == PolicyStored {
		return e.Duration()
	}
	return DefaultDurationMinutes * time.Minute
}
