package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	// DefaultDurationMinutes applies whenever an event does not carry its own duration.
	DefaultDurationMinutes = 60
)

var validate = validator.New()

type Event struct {
	UID             uuid.UUID
	Name            string `validate:"required"`
	Date            string `validate:"required,datetime=2006-01-02"`
	Time            string `validate:"required,datetime=15:04"`
	DurationMinutes int    `validate:"min=0"`
	Category        string
}

// EventUpdate carries the fields to replace during an edit. Nil fields are kept.
type EventUpdate struct {
	Name            *string
	Date            *string
	Time            *string
	DurationMinutes *int
	Category        *string
}

// Duration returns the effective duration, falling back to DefaultDurationMinutes when unset.
func (e Event) Duration() time.Duration {
	if e.DurationMinutes <= 0 {
		return DefaultDurationMinutes * time.Minute
	}
	return time.Duration(e.DurationMinutes) * time.Minute
}

// Start combines date and time into a wall-clock instant. Wall clock math is done in UTC
// so DST transitions of the local zone never shift intervals.
func (e Event) Start() (time.Time, error) {
	return parseWallClock(e.Date, e.Time)
}

func (e Event) End() (time.Time, error) {
	start, err := e.Start()
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(e.Duration()), nil
}

// Validate checks that the event can enter the store.
func (e Event) Validate() error {
	e.Name = strings.TrimSpace(e.Name)
	if err := validate.Struct(e); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			fe := validationErrors[0]
			return fmt.Errorf("%w: %s", ErrInvalidFormat, describeFieldError(fe))
		}
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if _, err := e.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return nil
}

// normalized returns a validated copy with trimmed name and a two-digit hour.
func (e Event) normalized() (Event, error) {
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	e.Name = strings.TrimSpace(e.Name)
	e.Category = strings.TrimSpace(e.Category)
	t, _ := time.Parse(TimeLayout, e.Time)
	e.Time = t.Format(TimeLayout)
	return e, nil
}

func (e Event) apply(update EventUpdate) Event {
	if update.Name != nil {
		e.Name = *update.Name
	}
	if update.Date != nil {
		e.Date = *update.Date
	}
	if update.Time != nil {
		e.Time = *update.Time
	}
	if update.DurationMinutes != nil {
		e.DurationMinutes = *update.DurationMinutes
	}
	if update.Category != nil {
		e.Category = *update.Category
	}
	return e
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", strings.ToLower(fe.Field()))
	case "datetime":
		return fmt.Sprintf("%s %q does not match %s", strings.ToLower(fe.Field()), fe.Value(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must not be negative", strings.ToLower(fe.Field()))
	default:
		return fmt.Sprintf("%s failed %s validation", strings.ToLower(fe.Field()), fe.Tag())
	}
}

func parseWallClock(date, clock string) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+clock, time.UTC)
}

// ParseDate parses an ISO calendar date into midnight UTC.
func ParseDate(date string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(date), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q does not match %s", ErrInvalidFormat, date, DateLayout)
	}
	return d, nil
}
