package schedule

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const icsProductID = "-//klokku//agenda//EN"

// BuildCalendar renders events as VEVENTs in the local zone. Events that cannot be
// placed in time are skipped.
func BuildCalendar(events []Event, stamp time.Time) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)

	for _, e := range Sorted(events) {
		start, err := time.ParseInLocation(DateLayout+" "+TimeLayout, e.Date+" "+e.Time, time.Local)
		if err != nil {
			log.Debugf("not exporting %q: %v", e.Name, err)
			continue
		}
		vevent := cal.AddEvent(eventUID(e))
		vevent.SetDtStampTime(stamp)
		vevent.SetStartAt(start)
		vevent.SetEndAt(start.Add(e.Duration()))
		vevent.SetSummary(e.Name)
		if category := strings.TrimSpace(e.Category); category != "" {
			vevent.SetProperty(ics.ComponentPropertyCategories, category)
		}
	}
	return cal
}

func WriteICS(w io.Writer, events []Event, stamp time.Time) error {
	_, err := io.WriteString(w, BuildCalendar(events, stamp).Serialize())
	return err
}

// WriteICSFile replaces path with an export of events.
func WriteICSFile(path string, events []Event, stamp time.Time) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("could not create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteICS(tmp, events, stamp); err != nil {
		tmp.Close()
		return fmt.Errorf("could not write calendar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func eventUID(e Event) string {
	if e.UID != uuid.Nil {
		return e.UID.String() + "@agenda"
	}
	return fmt.Sprintf("%s-%s-%s@agenda", e.Date, strings.ReplaceAll(e.Time, ":", ""), strings.ReplaceAll(strings.ToLower(e.Name), " ", "-"))
}
