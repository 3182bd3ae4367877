package schedule

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// storedEvent is the on-disk record. Pointers tell absent fields from empty ones.
type storedEvent struct {
	Name     *string `json:"name"`
	Date     *string `json:"date"`
	Time     *string `json:"time"`
	Category *string `json:"category"`
	Duration int     `json:"duration,omitempty"`
}

// FileRepository keeps the collection as a JSON array in a single file.
type FileRepository struct {
	path string
}

func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

func (r *FileRepository) Path() string {
	return r.path
}

func (r *FileRepository) Load(ctx context.Context) ([]Event, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Infof("events file %s not found, starting with an empty schedule", r.path)
			return []Event{}, nil
		}
		return nil, fmt.Errorf("%w: could not read %s: %v", ErrCorruptState, r.path, err)
	}

	var stored []storedEvent
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("%w: could not decode %s: %v", ErrCorruptState, r.path, err)
	}

	events := make([]Event, 0, len(stored))
	for i, s := range stored {
		if s.Name == nil || s.Date == nil || s.Time == nil || s.Category == nil {
			return nil, fmt.Errorf("%w: record %d in %s is missing a required field", ErrCorruptState, i+1, r.path)
		}
		events = append(events, Event{
			Name:            *s.Name,
			Date:            *s.Date,
			Time:            *s.Time,
			DurationMinutes: s.Duration,
			Category:        *s.Category,
		})
	}
	return events, nil
}

// Save writes the collection to a temporary file and renames it over the target.
func (r *FileRepository) Save(ctx context.Context, events []Event) error {
	data, err := encodeEvents(events)
	if err != nil {
		return fmt.Errorf("could not encode events: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("could not create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("could not create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("could not write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("could not sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("could not close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("could not replace %s: %w", r.path, err)
	}
	return nil
}

func encodeEvents(events []Event) ([]byte, error) {
	stored := make([]storedEvent, 0, len(events))
	for _, e := range events {
		stored = append(stored, storedEvent{
			Name:     &e.Name,
			Date:     &e.Date,
			Time:     &e.Time,
			Category: &e.Category,
			Duration: e.DurationMinutes,
		})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(stored); err != nil {
		return nil, err
	}
	// legacy files end without a newline
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
