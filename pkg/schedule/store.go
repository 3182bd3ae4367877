package schedule

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/klokku/agenda/internal/event_bus"
	log "github.com/sirupsen/logrus"
)

// Store owns the in-memory event collection. Mutations are serialised and persisted in full
// after each change; a failed save rolls the change back.
type Store struct {
	mu       sync.RWMutex
	events   []Event
	repo     Repository
	detector Detector
	eventBus *event_bus.EventBus
	// dirty is set by every committed mutation since Open.
	dirty bool
}

func NewStore(repo Repository, detector Detector, eventBus *event_bus.EventBus) *Store {
	return &Store{
		repo:     repo,
		detector: detector,
		eventBus: eventBus,
	}
}

// Open loads the collection once. Corrupt or invalid stored data leaves the store empty.
func (s *Store) Open(ctx context.Context) error {
	loaded, err := s.repo.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrCorruptState) {
			log.Warnf("stored events could not be read, starting with an empty schedule: %v", err)
			loaded = nil
		} else {
			return fmt.Errorf("failed to load events: %w", err)
		}
	}

	events := make([]Event, 0, len(loaded))
	for i, e := range loaded {
		if err := e.Validate(); err != nil {
			log.Warnf("stored event %d (%q) is invalid, starting with an empty schedule: %v", i+1, e.Name, err)
			events = events[:0]
			break
		}
		e.UID = uuid.New()
		events = append(events, e)
	}

	s.mu.Lock()
	s.events = events
	s.dirty = false
	s.mu.Unlock()
	log.Debugf("loaded %d events", len(events))
	return nil
}

// Close flushes the collection one last time. Nothing is written when no mutation was
// committed since Open, so data that failed to load is left untouched.
func (s *Store) Close(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.dirty {
		return nil
	}
	if err := s.repo.Save(ctx, s.events); err != nil {
		return &PersistenceError{Op: "close", Err: err}
	}
	return nil
}

// All returns a copy of the collection in insertion order.
func (s *Store) All() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events)
}

// At returns the event at the 1-based position of the sorted view.
func (s *Store) At(position int) (Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, err := s.indexAtPosition(position)
	if err != nil {
		return Event{}, err
	}
	return s.events[idx], nil
}

func (s *Store) Get(uid uuid.UUID) (Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(uid)
	if idx < 0 {
		return Event{}, ErrEventNotFound
	}
	return s.events[idx], nil
}

// Add validates the candidate, rejects it on conflict unless allowOverride is set, and appends it.
func (s *Store) Add(ctx context.Context, candidate Event, allowOverride bool) (Event, error) {
	event, err := candidate.normalized()
	if err != nil {
		return Event{}, err
	}

	s.mu.Lock()
	conflict, found := s.detector.FindConflict(s.events, event.Date, event.Time, event.DurationMinutes)
	if found && !allowOverride {
		s.mu.Unlock()
		log.Debugf("rejecting %q: conflicts with %q", event.Name, conflict.Name)
		return Event{}, &ConflictError{Name: conflict.Name}
	}

	event.UID = uuid.New()
	previous := s.events
	s.events = append(slices.Clone(previous), event)
	if err := s.repo.Save(ctx, s.events); err != nil {
		s.events = previous
		s.mu.Unlock()
		log.Errorf("failed to save events after adding %q: %v", event.Name, err)
		return Event{}, &PersistenceError{Op: "add", Err: err}
	}
	s.dirty = true
	s.mu.Unlock()

	s.publish(ctx, event_bus.TopicEventAdded, event, found)
	return event, nil
}

// Remove deletes the event at the 1-based position of the sorted view.
func (s *Store) Remove(ctx context.Context, position int) (Event, error) {
	s.mu.Lock()
	idx, err := s.indexAtPosition(position)
	if err != nil {
		s.mu.Unlock()
		return Event{}, err
	}
	return s.removeLocked(ctx, idx)
}

func (s *Store) RemoveByUID(ctx context.Context, uid uuid.UUID) (Event, error) {
	s.mu.Lock()
	idx := s.indexOf(uid)
	if idx < 0 {
		s.mu.Unlock()
		return Event{}, ErrEventNotFound
	}
	return s.removeLocked(ctx, idx)
}

// removeLocked expects s.mu to be held and releases it.
func (s *Store) removeLocked(ctx context.Context, idx int) (Event, error) {
	removed := s.events[idx]
	previous := s.events
	s.events = slices.Delete(slices.Clone(previous), idx, idx+1)
	if err := s.repo.Save(ctx, s.events); err != nil {
		s.events = previous
		s.mu.Unlock()
		log.Errorf("failed to save events after removing %q: %v", removed.Name, err)
		return Event{}, &PersistenceError{Op: "remove", Err: err}
	}
	s.dirty = true
	s.mu.Unlock()

	s.publish(ctx, event_bus.TopicEventRemoved, removed, false)
	return removed, nil
}

// Edit replaces the event at the 1-based position of the sorted view. The result is validated
// and checked for conflicts against every other event.
func (s *Store) Edit(ctx context.Context, position int, update EventUpdate, allowOverride bool) (Event, error) {
	s.mu.Lock()
	idx, err := s.indexAtPosition(position)
	if err != nil {
		s.mu.Unlock()
		return Event{}, err
	}
	return s.editLocked(ctx, idx, update, allowOverride)
}

func (s *Store) EditByUID(ctx context.Context, uid uuid.UUID, update EventUpdate, allowOverride bool) (Event, error) {
	s.mu.Lock()
	idx := s.indexOf(uid)
	if idx < 0 {
		s.mu.Unlock()
		return Event{}, ErrEventNotFound
	}
	return s.editLocked(ctx, idx, update, allowOverride)
}

// editLocked expects s.mu to be held and releases it.
func (s *Store) editLocked(ctx context.Context, idx int, update EventUpdate, allowOverride bool) (Event, error) {
	current := s.events[idx]
	edited, err := current.apply(update).normalized()
	if err != nil {
		s.mu.Unlock()
		return Event{}, err
	}
	edited.UID = current.UID

	others := slices.Delete(slices.Clone(s.events), idx, idx+1)
	conflict, found := s.detector.FindConflict(others, edited.Date, edited.Time, edited.DurationMinutes)
	if found && !allowOverride {
		s.mu.Unlock()
		return Event{}, &ConflictError{Name: conflict.Name}
	}

	previous := s.events
	s.events = slices.Clone(previous)
	s.events[idx] = edited
	if err := s.repo.Save(ctx, s.events); err != nil {
		s.events = previous
		s.mu.Unlock()
		log.Errorf("failed to save events after editing %q: %v", current.Name, err)
		return Event{}, &PersistenceError{Op: "edit", Err: err}
	}
	s.dirty = true
	s.mu.Unlock()

	s.publish(ctx, event_bus.TopicEventEdited, edited, found)
	return edited, nil
}

// indexAtPosition maps a position of the sorted view to an index of the insertion order.
func (s *Store) indexAtPosition(position int) (int, error) {
	if position < 1 || position > len(s.events) {
		return -1, fmt.Errorf("%w: %d is not between 1 and %d", ErrIndexOutOfRange, position, len(s.events))
	}
	target := Sorted(s.events)[position-1]
	return s.indexOf(target.UID), nil
}

func (s *Store) indexOf(uid uuid.UUID) int {
	return slices.IndexFunc(s.events, func(e Event) bool { return e.UID == uid })
}

// publish runs after the lock is released so subscribers may read the store.
func (s *Store) publish(ctx context.Context, topic event_bus.Topic, e Event, overridden bool) {
	if s.eventBus == nil {
		return
	}
	// The mutation is already durable; a failing subscriber is logged, not reported to the caller.
	err := s.eventBus.Publish(event_bus.NewMessage(ctx, topic, event_bus.ScheduleChange{
		UID:             e.UID.String(),
		Name:            e.Name,
		Date:            e.Date,
		Time:            e.Time,
		DurationMinutes: e.DurationMinutes,
		Category:        e.Category,
		Overridden:      overridden,
	}))
	if err != nil {
		log.Errorf("failed to publish %s: %v", topic, err)
	}
}
