package event_bus

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Topic identifies a kind of message on the bus.
type Topic string

// Message is the envelope delivered to subscribers. Payload is kept as any so one bus can
// carry different payload types.
type Message struct {
	ctx       context.Context
	Topic     Topic
	Timestamp time.Time
	Payload   any
}

func NewMessage(ctx context.Context, topic Topic, payload any) Message {
	return Message{
		ctx:       ctx,
		Topic:     topic,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

// Context returns the context of the publisher, or context.Background when none was given.
func (m Message) Context() context.Context {
	if m.ctx == nil {
		return context.Background()
	}
	return m.ctx
}

// MessageT is the typed envelope handed to SubscribeTyped handlers.
type MessageT[T any] struct {
	ctx       context.Context
	Topic     Topic
	Timestamp time.Time
	Payload   T
}

func (m MessageT[T]) Context() context.Context {
	if m.ctx == nil {
		return context.Background()
	}
	return m.ctx
}

type handler func(Message) error

// EventBus dispatches messages synchronously, in subscription order, on the publisher's goroutine.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[Topic]map[uint64]handler
	nextID      uint64
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[Topic]map[uint64]handler),
	}
}

// Subscribe registers h for topic and returns a function that removes it again.
func (eb *EventBus) Subscribe(topic Topic, h func(Message) error) (unsubscribe func()) {
	eb.mu.Lock()
	eb.nextID++
	id := eb.nextID
	if eb.subscribers[topic] == nil {
		eb.subscribers[topic] = make(map[uint64]handler)
	}
	eb.subscribers[topic][id] = h
	eb.mu.Unlock()

	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		if handlers := eb.subscribers[topic]; handlers != nil {
			delete(handlers, id)
			if len(handlers) == 0 {
				delete(eb.subscribers, topic)
			}
		}
	}
}

// SubscribeTyped registers a handler that only sees payloads of type T. Messages carrying
// another payload type are skipped.
//
//	unsub := event_bus.SubscribeTyped(bus, event_bus.TopicEventAdded,
//	    func(m event_bus.MessageT[event_bus.ScheduleChange]) error {
//	        log.Infof("added %s", m.Payload.Name)
//	        return nil
//	    })
func SubscribeTyped[T any](eb *EventBus, topic Topic, h func(MessageT[T]) error) (unsubscribe func()) {
	return eb.Subscribe(topic, func(m Message) error {
		payload, ok := m.Payload.(T)
		if !ok {
			log.Debugf("EventBus: payload of %s is %T, expected %T", topic, m.Payload, *new(T))
			return nil
		}
		return h(MessageT[T]{
			ctx:       m.ctx,
			Topic:     m.Topic,
			Timestamp: m.Timestamp,
			Payload:   payload,
		})
	})
}

// Publish delivers m to every handler of m.Topic. A failing or panicking handler does not stop
// the others; all failures are returned together. A cancelled context stops delivery.
func (eb *EventBus) Publish(m Message) error {
	if err := m.Context().Err(); err != nil {
		return fmt.Errorf("message %s: context cancelled before publish: %w", m.Topic, err)
	}

	eb.mu.RLock()
	ids := make([]uint64, 0, len(eb.subscribers[m.Topic]))
	handlers := make(map[uint64]handler, len(eb.subscribers[m.Topic]))
	for id, h := range eb.subscribers[m.Topic] {
		ids = append(ids, id)
		handlers[id] = h
	}
	eb.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var errs []error
	for _, id := range ids {
		if err := m.Context().Err(); err != nil {
			errs = append(errs, fmt.Errorf("context cancelled during delivery: %w", err))
			break
		}
		if err := invoke(id, handlers[id], m); err != nil {
			log.Errorf("EventBus: handler %d failed for %s: %v", id, m.Topic, err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("message %s: %d handler(s) failed: %v", m.Topic, len(errs), errs)
	}
	return nil
}

func invoke(id uint64, h handler, m Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %d panicked on %s: %v", id, m.Topic, r)
		}
	}()
	return h(m)
}
