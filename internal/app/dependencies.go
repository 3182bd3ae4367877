package app

import (
	"context"
	"fmt"
	"time"

	"github.com/klokku/agenda/internal/config"
	"github.com/klokku/agenda/internal/database"
	"github.com/klokku/agenda/internal/event_bus"
	"github.com/klokku/agenda/internal/utils"
	"github.com/klokku/agenda/pkg/schedule"
	log "github.com/sirupsen/logrus"
)

// Dependencies holds the store, queries and their collaborators.
type Dependencies struct {
	EventBus   *event_bus.EventBus
	Clock      utils.Clock
	Repository schedule.Repository
	Store      *schedule.Store
	Query      *schedule.Query
	Handler    *schedule.Handler

	closers []func()
}

// BuildDependencies opens the configured storage, loads the schedule and wires subscribers.
func BuildDependencies(ctx context.Context, cfg config.Application) (*Dependencies, error) {
	deps := &Dependencies{
		EventBus: event_bus.NewEventBus(),
		Clock:    &utils.SystemClock{},
	}

	repo, err := deps.openRepository(cfg)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Repository = repo

	policy, err := schedule.ParseConflictPolicy(cfg.Schedule.ConflictPolicy)
	if err != nil {
		deps.Close()
		return nil, err
	}

	deps.Store = schedule.NewStore(deps.Repository, schedule.NewDetector(policy), deps.EventBus)
	if err := deps.Store.Open(ctx); err != nil {
		deps.Close()
		return nil, err
	}
	deps.Query = schedule.NewQuery(deps.Store, deps.Clock).WithWeekDays(cfg.Schedule.WeekDays)
	deps.Handler = schedule.NewHandler(deps.Store, deps.Query)

	subscribeAuditLog(deps.EventBus)
	if cfg.Export.ICSPath != "" {
		subscribeICSExport(deps.EventBus, deps.Store, cfg.Export.ICSPath)
	}

	return deps, nil
}

func (d *Dependencies) openRepository(cfg config.Application) (schedule.Repository, error) {
	switch cfg.Storage.Driver {
	case config.DriverFile, "":
		log.Infof("Storing events in %s", cfg.Storage.Path)
		return schedule.NewFileRepository(cfg.Storage.Path), nil
	case config.DriverSQLite:
		db, err := database.OpenSQLite(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, func() { db.Close() })
		if err := database.MigrateSQLite(db); err != nil {
			return nil, err
		}
		log.Infof("Storing events in sqlite database %s", cfg.Storage.Path)
		return schedule.NewSQLiteRepository(db), nil
	case config.DriverPostgres:
		if err := database.Migrate(cfg.Database); err != nil {
			return nil, err
		}
		pool, err := database.Open(cfg.Database)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, pool.Close)
		log.Infof("Storing events in postgres database %s on %s:%d", cfg.Database.Name, cfg.Database.Host, cfg.Database.Port)
		return schedule.NewPostgresRepository(pool), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// Close releases storage connections in reverse order of opening.
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}

var changeTopics = []event_bus.Topic{
	event_bus.TopicEventAdded,
	event_bus.TopicEventRemoved,
	event_bus.TopicEventEdited,
}

func subscribeAuditLog(bus *event_bus.EventBus) {
	for _, topic := range changeTopics {
		event_bus.SubscribeTyped(bus, topic, func(m event_bus.MessageT[event_bus.ScheduleChange]) error {
			log.WithFields(log.Fields{
				"topic":      m.Topic,
				"uid":        m.Payload.UID,
				"date":       m.Payload.Date,
				"time":       m.Payload.Time,
				"category":   m.Payload.Category,
				"overridden": m.Payload.Overridden,
			}).Infof("schedule changed: %s", m.Payload.Name)
			return nil
		})
	}
}

func subscribeICSExport(bus *event_bus.EventBus, store *schedule.Store, path string) {
	for _, topic := range changeTopics {
		bus.Subscribe(topic, func(m event_bus.Message) error {
			if err := schedule.WriteICSFile(path, store.All(), time.Now()); err != nil {
				return fmt.Errorf("failed to export calendar to %s: %w", path, err)
			}
			log.Debugf("calendar exported to %s", path)
			return nil
		})
	}
}
