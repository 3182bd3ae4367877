package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Load(ctx context.Context) ([]Event, error) {
	query := `SELECT name, event_date, start_time, duration_minutes, category
			  FROM schedule_event
			  ORDER BY position`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not query schedule events: %w", err)
		log.Error(err)
		return nil, err
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Event, error) {
		var e Event
		err := row.Scan(&e.Name, &e.Date, &e.Time, &e.DurationMinutes, &e.Category)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: could not scan schedule events: %v", ErrCorruptState, err)
	}
	return events, nil
}

// Save replaces the whole table in a single transaction.
func (r *PostgresRepository) Save(ctx context.Context, events []Event) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM schedule_event`)
	for i, e := range events {
		batch.Queue(`INSERT INTO schedule_event (position, name, event_date, start_time, duration_minutes, category)
					 VALUES ($1, $2, $3, $4, $5, $6)`,
			i+1, e.Name, e.Date, e.Time, e.DurationMinutes, e.Category)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("could not store schedule events: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
