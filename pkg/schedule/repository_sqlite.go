package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// SQLiteRepository stores the collection in the schedule_event table; position keeps insertion order.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Load(ctx context.Context) ([]Event, error) {
	query := `SELECT name, event_date, start_time, duration_minutes, category
			  FROM schedule_event
			  ORDER BY position`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not query schedule events: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	events := make([]Event, 0, 10)
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Name, &e.Date, &e.Time, &e.DurationMinutes, &e.Category); err != nil {
			return nil, fmt.Errorf("%w: could not scan row: %v", ErrCorruptState, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not read schedule events: %w", err)
	}
	return events, nil
}

// Save replaces the whole table in a single transaction.
func (r *SQLiteRepository) Save(ctx context.Context, events []Event) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		// The Rollback will be a no-op if the transaction was already committed
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_event`); err != nil {
		return fmt.Errorf("could not clear schedule events: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO schedule_event (
                            position,
                            name,
                            event_date,
                            start_time,
                            duration_minutes,
                            category
						) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("could not prepare query: %w", err)
	}
	defer stmt.Close()

	for i, e := range events {
		if _, err := stmt.ExecContext(ctx, i+1, e.Name, e.Date, e.Time, e.DurationMinutes, e.Category); err != nil {
			return fmt.Errorf("could not store event %q: %w", e.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
