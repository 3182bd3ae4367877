package schedule

import "context"

// Repository loads and saves the whole event collection in insertion order.
// Load returns ErrCorruptState when the stored data cannot be trusted.
type Repository interface {
	Load(ctx context.Context) ([]Event, error)
	Save(ctx context.Context, events []Event) error
}
