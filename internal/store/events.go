package store

import "context"

// IsEventProcessed checks if a consumer has already handled an event
func (q *Queries) IsEventProcessed(ctx context.Context, eventID, consumer string) (bool, error) {
	var exists bool
	err := q.get(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1 AND consumer = $2)",
		eventID, consumer)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (q *Queries) MarkEventProcessed(ctx context.Context, eventID, consumer, eventType string) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO processed_events (event_id, consumer, event_type) VALUES ($1, $2, $3)
		ON CONFLICT (event_id, consumer) DO NOTHING`,
		eventID, consumer, eventType)
	return mapErr(err)
}
