package repository

const (
	// The conflict predicate keeps a terminal Success record from being
	// overwritten by a stale write from a superseded attempt.
	upsertStatusQuery = `INSERT INTO video_status (name, status, message)
					VALUES ($1, $2, $3)
					ON CONFLICT (name) DO UPDATE
					SET status = EXCLUDED.status,
					    message = EXCLUDED.message,
					    updated_at = now()
					WHERE video_status.status <> 'Success'
					RETURNING name, status, message, created_at, updated_at`
	getStatusQuery = `SELECT name, status, message, created_at, updated_at FROM video_status
					WHERE name = $1`
	failInterruptedQuery = `UPDATE video_status
					SET status = 'Failed', message = $1, updated_at = now()
					WHERE status IN ('Pending', 'Processing')`
)
