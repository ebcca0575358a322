package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// Custom request lifecycle statuses.
const (
	CustomRequestPending   = "pending"
	CustomRequestCompleted = "completed"
	CustomRequestRejected  = "rejected"
)

// CustomRequest mirrors a row of the custom_requests table.
type CustomRequest struct {
	ID          pgtype.UUID
	UserID      pgtype.UUID
	Title       string
	Description pgtype.Text
	Occasion    pgtype.Text
	Deadline    pgtype.Date
	Source      pgtype.Text
	Status      string
	CreatedAt   pgtype.Timestamptz
}

// InsertCustomRequestParams describes a new customization request.
type InsertCustomRequestParams struct {
	UserID      pgtype.UUID
	Title       string
	Description pgtype.Text
	Occasion    pgtype.Text
	Deadline    pgtype.Date
	Source      pgtype.Text
}

// InsertCustomRequest records a new pending customization request.
func (q *Queries) InsertCustomRequest(ctx context.Context, arg InsertCustomRequestParams) (CustomRequest, error) {
	const query = `INSERT INTO custom_requests
		(id, user_id, title, description, occasion, deadline, source, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', now())
		RETURNING id, user_id, title, description, occasion, deadline, source, status, created_at`
	var cr CustomRequest
	err := q.db.QueryRow(ctx, query,
		NewUUID(), arg.UserID, arg.Title, arg.Description, arg.Occasion, arg.Deadline, arg.Source,
	).Scan(&cr.ID, &cr.UserID, &cr.Title, &cr.Description, &cr.Occasion, &cr.Deadline,
		&cr.Source, &cr.Status, &cr.CreatedAt)
	return cr, err
}

// ListCustomRequests returns the user's requests newest first.
func (q *Queries) ListCustomRequests(ctx context.Context, userID pgtype.UUID) ([]CustomRequest, error) {
	const query = `SELECT id, user_id, title, description, occasion, deadline, source, status, created_at
		FROM custom_requests WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := q.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CustomRequest
	for rows.Next() {
		var cr CustomRequest
		err := rows.Scan(&cr.ID, &cr.UserID, &cr.Title, &cr.Description, &cr.Occasion,
			&cr.Deadline, &cr.Source, &cr.Status, &cr.CreatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}

// HasCompletedCustomRequest reports whether the user holds at least one
// approved customization request.
func (q *Queries) HasCompletedCustomRequest(ctx context.Context, userID pgtype.UUID) (bool, error) {
	const query = `SELECT EXISTS(
		SELECT 1 FROM custom_requests WHERE user_id = $1 AND status = 'completed')`
	var ok bool
	err := q.db.QueryRow(ctx, query, userID).Scan(&ok)
	return ok, err
}

// UpdateCustomRequestStatus moves a request through its lifecycle.
func (q *Queries) UpdateCustomRequestStatus(ctx context.Context, requestID pgtype.UUID, status string) (int64, error) {
	const query = `UPDATE custom_requests SET status = $2 WHERE id = $1`
	tag, err := q.db.Exec(ctx, query, requestID, status)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
