package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MinutesRow mirrors one row of the meeting_minutes table.
type MinutesRow struct {
	ID          uuid.UUID
	MeetingID   string
	RequestedBy string
	Transcript  string
	Summary     *string
	Status      string // pending, done, failed
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// MeetingRepo stores meeting transcripts and their generated minutes.
type MeetingRepo struct {
	db *DB
}

func NewMeetingRepo(db *DB) *MeetingRepo {
	return &MeetingRepo{db: db}
}

// CreateJob inserts a pending minutes job and returns its id.
func (r *MeetingRepo) CreateJob(ctx context.Context, meetingID, requestedBy, transcript string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO meeting_minutes (id, meeting_id, requested_by, transcript, status, created_at)
		 VALUES ($1, $2, $3, $4, 'pending', now())`,
		id, meetingID, requestedBy, transcript)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create minutes job: %w", err)
	}
	return id, nil
}

// Complete stores the generated summary and marks the job done.
func (r *MeetingRepo) Complete(ctx context.Context, id uuid.UUID, summary string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE meeting_minutes SET summary = $2, status = 'done', completed_at = now() WHERE id = $1`,
		id, summary)
	if err != nil {
		return fmt.Errorf("complete minutes job %s: %w", id, err)
	}
	return nil
}

// Fail marks the job failed. The transcript stays so the job can be rerun.
func (r *MeetingRepo) Fail(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE meeting_minutes SET status = 'failed', completed_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("fail minutes job %s: %w", id, err)
	}
	return nil
}

// ListByMeeting returns all minutes rows for a meeting, newest first.
func (r *MeetingRepo) ListByMeeting(ctx context.Context, meetingID string) ([]MinutesRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, meeting_id, requested_by, transcript, summary, status, created_at, completed_at
		 FROM meeting_minutes WHERE meeting_id = $1 ORDER BY created_at DESC`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("list minutes for %s: %w", meetingID, err)
	}
	defer rows.Close()

	var out []MinutesRow
	for rows.Next() {
		var m MinutesRow
		if err := rows.Scan(&m.ID, &m.MeetingID, &m.RequestedBy, &m.Transcript, &m.Summary,
			&m.Status, &m.CreatedAt, &m.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan minutes row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
