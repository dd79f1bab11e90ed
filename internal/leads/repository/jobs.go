package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DueCallbackIDs lists WAITING_FOR_CLIENT leads whose callback date is today or earlier.
func (r *Repository) DueCallbackIDs(ctx context.Context, today time.Time) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM leads
		WHERE communication_status = 'WAITING_FOR_CLIENT'
			AND callback_scheduled_date IS NOT NULL
			AND callback_scheduled_date <= $1::date
		ORDER BY callback_scheduled_date, id
	`, today)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

// MeetingFlagCandidate is a lead that violates the meeting invariant.
type MeetingFlagCandidate struct {
	LeadID           uuid.UUID
	ClientName       string
	DealCount        int
	MeetingScheduled bool
	MeetingDone      bool
	MeetingDoneAt    *time.Time
}

// meetingFlagCandidatesQuery selects leads with a deal or a done meeting
// whose flags are not both set, or whose done meeting lacks a timestamp.
const meetingFlagCandidatesQuery = `
	SELECT l.id, TRIM(l.client_first_name || ' ' || l.client_last_name),
		(SELECT COUNT(*) FROM deals d WHERE d.lead_id = l.id) AS deal_count,
		l.meeting_scheduled, l.meeting_done, l.meeting_done_at
	FROM leads l
	WHERE (EXISTS (SELECT 1 FROM deals d WHERE d.lead_id = l.id) OR l.meeting_done)
		AND (NOT l.meeting_scheduled OR NOT l.meeting_done OR l.meeting_done_at IS NULL)
	ORDER BY l.created_at`

func (r *Repository) MeetingFlagCandidates(ctx context.Context) ([]MeetingFlagCandidate, error) {
	rows, err := r.pool.Query(ctx, meetingFlagCandidatesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]MeetingFlagCandidate, 0)
	for rows.Next() {
		var c MeetingFlagCandidate
		if err := rows.Scan(&c.LeadID, &c.ClientName, &c.DealCount, &c.MeetingScheduled, &c.MeetingDone, &c.MeetingDoneAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
