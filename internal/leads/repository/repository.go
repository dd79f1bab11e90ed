package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadbridge/internal/access"
	"leadbridge/internal/leads/domain"
	"leadbridge/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound     = errors.New("lead not found")
	ErrDealNotFound = errors.New("deal not found")
	// ErrUnchanged is returned by a mutate callback that decided nothing needs writing.
	ErrUnchanged = errors.New("lead unchanged")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `l.id, l.client_first_name, l.client_last_name, l.client_phone, l.client_email,
	l.referrer_id, l.advisor_id, l.description, l.is_personal_contact, l.communication_status,
	l.meeting_at, l.meeting_note, l.meeting_scheduled, l.meeting_done, l.meeting_done_at,
	l.callback_scheduled_date, l.callback_note, l.created_at, l.updated_at`

func leadScanTargets(l *domain.Lead) []any {
	return []any{
		&l.ID, &l.Client.FirstName, &l.Client.LastName, &l.Client.Phone, &l.Client.Email,
		&l.ReferrerID, &l.AdvisorID, &l.Description, &l.IsPersonalContact, &l.Status,
		&l.MeetingAt, &l.MeetingNote, &l.MeetingScheduled, &l.MeetingDone, &l.MeetingDoneAt,
		&l.CallbackScheduledDate, &l.CallbackNote, &l.CreatedAt, &l.UpdatedAt,
	}
}

func scanLead(row pgx.Row) (domain.Lead, error) {
	var l domain.Lead
	if err := row.Scan(leadScanTargets(&l)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Lead{}, ErrNotFound
		}
		return domain.Lead{}, err
	}
	return l, nil
}

func (r *Repository) GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads l WHERE l.id = $1`, id))
}

func getLeadForUpdateTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (domain.Lead, error) {
	return scanLead(tx.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads l WHERE l.id = $1 FOR UPDATE`, id))
}

// LeadInScope runs the access existence check. $1 is the lead id and the
// scope's placeholders start at $2.
func (r *Repository) LeadInScope(ctx context.Context, leadID uuid.UUID, scope access.Scope) (bool, error) {
	args := append([]any{leadID}, scope.Args...)
	var ok bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM leads l WHERE l.id = $1 AND %s)`, scope.Clause)
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// DealInScope is LeadInScope for a deal joined to its lead.
func (r *Repository) DealInScope(ctx context.Context, dealID uuid.UUID, scope access.Scope) (bool, error) {
	args := append([]any{dealID}, scope.Args...)
	var ok bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM deals d JOIN leads l ON l.id = d.lead_id WHERE d.id = $1 AND %s)`, scope.Clause)
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

var _ access.Checker = (*Repository)(nil)

func insertLeadTx(ctx context.Context, tx pgx.Tx, l domain.Lead) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO leads (id, client_first_name, client_last_name, client_phone, client_email,
			referrer_id, advisor_id, description, is_personal_contact, communication_status,
			meeting_at, meeting_note, meeting_scheduled, meeting_done, meeting_done_at,
			callback_scheduled_date, callback_note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $18)
	`,
		l.ID, l.Client.FirstName, l.Client.LastName, l.Client.Phone, l.Client.Email,
		l.ReferrerID, l.AdvisorID, l.Description, l.IsPersonalContact, l.Status,
		l.MeetingAt, l.MeetingNote, l.MeetingScheduled, l.MeetingDone, l.MeetingDoneAt,
		l.CallbackScheduledDate, l.CallbackNote, l.CreatedAt,
	)
	return err
}

func updateLeadTx(ctx context.Context, tx pgx.Tx, l domain.Lead) error {
	tag, err := tx.Exec(ctx, `
		UPDATE leads SET
			client_first_name = $2, client_last_name = $3, client_phone = $4, client_email = $5,
			referrer_id = $6, advisor_id = $7, description = $8, is_personal_contact = $9,
			communication_status = $10, meeting_at = $11, meeting_note = $12,
			meeting_scheduled = $13, meeting_done = $14, meeting_done_at = $15,
			callback_scheduled_date = $16, callback_note = $17, updated_at = $18
		WHERE id = $1
	`,
		l.ID, l.Client.FirstName, l.Client.LastName, l.Client.Phone, l.Client.Email,
		l.ReferrerID, l.AdvisorID, l.Description, l.IsPersonalContact,
		l.Status, l.MeetingAt, l.MeetingNote,
		l.MeetingScheduled, l.MeetingDone, l.MeetingDoneAt,
		l.CallbackScheduledDate, l.CallbackNote, l.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// syncDealsClientTx copies the lead's client data to its deals. It is a plain
// column update and never flows back to the lead.
func syncDealsClientTx(ctx context.Context, tx pgx.Tx, leadID uuid.UUID, c domain.ClientData, exceptDeal *uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE deals SET client_first_name = $2, client_last_name = $3, client_phone = $4,
			client_email = $5, updated_at = now()
		WHERE lead_id = $1 AND ($6::uuid IS NULL OR id <> $6)
	`, leadID, c.FirstName, c.LastName, c.Phone, c.Email, exceptDeal)
	return err
}

func countDealsTx(ctx context.Context, q db.Querier, leadID uuid.UUID) (int, error) {
	var n int
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM deals WHERE lead_id = $1`, leadID).Scan(&n)
	return n, err
}

// LeadMutation is written in the same transaction as the updated lead.
// Notes are inserted before history so entries can reference them.
type LeadMutation struct {
	Notes      []domain.Note
	History    []domain.HistoryEntry
	NewDeal    *domain.Deal
	SyncClient bool
}

// TxHook runs inside a lead transaction after the lead rows are written.
type TxHook func(ctx context.Context, q db.Querier) error

func (r *Repository) applyMutationTx(ctx context.Context, tx pgx.Tx, leadID uuid.UUID, m LeadMutation, client domain.ClientData) error {
	for _, n := range m.Notes {
		if err := insertNoteTx(ctx, tx, n); err != nil {
			return err
		}
	}
	if m.NewDeal != nil {
		if err := insertDealTx(ctx, tx, *m.NewDeal); err != nil {
			return err
		}
	}
	if m.SyncClient {
		if err := syncDealsClientTx(ctx, tx, leadID, client, nil); err != nil {
			return err
		}
	}
	for _, h := range m.History {
		if err := insertHistoryTx(ctx, tx, h); err != nil {
			return err
		}
	}
	return nil
}

// CreateLead inserts a lead with its initial notes and history.
func (r *Repository) CreateLead(ctx context.Context, lead domain.Lead, m LeadMutation, hooks ...TxHook) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := insertLeadTx(ctx, tx, lead); err != nil {
			return err
		}
		if err := r.applyMutationTx(ctx, tx, lead.ID, m, lead.Client); err != nil {
			return err
		}
		for _, hook := range hooks {
			if err := hook(ctx, tx); err != nil {
				return err
			}
		}
		return nil
	})
}

// MutateLead locks the lead, lets fn change it and describe what else to
// write, and commits everything together. existingDeals is the number of
// deals the lead had when it was locked.
func (r *Repository) MutateLead(ctx context.Context, leadID uuid.UUID, fn func(lead *domain.Lead, existingDeals int) (LeadMutation, error)) (domain.Lead, error) {
	var out domain.Lead
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		lead, err := getLeadForUpdateTx(ctx, tx, leadID)
		if err != nil {
			return err
		}
		deals, err := countDealsTx(ctx, tx, leadID)
		if err != nil {
			return err
		}

		m, err := fn(&lead, deals)
		if err != nil {
			return err
		}
		lead.UpdatedAt = time.Now()
		if err := updateLeadTx(ctx, tx, lead); err != nil {
			return err
		}
		if err := r.applyMutationTx(ctx, tx, lead.ID, m, lead.Client); err != nil {
			return err
		}
		out = lead
		return nil
	})
	return out, err
}

// DealMutation describes the writes accompanying a deal change.
type DealMutation struct {
	Notes   []domain.Note
	History []domain.HistoryEntry
	// LeadChanged writes the (possibly modified) parent lead back.
	LeadChanged bool
	// SyncClient copies the deal's client data to the lead and sibling deals.
	SyncClient bool
}

// lockDealTx locks the deal's lead before the deal itself. MutateLead holds
// the lead lock while it rewrites sibling deals, so every writer takes the
// lead first and concurrent lead and deal edits queue instead of deadlocking.
// A deal never moves to another lead, so reading lead_id unlocked is safe.
func lockDealTx(ctx context.Context, tx pgx.Tx, dealID uuid.UUID) (domain.Deal, domain.Lead, error) {
	var leadID uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT lead_id FROM deals WHERE id = $1`, dealID).Scan(&leadID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Deal{}, domain.Lead{}, ErrDealNotFound
		}
		return domain.Deal{}, domain.Lead{}, err
	}
	lead, err := getLeadForUpdateTx(ctx, tx, leadID)
	if err != nil {
		return domain.Deal{}, domain.Lead{}, err
	}
	deal, err := getDealForUpdateTx(ctx, tx, dealID)
	if err != nil {
		return domain.Deal{}, domain.Lead{}, err
	}
	return deal, lead, nil
}

// MutateDeal locks a deal and its lead and commits fn's changes to both.
func (r *Repository) MutateDeal(ctx context.Context, dealID uuid.UUID, fn func(lead *domain.Lead, deal *domain.Deal) (DealMutation, error)) (domain.Deal, domain.Lead, error) {
	var (
		outDeal domain.Deal
		outLead domain.Lead
	)
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		deal, lead, err := lockDealTx(ctx, tx, dealID)
		if err != nil {
			return err
		}

		m, err := fn(&lead, &deal)
		if err != nil {
			return err
		}
		now := time.Now()
		deal.UpdatedAt = now
		if err := updateDealTx(ctx, tx, deal); err != nil {
			return err
		}
		if m.SyncClient {
			lead.Client = deal.Client
			m.LeadChanged = true
			if err := syncDealsClientTx(ctx, tx, lead.ID, deal.Client, &deal.ID); err != nil {
				return err
			}
		}
		if m.LeadChanged {
			lead.UpdatedAt = now
			if err := updateLeadTx(ctx, tx, lead); err != nil {
				return err
			}
		}
		for _, n := range m.Notes {
			if err := insertNoteTx(ctx, tx, n); err != nil {
				return err
			}
		}
		for _, h := range m.History {
			if err := insertHistoryTx(ctx, tx, h); err != nil {
				return err
			}
		}
		outDeal, outLead = deal, lead
		return nil
	})
	return outDeal, outLead, err
}
