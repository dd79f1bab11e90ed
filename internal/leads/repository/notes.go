package repository

import (
	"context"

	"leadbridge/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func insertNoteTx(ctx context.Context, tx pgx.Tx, n domain.Note) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO lead_notes (id, lead_id, author_id, body, is_private, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, n.ID, n.LeadID, n.AuthorID, n.Body, n.IsPrivate, n.CreatedAt)
	return err
}

// History rows are append-only: there is no update or delete.
func insertHistoryTx(ctx context.Context, tx pgx.Tx, h domain.HistoryEntry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO lead_history (id, lead_id, event_type, description, user_id, note_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, h.ID, h.LeadID, h.EventType, h.Description, h.UserID, h.NoteID, h.CreatedAt)
	return err
}

// AddNote stores a note and its NOTE_ADDED history entry.
func (r *Repository) AddNote(ctx context.Context, n domain.Note, h domain.HistoryEntry) error {
	_, err := r.MutateLead(ctx, n.LeadID, func(*domain.Lead, int) (LeadMutation, error) {
		return LeadMutation{Notes: []domain.Note{n}, History: []domain.HistoryEntry{h}}, nil
	})
	return err
}

func (r *Repository) ListNotes(ctx context.Context, leadID uuid.UUID) ([]domain.Note, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, author_id, body, is_private, created_at
		FROM lead_notes
		WHERE lead_id = $1
		ORDER BY created_at DESC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make([]domain.Note, 0)
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.ID, &n.LeadID, &n.AuthorID, &n.Body, &n.IsPrivate, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// ListHistory joins the linked note so callers can apply note privacy.
func (r *Repository) ListHistory(ctx context.Context, leadID uuid.UUID) ([]domain.HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT h.id, h.lead_id, h.event_type, h.description, h.user_id, h.note_id, h.created_at,
			COALESCE(n.is_private, false), n.author_id
		FROM lead_history h
		LEFT JOIN lead_notes n ON n.id = h.note_id
		WHERE h.lead_id = $1
		ORDER BY h.created_at DESC, h.id
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.HistoryEntry, 0)
	for rows.Next() {
		var h domain.HistoryEntry
		if err := rows.Scan(
			&h.ID, &h.LeadID, &h.EventType, &h.Description, &h.UserID, &h.NoteID, &h.CreatedAt,
			&h.NotePrivate, &h.NoteAuthorID,
		); err != nil {
			return nil, err
		}
		entries = append(entries, h)
	}
	return entries, rows.Err()
}
