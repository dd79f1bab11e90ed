package repository

import (
	"context"
	"errors"

	"leadbridge/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const dealColumns = `d.id, d.lead_id, d.client_first_name, d.client_last_name, d.client_phone, d.client_email,
	d.loan_amount, d.bank, d.property_type, d.status, d.commission_status,
	d.commission_referrer, d.commission_manager, d.commission_office, d.commission_total, d.commission_advisor,
	d.paid_referrer, d.paid_manager, d.paid_office, d.is_personal_deal, d.created_at, d.updated_at`

func dealScanTargets(d *domain.Deal) []any {
	return []any{
		&d.ID, &d.LeadID, &d.Client.FirstName, &d.Client.LastName, &d.Client.Phone, &d.Client.Email,
		&d.LoanAmount, &d.Bank, &d.PropertyType, &d.Status, &d.CommissionStatus,
		&d.Commission.Referrer, &d.Commission.Manager, &d.Commission.Office, &d.Commission.Total, &d.Commission.Advisor,
		&d.Paid.Referrer, &d.Paid.Manager, &d.Paid.Office, &d.IsPersonalDeal, &d.CreatedAt, &d.UpdatedAt,
	}
}

func scanDeal(row pgx.Row) (domain.Deal, error) {
	var d domain.Deal
	if err := row.Scan(dealScanTargets(&d)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Deal{}, ErrDealNotFound
		}
		return domain.Deal{}, err
	}
	return d, nil
}

func (r *Repository) GetDeal(ctx context.Context, id uuid.UUID) (domain.Deal, error) {
	return scanDeal(r.pool.QueryRow(ctx, `SELECT `+dealColumns+` FROM deals d WHERE d.id = $1`, id))
}

func getDealForUpdateTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (domain.Deal, error) {
	return scanDeal(tx.QueryRow(ctx, `SELECT `+dealColumns+` FROM deals d WHERE d.id = $1 FOR UPDATE`, id))
}

// ListDealsForLead returns the lead's deals, newest first.
func (r *Repository) ListDealsForLead(ctx context.Context, leadID uuid.UUID) ([]domain.Deal, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+dealColumns+` FROM deals d WHERE d.lead_id = $1 ORDER BY d.created_at DESC`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deals := make([]domain.Deal, 0)
	for rows.Next() {
		var d domain.Deal
		if err := rows.Scan(dealScanTargets(&d)...); err != nil {
			return nil, err
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

func insertDealTx(ctx context.Context, tx pgx.Tx, d domain.Deal) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO deals (id, lead_id, client_first_name, client_last_name, client_phone, client_email,
			loan_amount, bank, property_type, status, commission_status,
			commission_referrer, commission_manager, commission_office, commission_total, commission_advisor,
			paid_referrer, paid_manager, paid_office, is_personal_deal, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $21)
	`,
		d.ID, d.LeadID, d.Client.FirstName, d.Client.LastName, d.Client.Phone, d.Client.Email,
		d.LoanAmount, d.Bank, d.PropertyType, d.Status, d.CommissionStatus,
		d.Commission.Referrer, d.Commission.Manager, d.Commission.Office, d.Commission.Total, d.Commission.Advisor,
		d.Paid.Referrer, d.Paid.Manager, d.Paid.Office, d.IsPersonalDeal, d.CreatedAt,
	)
	return err
}

func updateDealTx(ctx context.Context, tx pgx.Tx, d domain.Deal) error {
	tag, err := tx.Exec(ctx, `
		UPDATE deals SET
			client_first_name = $2, client_last_name = $3, client_phone = $4, client_email = $5,
			loan_amount = $6, bank = $7, property_type = $8, status = $9, commission_status = $10,
			commission_referrer = $11, commission_manager = $12, commission_office = $13,
			commission_total = $14, commission_advisor = $15,
			paid_referrer = $16, paid_manager = $17, paid_office = $18, is_personal_deal = $19,
			updated_at = $20
		WHERE id = $1
	`,
		d.ID, d.Client.FirstName, d.Client.LastName, d.Client.Phone, d.Client.Email,
		d.LoanAmount, d.Bank, d.PropertyType, d.Status, d.CommissionStatus,
		d.Commission.Referrer, d.Commission.Manager, d.Commission.Office,
		d.Commission.Total, d.Commission.Advisor,
		d.Paid.Referrer, d.Paid.Manager, d.Paid.Office, d.IsPersonalDeal,
		d.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDealNotFound
	}
	return nil
}
