package repository

import (
	"context"
	"errors"
	"fmt"

	"leadbridge/internal/accounts/domain"
	"leadbridge/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (r *Repository) GetReferrerProfile(ctx context.Context, userID uuid.UUID) (domain.ReferrerProfile, error) {
	var p domain.ReferrerProfile
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, manager_id, last_chosen_advisor_id
		FROM referrer_profiles WHERE user_id = $1
	`, userID).Scan(&p.ID, &p.UserID, &p.ManagerID, &p.LastChosenAdvisorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ReferrerProfile{}, ErrNotFound
	}
	if err != nil {
		return domain.ReferrerProfile{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT advisor_id FROM referrer_profile_advisors WHERE profile_id = $1 ORDER BY advisor_id
	`, p.ID)
	if err != nil {
		return domain.ReferrerProfile{}, err
	}
	p.AdvisorIDs, err = pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return domain.ReferrerProfile{}, err
	}
	return p, nil
}

// UpsertReferrerProfile creates or replaces the profile of p.UserID, including
// its advisor pool.
func (r *Repository) UpsertReferrerProfile(ctx context.Context, p domain.ReferrerProfile) (domain.ReferrerProfile, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
			INSERT INTO referrer_profiles (id, user_id, manager_id, last_chosen_advisor_id)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id) DO UPDATE SET manager_id = EXCLUDED.manager_id
			RETURNING id, last_chosen_advisor_id
		`, uuid.New(), p.UserID, p.ManagerID, p.LastChosenAdvisorID).Scan(&p.ID, &p.LastChosenAdvisorID); err != nil {
			return err
		}
		return replaceAdvisorsTx(ctx, tx, p.ID, p.AdvisorIDs)
	})
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return domain.ReferrerProfile{}, fmt.Errorf("referrer profile references unknown user: %w", ErrNotFound)
		}
		return domain.ReferrerProfile{}, err
	}
	return p, nil
}

func replaceAdvisorsTx(ctx context.Context, tx pgx.Tx, profileID uuid.UUID, advisorIDs []uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM referrer_profile_advisors WHERE profile_id = $1`, profileID); err != nil {
		return err
	}
	if len(advisorIDs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO referrer_profile_advisors (profile_id, advisor_id)
		SELECT $1, unnest($2::uuid[])
		ON CONFLICT DO NOTHING
	`, profileID, advisorIDs)
	return err
}

// SetLastChosenAdvisor records the sticky advisor default. It runs on q so lead
// creation can include it in its transaction.
func (r *Repository) SetLastChosenAdvisor(ctx context.Context, q db.Querier, userID, advisorID uuid.UUID) error {
	_, err := q.Exec(ctx, `
		UPDATE referrer_profiles SET last_chosen_advisor_id = $2 WHERE user_id = $1
	`, userID, advisorID)
	return err
}

// AdvisorPool returns the advisors on userID's referrer profile. A missing
// profile is an empty pool.
func (r *Repository) AdvisorPool(ctx context.Context, userID uuid.UUID) ([]domain.UserRef, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.role, u.first_name, u.last_name, u.email
		FROM referrer_profiles rp
		JOIN referrer_profile_advisors rpa ON rpa.profile_id = rp.id
		JOIN users u ON u.id = rpa.advisor_id
		WHERE rp.user_id = $1 AND u.is_active
		ORDER BY u.last_name, u.first_name
	`, userID)
	if err != nil {
		return nil, err
	}
	return collectRefs(rows)
}

// ReferrersForAdvisor lists the users whose advisor pool contains advisorID.
func (r *Repository) ReferrersForAdvisor(ctx context.Context, advisorID uuid.UUID) ([]domain.UserRef, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.role, u.first_name, u.last_name, u.email
		FROM referrer_profile_advisors rpa
		JOIN referrer_profiles rp ON rp.id = rpa.profile_id
		JOIN users u ON u.id = rp.user_id
		WHERE rpa.advisor_id = $1 AND u.is_active
		ORDER BY u.last_name, u.first_name
	`, advisorID)
	if err != nil {
		return nil, err
	}
	return collectRefs(rows)
}

// ListRefs returns active users with one of roles as display references.
func (r *Repository) ListRefs(ctx context.Context, roles ...domain.Role) ([]domain.UserRef, error) {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, role, first_name, last_name, email FROM users
		WHERE is_active AND role = ANY($1::text[])
		ORDER BY last_name, first_name
	`, names)
	if err != nil {
		return nil, err
	}
	return collectRefs(rows)
}

func collectRefs(rows pgx.Rows) ([]domain.UserRef, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.UserRef, error) {
		var ref domain.UserRef
		var role string
		err := row.Scan(&ref.ID, &role, &ref.FirstName, &ref.LastName, &ref.Email)
		ref.Role = domain.Role(role)
		return ref, err
	})
}

func (r *Repository) GetManagerProfile(ctx context.Context, userID uuid.UUID) (domain.ManagerProfile, error) {
	var p domain.ManagerProfile
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, office_id FROM manager_profiles WHERE user_id = $1
	`, userID).Scan(&p.ID, &p.UserID, &p.OfficeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ManagerProfile{}, ErrNotFound
	}
	return p, err
}

func (r *Repository) UpsertManagerProfile(ctx context.Context, p domain.ManagerProfile) (domain.ManagerProfile, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO manager_profiles (id, user_id, office_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET office_id = EXCLUDED.office_id
		RETURNING id
	`, uuid.New(), p.UserID, p.OfficeID).Scan(&p.ID)
	if db.IsForeignKeyViolation(err) {
		return domain.ManagerProfile{}, fmt.Errorf("manager profile references unknown office: %w", ErrNotFound)
	}
	return p, err
}

func (r *Repository) CreateOffice(ctx context.Context, o domain.Office) (domain.Office, error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO offices (id, name, owner_id) VALUES ($1, $2, $3)
		RETURNING created_at
	`, o.ID, o.Name, o.OwnerID).Scan(&o.CreatedAt)
	if db.IsForeignKeyViolation(err) {
		return domain.Office{}, fmt.Errorf("office owner not found: %w", ErrNotFound)
	}
	return o, err
}

func (r *Repository) ListOffices(ctx context.Context) ([]domain.Office, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, owner_id, created_at FROM offices ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Office, error) {
		var o domain.Office
		err := row.Scan(&o.ID, &o.Name, &o.OwnerID, &o.CreatedAt)
		return o, err
	})
}

const hierarchyQuery = `
	SELECT r.id, r.role, r.first_name, r.last_name, r.email,
		r.commission_total_per_million, r.commission_referrer_pct, r.commission_manager_pct, r.commission_office_pct,
		m.id, m.role, m.first_name, m.last_name, m.email,
		o.id, o.name,
		ow.id, ow.role, ow.first_name, ow.last_name, ow.email
	FROM users r
	LEFT JOIN referrer_profiles rp ON rp.user_id = r.id
	LEFT JOIN users m ON m.id = rp.manager_id
	LEFT JOIN manager_profiles mp ON mp.user_id = m.id
	LEFT JOIN offices o ON o.id = mp.office_id
	LEFT JOIN users ow ON ow.id = o.owner_id
	WHERE r.id = $1`

type nullableRef struct {
	id        *uuid.UUID
	role      *string
	firstName *string
	lastName  *string
	email     *string
}

func (n nullableRef) ref() *domain.UserRef {
	if n.id == nil {
		return nil
	}
	return &domain.UserRef{
		ID:        *n.id,
		Role:      domain.Role(deref(n.role)),
		FirstName: deref(n.firstName),
		LastName:  deref(n.lastName),
		Email:     deref(n.email),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Hierarchy resolves referrer -> manager -> office -> owner in one query.
func (r *Repository) Hierarchy(ctx context.Context, referrerID uuid.UUID) (domain.Hierarchy, error) {
	var h domain.Hierarchy
	var referrerRole string
	var manager, owner nullableRef
	var officeID *uuid.UUID
	var officeName *string

	err := r.pool.QueryRow(ctx, hierarchyQuery, referrerID).Scan(
		&h.Referrer.ID, &referrerRole, &h.Referrer.FirstName, &h.Referrer.LastName, &h.Referrer.Email,
		&h.ReferrerRates.TotalPerMillion, &h.ReferrerRates.ReferrerPct, &h.ReferrerRates.ManagerPct, &h.ReferrerRates.OfficePct,
		&manager.id, &manager.role, &manager.firstName, &manager.lastName, &manager.email,
		&officeID, &officeName,
		&owner.id, &owner.role, &owner.firstName, &owner.lastName, &owner.email,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Hierarchy{}, ErrNotFound
	}
	if err != nil {
		return domain.Hierarchy{}, err
	}

	h.Referrer.Role = domain.Role(referrerRole)
	h.Manager = manager.ref()
	if officeID != nil {
		h.Office = &domain.OfficeRef{ID: *officeID, Name: deref(officeName), Owner: owner.ref()}
	}
	return h, nil
}
