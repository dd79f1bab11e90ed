package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"leadbridge/internal/accounts/domain"
	"leadbridge/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")
var ErrEmailTaken = errors.New("email already in use")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, password_hash, first_name, last_name, phone, role,
	is_superuser, is_active, has_admin_access,
	commission_total_per_million, commission_referrer_pct, commission_manager_pct, commission_office_pct,
	advisor_commission_type, advisor_commission_per_million, advisor_commission_own_deals,
	advisor_commission_structure_deals, last_login_at, created_at, updated_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	var role, advisorType string
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone, &role,
		&u.IsSuperuser, &u.IsActive, &u.HasAdminAccess,
		&u.Rates.TotalPerMillion, &u.Rates.ReferrerPct, &u.Rates.ManagerPct, &u.Rates.OfficePct,
		&advisorType, &u.Advisor.PerMillion, &u.Advisor.OwnDeals,
		&u.Advisor.StructureDeals, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	u.Role = domain.Role(role)
	u.Advisor.Type = domain.AdvisorCommissionType(advisorType)
	return u, nil
}

func collectUsers(rows pgx.Rows) ([]domain.User, error) {
	defer rows.Close()
	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func advisorType(t domain.AdvisorCommissionType) string {
	if t == "" {
		return string(domain.FullMinusStructure)
	}
	return string(t)
}

func (r *Repository) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, phone, role,
			is_superuser, is_active, has_admin_access,
			commission_total_per_million, commission_referrer_pct, commission_manager_pct, commission_office_pct,
			advisor_commission_type, advisor_commission_per_million, advisor_commission_own_deals,
			advisor_commission_structure_deals)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING `+userColumns,
		u.ID, strings.TrimSpace(u.Email), u.PasswordHash, u.FirstName, u.LastName, u.Phone, string(u.Role),
		u.IsSuperuser, u.IsActive, u.HasAdminAccess,
		u.Rates.TotalPerMillion, u.Rates.ReferrerPct, u.Rates.ManagerPct, u.Rates.OfficePct,
		advisorType(u.Advisor.Type), u.Advisor.PerMillion, u.Advisor.OwnDeals, u.Advisor.StructureDeals,
	)
	created, err := scanUser(row)
	if db.IsUniqueViolation(err) {
		return domain.User{}, ErrEmailTaken
	}
	return created, err
}

// UpdateUser writes every editable field. The password hash is only changed
// when non-empty.
func (r *Repository) UpdateUser(ctx context.Context, u domain.User) (domain.User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users SET
			email = $2,
			password_hash = CASE WHEN $3 = '' THEN password_hash ELSE $3 END,
			first_name = $4, last_name = $5, phone = $6, role = $7,
			is_superuser = $8, is_active = $9, has_admin_access = $10,
			commission_total_per_million = $11, commission_referrer_pct = $12,
			commission_manager_pct = $13, commission_office_pct = $14,
			advisor_commission_type = $15, advisor_commission_per_million = $16,
			advisor_commission_own_deals = $17, advisor_commission_structure_deals = $18,
			updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		u.ID, strings.TrimSpace(u.Email), u.PasswordHash, u.FirstName, u.LastName, u.Phone, string(u.Role),
		u.IsSuperuser, u.IsActive, u.HasAdminAccess,
		u.Rates.TotalPerMillion, u.Rates.ReferrerPct, u.Rates.ManagerPct, u.Rates.OfficePct,
		advisorType(u.Advisor.Type), u.Advisor.PerMillion, u.Advisor.OwnDeals, u.Advisor.StructureDeals,
	)
	updated, err := scanUser(row)
	if db.IsUniqueViolation(err) {
		return domain.User{}, ErrEmailTaken
	}
	return updated, err
}

func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, strings.TrimSpace(email)))
}

func (r *Repository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at)
	return err
}

// UserFilter narrows ListUsers. Zero values mean no restriction.
type UserFilter struct {
	Roles      []domain.Role
	Search     string
	ActiveOnly bool
}

const listUsersQuery = `SELECT ` + userColumns + ` FROM users
	WHERE (cardinality($1::text[]) = 0 OR role = ANY($1::text[]))
	  AND ($2 = '' OR email ILIKE '%' || $2 || '%' OR first_name ILIKE '%' || $2 || '%' OR last_name ILIKE '%' || $2 || '%')
	  AND (NOT $3 OR is_active)
	ORDER BY last_name, first_name, email`

func (r *Repository) ListUsers(ctx context.Context, f UserFilter) ([]domain.User, error) {
	roles := make([]string, 0, len(f.Roles))
	for _, role := range f.Roles {
		roles = append(roles, string(role))
	}
	rows, err := r.pool.Query(ctx, listUsersQuery, roles, strings.TrimSpace(f.Search), f.ActiveOnly)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

func (r *Repository) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.User, error) {
	out := make(map[uuid.UUID]domain.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	users, err := collectUsers(rows)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}
