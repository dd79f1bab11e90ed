package activity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Action string

const (
	ActionLogin  Action = "LOGIN"
	ActionLogout Action = "LOGOUT"
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
)

func (a Action) Valid() bool {
	switch a {
	case ActionLogin, ActionLogout, ActionCreate, ActionUpdate:
		return true
	}
	return false
}

// Entry is one row of the activity log. UserID is nil for system actions.
type Entry struct {
	ID          uuid.UUID
	UserID      *uuid.UUID
	Action      Action
	ObjectType  string
	ObjectID    *uuid.UUID
	Description string
	IPAddress   string
	UserAgent   string
	CreatedAt   time.Time
}

// EntryRow is an entry joined with its user's display name.
type EntryRow struct {
	Entry
	UserName  string
	UserEmail string
}

type ListFilter struct {
	UserID   *uuid.UUID
	Action   Action
	Page     int
	PageSize int
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, e Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO activity_log (id, user_id, action, object_type, object_id, description, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.UserID, string(e.Action), e.ObjectType, e.ObjectID, e.Description, e.IPAddress, e.UserAgent, e.CreatedAt,
	)
	return err
}

func (f ListFilter) where() (string, []any) {
	var clauses []string
	var args []any
	if f.UserID != nil {
		args = append(args, *f.UserID)
		clauses = append(clauses, fmt.Sprintf("a.user_id = $%d", len(args)))
	}
	if f.Action != "" {
		args = append(args, string(f.Action))
		clauses = append(clauses, fmt.Sprintf("a.action = $%d", len(args)))
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (f ListFilter) listSQL() (string, []any) {
	where, args := f.where()
	args = append(args, f.PageSize, (f.Page-1)*f.PageSize)
	return `
		SELECT a.id, a.user_id, a.action, a.object_type, a.object_id, a.description,
			a.ip_address, a.user_agent, a.created_at,
			COALESCE(TRIM(u.first_name || ' ' || u.last_name), ''), COALESCE(u.email, '')
		FROM activity_log a
		LEFT JOIN users u ON u.id = a.user_id` + where + fmt.Sprintf(`
		ORDER BY a.created_at DESC, a.id
		LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args
}

// List returns one page of entries, newest first, and the filtered total.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]EntryRow, int, error) {
	where, countArgs := f.where()
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM activity_log a`+where, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query, args := f.listSQL()
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (EntryRow, error) {
		var e EntryRow
		var action string
		err := row.Scan(&e.ID, &e.UserID, &action, &e.ObjectType, &e.ObjectID, &e.Description,
			&e.IPAddress, &e.UserAgent, &e.CreatedAt, &e.UserName, &e.UserEmail)
		e.Action = Action(action)
		return e, err
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
