// Package service implements user administration and the structure lookups
// other contexts depend on.
package service

import (
	"context"
	"errors"
	"strings"

	"leadbridge/internal/access"
	"leadbridge/internal/accounts/domain"
	"leadbridge/internal/accounts/repository"
	"leadbridge/internal/auth/password"
	"leadbridge/internal/events"
	"leadbridge/platform/apperr"
	"leadbridge/platform/logger"
	"leadbridge/platform/phone"
	"leadbridge/platform/sanitize"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is the accounts persistence the service needs.
type Store interface {
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)
	UpdateUser(ctx context.Context, u domain.User) (domain.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (domain.User, error)
	GetUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.User, error)
	ListUsers(ctx context.Context, f repository.UserFilter) ([]domain.User, error)
	GetReferrerProfile(ctx context.Context, userID uuid.UUID) (domain.ReferrerProfile, error)
	UpsertReferrerProfile(ctx context.Context, p domain.ReferrerProfile) (domain.ReferrerProfile, error)
	GetManagerProfile(ctx context.Context, userID uuid.UUID) (domain.ManagerProfile, error)
	UpsertManagerProfile(ctx context.Context, p domain.ManagerProfile) (domain.ManagerProfile, error)
	CreateOffice(ctx context.Context, o domain.Office) (domain.Office, error)
	ListOffices(ctx context.Context) ([]domain.Office, error)
	Hierarchy(ctx context.Context, referrerID uuid.UUID) (domain.Hierarchy, error)
	AdvisorPool(ctx context.Context, userID uuid.UUID) ([]domain.UserRef, error)
	ReferrersForAdvisor(ctx context.Context, advisorID uuid.UUID) ([]domain.UserRef, error)
	ListRefs(ctx context.Context, roles ...domain.Role) ([]domain.UserRef, error)
}

type Service struct {
	store    Store
	eventBus events.Bus
	log      *logger.Logger
}

func New(store Store, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, eventBus: eventBus, log: log}
}

func mapNotFound(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(what + " not found")
	}
	return err
}

// Viewer resolves the caller for access decisions. Inactive users are rejected
// even while their access token is still valid.
func (s *Service) Viewer(ctx context.Context, userID uuid.UUID) (access.Viewer, error) {
	u, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return access.Viewer{}, apperr.Unauthorized("unknown user")
	}
	if err != nil {
		return access.Viewer{}, err
	}
	if !u.IsActive {
		return access.Viewer{}, apperr.Unauthorized("account is disabled")
	}
	return access.ViewerFromUser(u), nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (domain.User, error) {
	u, err := s.store.GetUserByID(ctx, id)
	return u, mapNotFound(err, "user")
}

func (s *Service) GetUsers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.User, error) {
	return s.store.GetUsersByIDs(ctx, ids)
}

func (s *Service) ListUsers(ctx context.Context, f repository.UserFilter) ([]domain.User, error) {
	return s.store.ListUsers(ctx, f)
}

// UserInput carries the administrator-editable user fields. Nil pointers are
// left unchanged on update.
type UserInput struct {
	Email          *string
	Password       *string
	FirstName      *string
	LastName       *string
	Phone          *string
	Role           *domain.Role
	IsActive       *bool
	IsSuperuser    *bool
	HasAdminAccess *bool

	CommissionTotalPerMillion *int64
	CommissionReferrerPct     *decimal.Decimal
	CommissionManagerPct      *decimal.Decimal
	CommissionOfficePct       *decimal.Decimal

	AdvisorCommissionType           *domain.AdvisorCommissionType
	AdvisorCommissionPerMillion     *int64
	AdvisorCommissionOwnDeals       *int64
	AdvisorCommissionStructureDeals *int64
}

func (in UserInput) apply(u *domain.User) error {
	if in.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.Password != nil && *in.Password != "" {
		if len(*in.Password) < password.MinLength {
			return apperr.Validationf("password must have at least %d characters", password.MinLength)
		}
		hash, err := password.Hash(*in.Password)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
	}
	if in.FirstName != nil {
		u.FirstName = sanitize.Line(*in.FirstName)
	}
	if in.LastName != nil {
		u.LastName = sanitize.Line(*in.LastName)
	}
	if in.Phone != nil {
		u.Phone = phone.NormalizeE164(*in.Phone)
	}
	if in.Role != nil {
		u.Role = *in.Role
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if in.IsSuperuser != nil {
		u.IsSuperuser = *in.IsSuperuser
	}
	if in.HasAdminAccess != nil {
		u.HasAdminAccess = *in.HasAdminAccess
	}
	if in.CommissionTotalPerMillion != nil {
		u.Rates.TotalPerMillion = *in.CommissionTotalPerMillion
	}
	if in.CommissionReferrerPct != nil {
		u.Rates.ReferrerPct = *in.CommissionReferrerPct
	}
	if in.CommissionManagerPct != nil {
		u.Rates.ManagerPct = *in.CommissionManagerPct
	}
	if in.CommissionOfficePct != nil {
		u.Rates.OfficePct = *in.CommissionOfficePct
	}
	if in.AdvisorCommissionType != nil {
		u.Advisor.Type = *in.AdvisorCommissionType
	}
	if in.AdvisorCommissionPerMillion != nil {
		u.Advisor.PerMillion = *in.AdvisorCommissionPerMillion
	}
	if in.AdvisorCommissionOwnDeals != nil {
		u.Advisor.OwnDeals = *in.AdvisorCommissionOwnDeals
	}
	if in.AdvisorCommissionStructureDeals != nil {
		u.Advisor.StructureDeals = *in.AdvisorCommissionStructureDeals
	}
	return nil
}

// CreateUser validates rates before anything is written.
func (s *Service) CreateUser(ctx context.Context, actor access.Viewer, in UserInput) (domain.User, error) {
	if in.IsSuperuser != nil && *in.IsSuperuser && !actor.IsSuperuser {
		return domain.User{}, apperr.Forbidden("only a superuser can create superusers")
	}
	u := domain.User{
		Role:     domain.RoleReferrer,
		IsActive: true,
		Rates:    domain.CommissionRates{TotalPerMillion: domain.DefaultCommissionTotalPerMillion},
		Advisor:  domain.AdvisorTerms{Type: domain.FullMinusStructure},
	}
	if err := in.apply(&u); err != nil {
		return domain.User{}, err
	}
	if err := u.Validate(); err != nil {
		return domain.User{}, err
	}

	created, err := s.store.CreateUser(ctx, u)
	if errors.Is(err, repository.ErrEmailTaken) {
		return domain.User{}, apperr.Conflict("email already in use")
	}
	if err != nil {
		return domain.User{}, err
	}
	s.publishSaved(ctx, actor, created, true)
	return created, nil
}

func (s *Service) UpdateUser(ctx context.Context, actor access.Viewer, id uuid.UUID, in UserInput) (domain.User, error) {
	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, mapNotFound(err, "user")
	}
	if in.IsSuperuser != nil && *in.IsSuperuser != u.IsSuperuser && !actor.IsSuperuser {
		return domain.User{}, apperr.Forbidden("only a superuser can change superuser status")
	}
	if u.IsSuperuser && !actor.IsSuperuser {
		return domain.User{}, apperr.Forbidden("only a superuser can edit a superuser")
	}

	u.PasswordHash = ""
	if err := in.apply(&u); err != nil {
		return domain.User{}, err
	}
	if err := u.Validate(); err != nil {
		return domain.User{}, err
	}

	updated, err := s.store.UpdateUser(ctx, u)
	if errors.Is(err, repository.ErrEmailTaken) {
		return domain.User{}, apperr.Conflict("email already in use")
	}
	if err != nil {
		return domain.User{}, mapNotFound(err, "user")
	}
	s.publishSaved(ctx, actor, updated, false)
	return updated, nil
}

func (s *Service) publishSaved(ctx context.Context, actor access.Viewer, u domain.User, created bool) {
	s.eventBus.Publish(ctx, events.UserSaved{
		BaseEvent: events.NewBaseEvent(),
		UserID:    u.ID,
		ActorID:   actor.ID,
		Created:   created,
		Email:     u.Email,
	})
}

func (s *Service) requireRole(ctx context.Context, id uuid.UUID, what string, ok func(domain.Role) bool) (domain.User, error) {
	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, mapNotFound(err, what)
	}
	if !ok(u.Role) {
		return domain.User{}, apperr.Validationf("%s has role %s", what, u.Role)
	}
	return u, nil
}

func isAdvisor(r domain.Role) bool { return r == domain.RoleAdvisor }

func isManagerOrOffice(r domain.Role) bool { return r.CanManageReferrers() }

func isOffice(r domain.Role) bool { return r == domain.RoleOffice }

// referrer profiles also exist for advisors so their pool can share personal contacts
func canHaveReferrerProfile(r domain.Role) bool { return r.IsStructure() || r == domain.RoleAdvisor }

// SetReferrerProfile replaces the manager and advisor pool of userID.
func (s *Service) SetReferrerProfile(ctx context.Context, userID uuid.UUID, managerID *uuid.UUID, advisorIDs []uuid.UUID) (domain.ReferrerProfile, error) {
	if _, err := s.requireRole(ctx, userID, "user", canHaveReferrerProfile); err != nil {
		return domain.ReferrerProfile{}, err
	}
	if managerID != nil {
		if *managerID == userID {
			return domain.ReferrerProfile{}, apperr.Validation("a user cannot manage themself")
		}
		if _, err := s.requireRole(ctx, *managerID, "manager", isManagerOrOffice); err != nil {
			return domain.ReferrerProfile{}, err
		}
	}
	seen := make(map[uuid.UUID]bool, len(advisorIDs))
	pool := make([]uuid.UUID, 0, len(advisorIDs))
	for _, id := range advisorIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := s.requireRole(ctx, id, "advisor", isAdvisor); err != nil {
			return domain.ReferrerProfile{}, err
		}
		pool = append(pool, id)
	}

	p, err := s.store.UpsertReferrerProfile(ctx, domain.ReferrerProfile{UserID: userID, ManagerID: managerID, AdvisorIDs: pool})
	return p, mapNotFound(err, "user")
}

func (s *Service) GetReferrerProfile(ctx context.Context, userID uuid.UUID) (domain.ReferrerProfile, error) {
	p, err := s.store.GetReferrerProfile(ctx, userID)
	return p, mapNotFound(err, "referrer profile")
}

func (s *Service) SetManagerProfile(ctx context.Context, userID uuid.UUID, officeID *uuid.UUID) (domain.ManagerProfile, error) {
	if _, err := s.requireRole(ctx, userID, "user", isManagerOrOffice); err != nil {
		return domain.ManagerProfile{}, err
	}
	p, err := s.store.UpsertManagerProfile(ctx, domain.ManagerProfile{UserID: userID, OfficeID: officeID})
	return p, mapNotFound(err, "office")
}

func (s *Service) CreateOffice(ctx context.Context, name string, ownerID *uuid.UUID) (domain.Office, error) {
	name = sanitize.Line(name)
	if name == "" {
		return domain.Office{}, apperr.Validation("office name is required")
	}
	if ownerID != nil {
		if _, err := s.requireRole(ctx, *ownerID, "office owner", isOffice); err != nil {
			return domain.Office{}, err
		}
	}
	o, err := s.store.CreateOffice(ctx, domain.Office{Name: name, OwnerID: ownerID})
	return o, mapNotFound(err, "office owner")
}

func (s *Service) ListOffices(ctx context.Context) ([]domain.Office, error) {
	return s.store.ListOffices(ctx)
}

// Hierarchy resolves the structure chain above a referrer.
func (s *Service) Hierarchy(ctx context.Context, referrerID uuid.UUID) (domain.Hierarchy, error) {
	h, err := s.store.Hierarchy(ctx, referrerID)
	return h, mapNotFound(err, "referrer")
}

func (s *Service) AdvisorPool(ctx context.Context, userID uuid.UUID) ([]domain.UserRef, error) {
	return s.store.AdvisorPool(ctx, userID)
}

func (s *Service) ReferrersForAdvisor(ctx context.Context, advisorID uuid.UUID) ([]domain.UserRef, error) {
	return s.store.ReferrersForAdvisor(ctx, advisorID)
}

func (s *Service) ListRefs(ctx context.Context, roles ...domain.Role) ([]domain.UserRef, error) {
	return s.store.ListRefs(ctx, roles...)
}
