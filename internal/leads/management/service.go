// Package management handles lead CRUD operations.
// This is a vertically sliced feature package containing service logic
// for creating, reading, updating and listing leads.
package management

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strings"
	"time"

	"leadbridge/internal/access"
	accounts "leadbridge/internal/accounts/domain"
	"leadbridge/internal/events"
	"leadbridge/internal/history"
	"leadbridge/internal/leads/domain"
	"leadbridge/internal/leads/repository"
	"leadbridge/internal/listing"
	"leadbridge/platform/apperr"
	"leadbridge/platform/db"
	"leadbridge/platform/logger"
	"leadbridge/platform/metrics"
	"leadbridge/platform/phone"
	"leadbridge/platform/sanitize"

	"github.com/google/uuid"
)

// Repository defines the data access interface needed by the management service.
// This is a consumer-driven interface - only what management needs.
type Repository interface {
	repository.LeadReader
	repository.LeadWriter
	repository.ListStore
	ListDealsForLead(ctx context.Context, leadID uuid.UUID) ([]domain.Deal, error)
}

// Scope is the part of the access service management depends on.
type Scope interface {
	CanViewLead(ctx context.Context, v access.Viewer, leadID uuid.UUID) (bool, error)
	LeadScope(v access.Viewer, alias string, argIdx int) access.Scope
}

// Accounts resolves users, pools and the referrer chain.
type Accounts interface {
	Hierarchy(ctx context.Context, referrerID uuid.UUID) (accounts.Hierarchy, error)
	GetUser(ctx context.Context, id uuid.UUID) (accounts.User, error)
	GetReferrerProfile(ctx context.Context, userID uuid.UUID) (accounts.ReferrerProfile, error)
	AdvisorPool(ctx context.Context, userID uuid.UUID) ([]accounts.UserRef, error)
	ReferrersForAdvisor(ctx context.Context, advisorID uuid.UUID) ([]accounts.UserRef, error)
	ListRefs(ctx context.Context, roles ...accounts.Role) ([]accounts.UserRef, error)
}

// AdvisorMemory stores the advisor a referrer picked last. It runs inside the
// lead transaction.
type AdvisorMemory interface {
	SetLastChosenAdvisor(ctx context.Context, q db.Querier, userID, advisorID uuid.UUID) error
}

// Service handles lead management operations.
type Service struct {
	repo     Repository
	scope    Scope
	accounts Accounts
	memory   AdvisorMemory
	eventBus events.Bus
	metrics  *metrics.Metrics
	log      *logger.Logger
	now      func() time.Time
}

// New creates a new lead management service.
func New(repo Repository, scope Scope, acc Accounts, memory AdvisorMemory, eventBus events.Bus, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		scope:    scope,
		accounts: acc,
		memory:   memory,
		eventBus: eventBus,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

func (s *Service) ensureVisible(ctx context.Context, v access.Viewer, leadID uuid.UUID) error {
	ok, err := s.scope.CanViewLead(ctx, v, leadID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("lead not found")
	}
	return nil
}

func mapErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("lead not found")
	}
	return err
}

func normalizeClient(c domain.ClientData) (domain.ClientData, error) {
	c.FirstName = sanitize.Line(c.FirstName)
	c.LastName = sanitize.Line(c.LastName)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Phone = phone.NormalizeE164(c.Phone)
	switch {
	case c.FirstName == "" && c.LastName == "":
		return c, apperr.Validation("client name is required")
	case c.Phone == "":
		return c, apperr.Validation("client phone is required")
	case !phone.IsValid(c.Phone):
		return c, apperr.Validation("client phone is not a valid number")
	}
	return c, nil
}

// CreateInput is a new lead as submitted on the lead form.
type CreateInput struct {
	Client            domain.ClientData
	ReferrerID        *uuid.UUID
	AdvisorID         *uuid.UUID
	Description       string
	IsPersonalContact bool
	Note              string
}

type assignment struct {
	referrerID uuid.UUID
	advisorID  *uuid.UUID
	personal   bool
	// remember updates the referrer's sticky advisor default
	remember bool
}

func containsRef(refs []accounts.UserRef, id uuid.UUID) bool {
	for _, r := range refs {
		if r.ID == id {
			return true
		}
	}
	return false
}

// allowedAdvisors is the advisor pool of a referrer-side user, or every
// advisor when the pool is empty.
func (s *Service) allowedAdvisors(ctx context.Context, userID uuid.UUID) ([]accounts.UserRef, error) {
	pool, err := s.accounts.AdvisorPool(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(pool) > 0 {
		return pool, nil
	}
	return s.accounts.ListRefs(ctx, accounts.RoleAdvisor)
}

func (s *Service) referrerProfile(ctx context.Context, userID uuid.UUID) (accounts.ReferrerProfile, error) {
	p, err := s.accounts.GetReferrerProfile(ctx, userID)
	if apperr.Is(err, apperr.KindNotFound) {
		return accounts.ReferrerProfile{UserID: userID}, nil
	}
	return p, err
}

// defaultAdvisor is the preselected advisor of a referrer-side user: the
// profile default when still allowed, otherwise the only allowed advisor.
func (s *Service) defaultAdvisor(ctx context.Context, userID uuid.UUID, allowed []accounts.UserRef) (*uuid.UUID, error) {
	profile, err := s.referrerProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if id := profile.DefaultAdvisor(); id != nil && containsRef(allowed, *id) {
		return id, nil
	}
	if len(allowed) == 1 {
		id := allowed[0].ID
		return &id, nil
	}
	return nil, nil
}

func (s *Service) requireRole(ctx context.Context, id uuid.UUID, what string, ok func(accounts.Role) bool) error {
	u, err := s.accounts.GetUser(ctx, id)
	if apperr.Is(err, apperr.KindNotFound) {
		return apperr.Validation(what + " not found")
	}
	if err != nil {
		return err
	}
	if !u.IsActive || !ok(u.Role) {
		return apperr.Validation(what + " has the wrong role")
	}
	return nil
}

func isAdvisor(r accounts.Role) bool { return r == accounts.RoleAdvisor }

func canRefer(r accounts.Role) bool { return r.IsStructure() || r == accounts.RoleAdvisor }

func (s *Service) assign(ctx context.Context, v access.Viewer, in CreateInput) (assignment, error) {
	switch {
	case v.IsAdmin():
		return s.assignAsAdmin(ctx, in)

	case v.Role == accounts.RoleAdvisor:
		a := assignment{advisorID: &v.ID, personal: in.IsPersonalContact}
		if in.IsPersonalContact {
			a.referrerID = v.ID
			return a, nil
		}
		if in.ReferrerID == nil {
			return a, apperr.Validation("referrer is required")
		}
		if *in.ReferrerID == v.ID {
			return a, apperr.Validation("a lead referred by its advisor must be a personal contact")
		}
		referrers, err := s.accounts.ReferrersForAdvisor(ctx, v.ID)
		if err != nil {
			return a, err
		}
		if !containsRef(referrers, *in.ReferrerID) {
			return a, apperr.Validation("referrer does not work with this advisor")
		}
		a.referrerID = *in.ReferrerID
		return a, nil

	case v.Role.IsStructure():
		if in.IsPersonalContact {
			return assignment{}, apperr.Validation("only advisors can create personal contacts")
		}
		a := assignment{referrerID: v.ID, remember: true}
		allowed, err := s.allowedAdvisors(ctx, v.ID)
		if err != nil {
			return a, err
		}
		if in.AdvisorID != nil {
			if !containsRef(allowed, *in.AdvisorID) {
				return a, apperr.Validation("advisor is not in your advisor pool")
			}
			a.advisorID = in.AdvisorID
			return a, nil
		}
		if len(allowed) == 0 {
			return a, nil
		}
		a.advisorID, err = s.defaultAdvisor(ctx, v.ID, allowed)
		if err != nil {
			return a, err
		}
		if a.advisorID == nil {
			return a, apperr.Validation("advisor is required")
		}
		return a, nil
	}
	return assignment{}, apperr.Forbidden("you cannot create leads")
}

func (s *Service) assignAsAdmin(ctx context.Context, in CreateInput) (assignment, error) {
	a := assignment{personal: in.IsPersonalContact}
	if in.IsPersonalContact {
		if in.AdvisorID == nil {
			return a, apperr.Validation("a personal contact needs an advisor")
		}
		if err := s.requireRole(ctx, *in.AdvisorID, "advisor", isAdvisor); err != nil {
			return a, err
		}
		a.referrerID, a.advisorID = *in.AdvisorID, in.AdvisorID
		return a, nil
	}
	if in.ReferrerID == nil {
		return a, apperr.Validation("referrer is required")
	}
	if err := s.requireRole(ctx, *in.ReferrerID, "referrer", canRefer); err != nil {
		return a, err
	}
	a.referrerID = *in.ReferrerID
	if in.AdvisorID != nil {
		if err := s.requireRole(ctx, *in.AdvisorID, "advisor", isAdvisor); err != nil {
			return a, err
		}
		a.advisorID = in.AdvisorID
	}
	return a, nil
}

// Create stores a new lead in status NEW and resolves its referrer and
// advisor from the creator's role.
func (s *Service) Create(ctx context.Context, v access.Viewer, in CreateInput) (Detail, error) {
	if !access.CanCreateLead(v) {
		return Detail{}, apperr.Forbidden("you cannot create leads")
	}
	client, err := normalizeClient(in.Client)
	if err != nil {
		return Detail{}, err
	}
	a, err := s.assign(ctx, v, in)
	if err != nil {
		return Detail{}, err
	}

	now := s.now()
	lead := domain.Lead{
		ID:                uuid.New(),
		Client:            client,
		ReferrerID:        a.referrerID,
		AdvisorID:         a.advisorID,
		Description:       sanitize.Text(in.Description),
		IsPersonalContact: a.personal,
		Status:            domain.StatusNew,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	rec := history.NewRecorder(lead.ID, &v.ID, now)
	rec.Entry(domain.HistoryCreated, history.LeadCreated)
	if note := strings.TrimSpace(in.Note); note != "" {
		rec.Note(note, false, history.NoteAdded(false, ""))
	}

	var hooks []repository.TxHook
	if a.remember && a.advisorID != nil && s.memory != nil {
		advisorID := *a.advisorID
		hooks = append(hooks, func(ctx context.Context, q db.Querier) error {
			return s.memory.SetLastChosenAdvisor(ctx, q, v.ID, advisorID)
		})
	}
	if err := s.repo.CreateLead(ctx, lead, repository.LeadMutation{Notes: rec.Notes, History: rec.Entries}, hooks...); err != nil {
		return Detail{}, err
	}

	s.log.Info("lead created", "leadId", lead.ID, "referrerId", lead.ReferrerID, "personal", lead.IsPersonalContact)
	s.eventBus.Publish(ctx, events.LeadCreated{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		ReferrerID: lead.ReferrerID,
		AdvisorID:  lead.AdvisorID,
		ActorID:    &v.ID,
		ClientName: lead.Client.FullName(),
	})
	return s.detail(ctx, v, lead)
}

// UpdateInput is a partial lead edit; nil fields are left alone.
type UpdateInput struct {
	Client      *domain.ClientData
	Description *string
	AdvisorID   *uuid.UUID
	Status      *domain.CommunicationStatus
}

// Update edits a visible lead. The communication status may only be set by
// staff and only to a manual status; a client change is copied to every deal
// of the lead.
func (s *Service) Update(ctx context.Context, v access.Viewer, leadID uuid.UUID, in UpdateInput) (Detail, error) {
	if err := s.ensureVisible(ctx, v, leadID); err != nil {
		return Detail{}, err
	}
	if in.Status != nil && !access.CanEditLeadStatus(v) {
		return Detail{}, apperr.Forbidden("only advisors and admins can change the lead status")
	}
	if in.AdvisorID != nil {
		if !v.IsAdmin() {
			return Detail{}, apperr.Forbidden("only admins can reassign the advisor")
		}
		if err := s.requireRole(ctx, *in.AdvisorID, "advisor", isAdvisor); err != nil {
			return Detail{}, err
		}
	}
	var client *domain.ClientData
	if in.Client != nil {
		c, err := normalizeClient(*in.Client)
		if err != nil {
			return Detail{}, err
		}
		client = &c
	}

	var changes domain.LeadChanges
	lead, err := s.repo.MutateLead(ctx, leadID, func(lead *domain.Lead, _ int) (repository.LeadMutation, error) {
		before := *lead
		if client != nil {
			lead.Client = *client
		}
		if in.Description != nil {
			lead.Description = sanitize.Text(*in.Description)
		}
		if in.AdvisorID != nil && (lead.AdvisorID == nil || *lead.AdvisorID != *in.AdvisorID) {
			if lead.IsPersonalContact {
				return repository.LeadMutation{}, apperr.Validation("the advisor of a personal contact cannot change")
			}
			id := *in.AdvisorID
			lead.AdvisorID = &id
		}
		if in.Status != nil {
			if reason := domain.ValidateStatusEdit(lead.Status, *in.Status); reason != "" {
				return repository.LeadMutation{}, apperr.Validation(reason)
			}
			lead.Status = *in.Status
		}

		changes = domain.DiffLead(before, *lead)
		if changes.Empty() {
			return repository.LeadMutation{}, repository.ErrUnchanged
		}
		rec := history.NewRecorder(lead.ID, &v.ID, s.now())
		rec.Entry(changes.EventType(), changes.Describe())
		return repository.LeadMutation{History: rec.Entries, SyncClient: changes.ClientChanged}, nil
	})
	if errors.Is(err, repository.ErrUnchanged) {
		current, err := s.repo.GetLead(ctx, leadID)
		if err != nil {
			return Detail{}, mapErr(err)
		}
		return s.detail(ctx, v, current)
	}
	if err != nil {
		return Detail{}, mapErr(err)
	}

	if changes.Status.Changed() {
		s.log.LeadTransition(lead.ID.String(), "edit_status", string(changes.Status.From), string(changes.Status.To))
		s.metrics.LeadTransition("edit_status")
	}
	s.eventBus.Publish(ctx, events.LeadUpdated{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        lead.ID,
		ActorID:       &v.ID,
		Fields:        changes.Fields,
		StatusFrom:    string(changes.Status.From),
		StatusTo:      string(changes.Status.To),
		ClientChanged: changes.ClientChanged,
	})
	return s.detail(ctx, v, lead)
}

// Permissions are the actions the lead detail offers the viewer.
type Permissions struct {
	CanEditStatus       bool `json:"canEditStatus"`
	CanReassignAdvisor  bool `json:"canReassignAdvisor"`
	CanScheduleMeeting  bool `json:"canScheduleMeeting"`
	CanScheduleCallback bool `json:"canScheduleCallback"`
	CanCreateDeal       bool `json:"canCreateDeal"`
}

// Detail is a lead with its structure, visible deals and allowed actions.
type Detail struct {
	Lead             domain.Lead
	Hierarchy        accounts.Hierarchy
	Advisor          *accounts.UserRef
	Deals            []domain.Deal
	EditableStatuses []domain.CommunicationStatus
	Permissions      Permissions
}

func (s *Service) detail(ctx context.Context, v access.Viewer, lead domain.Lead) (Detail, error) {
	h, err := s.accounts.Hierarchy(ctx, lead.ReferrerID)
	if err != nil {
		return Detail{}, err
	}
	d := Detail{Lead: lead, Hierarchy: h}

	if lead.AdvisorID != nil {
		advisor, err := s.accounts.GetUser(ctx, *lead.AdvisorID)
		switch {
		case err == nil:
			ref := advisor.Ref()
			d.Advisor = &ref
		case !apperr.Is(err, apperr.KindNotFound):
			return Detail{}, err
		}
	}

	deals, err := s.repo.ListDealsForLead(ctx, lead.ID)
	if err != nil {
		return Detail{}, err
	}
	hide := access.RuleFor(v).HidesPersonalDeals()
	d.Deals = make([]domain.Deal, 0, len(deals))
	for _, deal := range deals {
		if hide && deal.IsPersonalDeal {
			continue
		}
		d.Deals = append(d.Deals, deal)
	}

	d.Permissions = Permissions{
		CanEditStatus:       access.CanEditLeadStatus(v),
		CanReassignAdvisor:  v.IsAdmin() && !lead.IsPersonalContact,
		CanScheduleMeeting:  access.CanScheduleMeeting(v) && !lead.Status.IsAutomatic(),
		CanScheduleCallback: access.CanScheduleCallback(v, lead, h) && !lead.Status.IsAutomatic(),
		CanCreateDeal:       access.CanCreateDeal(v),
	}
	if d.Permissions.CanEditStatus {
		d.EditableStatuses = domain.EditableStatuses(lead.Status)
	}
	return d, nil
}

// Get returns a visible lead.
func (s *Service) Get(ctx context.Context, v access.Viewer, leadID uuid.UUID) (Detail, error) {
	if err := s.ensureVisible(ctx, v, leadID); err != nil {
		return Detail{}, err
	}
	lead, err := s.repo.GetLead(ctx, leadID)
	if err != nil {
		return Detail{}, mapErr(err)
	}
	return s.detail(ctx, v, lead)
}

type ListResult struct {
	Items      []repository.LeadRow
	Total      int
	Page       int
	PageSize   int
	TotalPages int
	Params     listing.Params
	KeepQuery  string
	Columns    access.Columns
}

// advisorFilterDropped is true when a referrer's leads all share one advisor.
func (s *Service) advisorFilterDropped(ctx context.Context, v access.Viewer, scope access.Scope) (bool, error) {
	if !listing.DropsAdvisorFilter(v, access.ContextLeads) {
		return false, nil
	}
	n, err := s.repo.CountDistinctAdvisors(ctx, listing.ScopeQuery(scope))
	if err != nil {
		return false, err
	}
	return n < 2, nil
}

// List returns the leads visible to v, filtered and sorted by query.
func (s *Service) List(ctx context.Context, v access.Viewer, query url.Values) (ListResult, error) {
	params := listing.Parse(query, v, access.ContextLeads)
	scope := s.scope.LeadScope(v, "l", 1)

	drop, err := s.advisorFilterDropped(ctx, v, scope)
	if err != nil {
		return ListResult{}, err
	}
	if drop {
		params = params.Without(access.FilterAdvisor)
	}

	rows, total, err := s.repo.ListLeads(ctx, listing.LeadQuery(scope, params))
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{
		Items:      rows,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: params.TotalPages(total),
		Params:     params,
		KeepQuery:  listing.KeepQuery(params),
		Columns:    access.ColumnVisibility(v),
	}, nil
}

// FilterOptions returns the leads filter bar for v.
func (s *Service) FilterOptions(ctx context.Context, v access.Viewer) (listing.Options, error) {
	scope := s.scope.LeadScope(v, "l", 1)
	allowed := access.AllowedFilters(v, access.ContextLeads)

	drop, err := s.advisorFilterDropped(ctx, v, scope)
	if err != nil {
		return listing.Options{}, err
	}
	if drop {
		allowed = slices.DeleteFunc(allowed, func(f string) bool { return f == access.FilterAdvisor })
	}

	refs, err := s.repo.FilterOptions(ctx, listing.ScopeQuery(scope), false)
	if err != nil {
		return listing.Options{}, err
	}
	return listing.BuildOptions(v, access.ContextLeads, allowed, refs), nil
}

// FormOptions is what the new-lead form offers v.
type FormOptions struct {
	Advisors              []accounts.UserRef
	DefaultAdvisorID      *uuid.UUID
	Referrers             []accounts.UserRef
	CanChooseReferrer     bool
	CanSetPersonalContact bool
	Statuses              []domain.CommunicationStatus
}

func (s *Service) FormOptions(ctx context.Context, v access.Viewer) (FormOptions, error) {
	if !access.CanCreateLead(v) {
		return FormOptions{}, apperr.Forbidden("you cannot create leads")
	}
	opts := FormOptions{Statuses: domain.ManualStatuses}

	var err error
	switch {
	case v.IsAdmin():
		opts.CanChooseReferrer, opts.CanSetPersonalContact = true, true
		if opts.Advisors, err = s.accounts.ListRefs(ctx, accounts.RoleAdvisor); err != nil {
			return FormOptions{}, err
		}
		opts.Referrers, err = s.accounts.ListRefs(ctx,
			accounts.RoleReferrer, accounts.RoleReferrerManager, accounts.RoleOffice, accounts.RoleAdvisor)

	case v.Role == accounts.RoleAdvisor:
		opts.CanChooseReferrer, opts.CanSetPersonalContact = true, true
		opts.Referrers, err = s.accounts.ReferrersForAdvisor(ctx, v.ID)

	default:
		if opts.Advisors, err = s.allowedAdvisors(ctx, v.ID); err != nil {
			return FormOptions{}, err
		}
		opts.DefaultAdvisorID, err = s.defaultAdvisor(ctx, v.ID, opts.Advisors)
	}
	if err != nil {
		return FormOptions{}, err
	}
	return opts, nil
}
