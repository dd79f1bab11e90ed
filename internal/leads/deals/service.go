// Package deals handles deal creation, edits and commission payout.
// This is a vertically sliced feature package: deal mutations lock the deal
// and its lead, keep both consistent, write history in the same transaction
// and publish an event after commit.
package deals

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"leadbridge/internal/access"
	accounts "leadbridge/internal/accounts/domain"
	"leadbridge/internal/commission"
	"leadbridge/internal/events"
	"leadbridge/internal/history"
	"leadbridge/internal/leads/domain"
	"leadbridge/internal/leads/repository"
	"leadbridge/internal/listing"
	"leadbridge/platform/apperr"
	"leadbridge/platform/logger"
	"leadbridge/platform/metrics"

	"github.com/google/uuid"
)

// Repository defines the data access interface needed by the deals service.
type Repository interface {
	repository.LeadReader
	repository.LeadWriter
	repository.DealStore
	repository.ListStore
}

// Scope is the part of the access service deals depend on.
type Scope interface {
	CanViewLead(ctx context.Context, v access.Viewer, leadID uuid.UUID) (bool, error)
	CanViewDeal(ctx context.Context, v access.Viewer, dealID uuid.UUID) (bool, error)
	DealScope(v access.Viewer, leadAlias, dealAlias string, argIdx int) access.Scope
}

// Accounts resolves the people a commission depends on.
type Accounts interface {
	Hierarchy(ctx context.Context, referrerID uuid.UUID) (accounts.Hierarchy, error)
	GetUser(ctx context.Context, id uuid.UUID) (accounts.User, error)
}

type Service struct {
	repo     Repository
	scope    Scope
	accounts Accounts
	eventBus events.Bus
	metrics  *metrics.Metrics
	log      *logger.Logger
	now      func() time.Time
}

func New(repo Repository, scope Scope, acc Accounts, eventBus events.Bus, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		scope:    scope,
		accounts: acc,
		eventBus: eventBus,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrDealNotFound):
		return apperr.NotFound("deal not found")
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("lead not found")
	}
	return err
}

func (s *Service) ensureDealVisible(ctx context.Context, v access.Viewer, dealID uuid.UUID) error {
	ok, err := s.scope.CanViewDeal(ctx, v, dealID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("deal not found")
	}
	return nil
}

// Input is a new deal. The client is copied from the lead.
type Input struct {
	LoanAmount     int64
	Bank           domain.Bank
	PropertyType   domain.PropertyType
	Status         domain.DealStatus
	IsPersonalDeal *bool
	Note           string
}

func (in *Input) validate() error {
	if in.Status == "" {
		in.Status = domain.DealRequestInBank
	}
	switch {
	case in.LoanAmount <= 0:
		return apperr.Validation("loan amount must be positive")
	case !in.Bank.Valid():
		return apperr.Validation("unknown bank")
	case !in.PropertyType.Valid():
		return apperr.Validation("unknown property type")
	case !in.Status.Valid():
		return apperr.Validation("unknown deal status")
	}
	return nil
}

// pricing is what commission needs besides the deal and the lead.
type pricing struct {
	hierarchy accounts.Hierarchy
	terms     *accounts.AdvisorTerms
}

func (s *Service) pricingFor(ctx context.Context, lead domain.Lead) (pricing, error) {
	h, err := s.accounts.Hierarchy(ctx, lead.ReferrerID)
	if err != nil {
		return pricing{}, err
	}
	p := pricing{hierarchy: h}
	if lead.AdvisorID != nil {
		advisor, err := s.accounts.GetUser(ctx, *lead.AdvisorID)
		if err != nil {
			return pricing{}, err
		}
		p.terms = &advisor.Advisor
	}
	return p, nil
}

func (p pricing) snapshot(lead domain.Lead, deal domain.Deal) domain.StoredCommission {
	rates := p.hierarchy.ReferrerRates
	in := commission.NewInput(lead, deal, &rates, p.terms)
	return commission.Calculate(in, deal.Paid, p.hierarchy).Stored()
}

// CreateDeal opens a deal for a lead and moves the lead to DEAL_CREATED.
func (s *Service) CreateDeal(ctx context.Context, v access.Viewer, leadID uuid.UUID, in Input) (Detail, error) {
	if !access.CanCreateDeal(v) {
		return Detail{}, apperr.Forbidden("only advisors and admins can create deals")
	}
	if err := in.validate(); err != nil {
		return Detail{}, err
	}
	ok, err := s.scope.CanViewLead(ctx, v, leadID)
	if err != nil {
		return Detail{}, err
	}
	if !ok {
		return Detail{}, apperr.NotFound("lead not found")
	}

	current, err := s.repo.GetLead(ctx, leadID)
	if err != nil {
		return Detail{}, mapErr(err)
	}
	p, err := s.pricingFor(ctx, current)
	if err != nil {
		return Detail{}, err
	}

	note := strings.TrimSpace(in.Note)
	var (
		deal domain.Deal
		t    domain.Transition
	)
	lead, err := s.repo.MutateLead(ctx, leadID, func(lead *domain.Lead, existingDeals int) (repository.LeadMutation, error) {
		now := s.now()
		personal, editable := domain.PersonalDealDefault(lead.IsPersonalContact, existingDeals)
		if editable && in.IsPersonalDeal != nil {
			personal = *in.IsPersonalDeal
		}
		deal = domain.Deal{
			ID:               uuid.New(),
			LeadID:           lead.ID,
			Client:           lead.Client,
			LoanAmount:       in.LoanAmount,
			Bank:             in.Bank,
			PropertyType:     in.PropertyType,
			Status:           in.Status,
			CommissionStatus: domain.CommissionPending,
			IsPersonalDeal:   personal,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		deal.Commission = p.snapshot(*lead, deal)

		rec := history.NewRecorder(lead.ID, &v.ID, now)
		rec.Entry(domain.HistoryDealCreated, history.DealCreated)
		if note != "" {
			rec.Note(note, false, history.DealNoteAdded)
		}
		t = lead.MarkDealCreated(now)
		if t.Changed() {
			rec.Entry(domain.HistoryStatusChanged, history.LeadToDealCreated)
		}
		return repository.LeadMutation{NewDeal: &deal, Notes: rec.Notes, History: rec.Entries}, nil
	})
	if err != nil {
		return Detail{}, mapErr(err)
	}

	s.log.LeadTransition(lead.ID.String(), "create_deal", string(t.From), string(t.To))
	s.metrics.LeadTransition("create_deal")
	s.metrics.DealCreated()
	s.eventBus.Publish(ctx, events.DealCreated{
		BaseEvent:  events.NewBaseEvent(),
		DealID:     deal.ID,
		LeadID:     lead.ID,
		ActorID:    &v.ID,
		LoanAmount: deal.LoanAmount,
		Bank:       string(deal.Bank),
	})
	return s.view(ctx, v, lead, deal, p.hierarchy)
}

// Patch is a partial deal edit; nil fields are left alone.
type Patch struct {
	Client         *domain.ClientData
	LoanAmount     *int64
	Bank           *domain.Bank
	PropertyType   *domain.PropertyType
	Status         *domain.DealStatus
	IsPersonalDeal *bool
	Note           string
}

func (p Patch) apply(d *domain.Deal) error {
	if p.Client != nil {
		d.Client = *p.Client
	}
	if p.LoanAmount != nil {
		if *p.LoanAmount <= 0 {
			return apperr.Validation("loan amount must be positive")
		}
		d.LoanAmount = *p.LoanAmount
	}
	if p.Bank != nil {
		if !p.Bank.Valid() {
			return apperr.Validation("unknown bank")
		}
		d.Bank = *p.Bank
	}
	if p.PropertyType != nil {
		if !p.PropertyType.Valid() {
			return apperr.Validation("unknown property type")
		}
		d.PropertyType = *p.PropertyType
	}
	if p.Status != nil {
		if reason := domain.ValidateDealStatusTransition(d.Status, *p.Status); reason != "" {
			return apperr.Validation(reason)
		}
		d.Status = *p.Status
	}
	if p.IsPersonalDeal != nil {
		d.IsPersonalDeal = *p.IsPersonalDeal
	}
	return nil
}

// UpdateDeal applies a patch. A client change is copied to the lead and the
// lead's other deals. The commission snapshot follows the deal until the
// commission leaves PENDING.
func (s *Service) UpdateDeal(ctx context.Context, v access.Viewer, dealID uuid.UUID, patch Patch) (Detail, error) {
	if !access.CanCreateDeal(v) {
		return Detail{}, apperr.Forbidden("only advisors and admins can edit deals")
	}
	if err := s.ensureDealVisible(ctx, v, dealID); err != nil {
		return Detail{}, err
	}
	current, err := s.repo.GetDeal(ctx, dealID)
	if err != nil {
		return Detail{}, mapErr(err)
	}
	parent, err := s.repo.GetLead(ctx, current.LeadID)
	if err != nil {
		return Detail{}, mapErr(err)
	}
	p, err := s.pricingFor(ctx, parent)
	if err != nil {
		return Detail{}, err
	}
	if patch.IsPersonalDeal != nil && *patch.IsPersonalDeal != current.IsPersonalDeal {
		editable, err := s.personalEditable(ctx, parent, current.ID)
		if err != nil {
			return Detail{}, err
		}
		if !editable {
			return Detail{}, apperr.Validation("is_personal_deal is fixed for this deal")
		}
	}

	note := strings.TrimSpace(patch.Note)
	var (
		before domain.Deal
		fields []string
	)
	deal, lead, err := s.repo.MutateDeal(ctx, dealID, func(lead *domain.Lead, d *domain.Deal) (repository.DealMutation, error) {
		before = *d
		if err := patch.apply(d); err != nil {
			return repository.DealMutation{}, err
		}
		var clientChanged bool
		fields, clientChanged = domain.DiffDeal(before, *d)
		if len(fields) == 0 && note == "" {
			return repository.DealMutation{}, repository.ErrUnchanged
		}
		if d.CommissionStatus == domain.CommissionPending {
			d.Commission = p.snapshot(*lead, *d)
		}

		rec := history.NewRecorder(lead.ID, &v.ID, s.now())
		if note != "" {
			rec.Note(note, false, history.DealNoteAdded)
		}
		if len(fields) > 0 {
			rec.Entry(domain.HistoryUpdated, history.DealUpdated(fields))
		}
		return repository.DealMutation{Notes: rec.Notes, History: rec.Entries, SyncClient: clientChanged}, nil
	})
	if errors.Is(err, repository.ErrUnchanged) {
		return s.view(ctx, v, parent, current, p.hierarchy)
	}
	if err != nil {
		return Detail{}, mapErr(err)
	}

	s.eventBus.Publish(ctx, events.DealUpdated{
		BaseEvent:  events.NewBaseEvent(),
		DealID:     deal.ID,
		LeadID:     lead.ID,
		ActorID:    &v.ID,
		Fields:     fields,
		StatusFrom: string(before.Status),
		StatusTo:   string(deal.Status),
	})
	return s.view(ctx, v, lead, deal, p.hierarchy)
}

// MarkCommissionReady moves the commission from PENDING to READY.
func (s *Service) MarkCommissionReady(ctx context.Context, v access.Viewer, dealID uuid.UUID) (Detail, error) {
	if !access.CanManageCommission(v) {
		return Detail{}, apperr.Forbidden("only advisors and admins can manage commissions")
	}
	if err := s.ensureDealVisible(ctx, v, dealID); err != nil {
		return Detail{}, err
	}

	deal, lead, err := s.repo.MutateDeal(ctx, dealID, func(lead *domain.Lead, d *domain.Deal) (repository.DealMutation, error) {
		if reason := d.MarkCommissionReady(); reason != "" {
			return repository.DealMutation{}, apperr.Validation(reason)
		}
		rec := history.NewRecorder(lead.ID, &v.ID, s.now())
		rec.Entry(domain.HistoryUpdated, history.CommissionReady)
		return repository.DealMutation{History: rec.Entries}, nil
	})
	if err != nil {
		return Detail{}, mapErr(err)
	}

	h, err := s.accounts.Hierarchy(ctx, lead.ReferrerID)
	if err != nil {
		return Detail{}, err
	}
	s.eventBus.Publish(ctx, events.CommissionReady{BaseEvent: events.NewBaseEvent(), DealID: deal.ID, LeadID: lead.ID, ActorID: &v.ID})
	return s.view(ctx, v, lead, deal, h)
}

func partAmount(c domain.StoredCommission, part domain.CommissionPart) int64 {
	switch part {
	case domain.PartManager:
		return c.Manager
	case domain.PartOffice:
		return c.Office
	default:
		return c.Referrer
	}
}

func partPaid(p domain.PaidFlags, part domain.CommissionPart) bool {
	switch part {
	case domain.PartManager:
		return p.Manager
	case domain.PartOffice:
		return p.Office
	default:
		return p.Referrer
	}
}

// MarkCommissionPaid records the payout of one tier. When every tier present
// in the hierarchy is paid, the lead moves to COMMISSION_PAID in the same
// transaction.
func (s *Service) MarkCommissionPaid(ctx context.Context, v access.Viewer, dealID uuid.UUID, part domain.CommissionPart) (Detail, error) {
	if !access.CanManageCommission(v) {
		return Detail{}, apperr.Forbidden("only advisors and admins can manage commissions")
	}
	if !part.Valid() {
		return Detail{}, apperr.Validation("unknown commission part")
	}
	if err := s.ensureDealVisible(ctx, v, dealID); err != nil {
		return Detail{}, err
	}
	current, err := s.repo.GetDeal(ctx, dealID)
	if err != nil {
		return Detail{}, mapErr(err)
	}
	parent, err := s.repo.GetLead(ctx, current.LeadID)
	if err != nil {
		return Detail{}, mapErr(err)
	}
	h, err := s.accounts.Hierarchy(ctx, parent.ReferrerID)
	if err != nil {
		return Detail{}, err
	}
	switch {
	case part == domain.PartManager && !h.HasManager():
		return Detail{}, apperr.Validation("the referrer has no manager")
	case part == domain.PartOffice && !h.HasOffice():
		return Detail{}, apperr.Validation("the referrer's manager has no office")
	}

	var (
		allPaid bool
		t       domain.Transition
	)
	deal, lead, err := s.repo.MutateDeal(ctx, dealID, func(lead *domain.Lead, d *domain.Deal) (repository.DealMutation, error) {
		if partPaid(d.Paid, part) {
			return repository.DealMutation{}, apperr.Conflict("commission part already paid")
		}
		if reason := d.MarkPartPaid(part); reason != "" {
			return repository.DealMutation{}, apperr.Validation(reason)
		}
		rec := history.NewRecorder(lead.ID, &v.ID, s.now())
		rec.Entry(domain.HistoryUpdated, history.CommissionPaid(part))

		m := repository.DealMutation{}
		allPaid = commission.AllCommissionsPaid(d.Paid, h)
		if allPaid && lead.Status != domain.StatusCommissionPaid {
			t = lead.MarkCommissionPaid()
			rec.Entry(domain.HistoryStatusChanged, history.LeadCommissionPaid)
			m.LeadChanged = true
		}
		m.History = rec.Entries
		return m, nil
	})
	if err != nil {
		return Detail{}, mapErr(err)
	}

	if t.Changed() {
		s.log.LeadTransition(lead.ID.String(), "commission_paid", string(t.From), string(t.To))
		s.metrics.LeadTransition("commission_paid")
	}
	s.eventBus.Publish(ctx, events.CommissionPaid{
		BaseEvent:   events.NewBaseEvent(),
		DealID:      deal.ID,
		LeadID:      lead.ID,
		ActorID:     &v.ID,
		Part:        string(part),
		Amount:      partAmount(deal.Commission, part),
		AllPaid:     allPaid,
		LeadPaidOut: t.Changed(),
	})
	return s.view(ctx, v, lead, deal, h)
}

// Detail is a deal with its lead and the commission as the viewer sees it.
type Detail struct {
	Deal       domain.Deal
	Lead       domain.Lead
	Hierarchy  accounts.Hierarchy
	Commission commission.Breakdown
	// Own is the viewer's personal share of the structure split.
	Own int64
	// ShowAdvisorCommission is false for the structure.
	ShowAdvisorCommission bool
	CanManageCommission   bool
	// PersonalDealEditable is whether the advisor may flip is_personal_deal.
	PersonalDealEditable bool
}

// personalEditable applies the is_personal_deal rule to an existing deal:
// fixed on personal contacts and on the lead's first deal.
func (s *Service) personalEditable(ctx context.Context, lead domain.Lead, dealID uuid.UUID) (bool, error) {
	if lead.IsPersonalContact {
		return false, nil
	}
	siblings, err := s.repo.ListDealsForLead(ctx, lead.ID)
	if err != nil {
		return false, err
	}
	if len(siblings) == 0 {
		return true, nil
	}
	first := siblings[0]
	for _, d := range siblings[1:] {
		if d.CreatedAt.Before(first.CreatedAt) {
			first = d
		}
	}
	return first.ID != dealID, nil
}

func (s *Service) view(ctx context.Context, v access.Viewer, lead domain.Lead, deal domain.Deal, h accounts.Hierarchy) (Detail, error) {
	editable, err := s.personalEditable(ctx, lead, deal.ID)
	if err != nil {
		return Detail{}, err
	}
	b := commission.FromStored(deal.Commission, deal.Paid, h)
	return Detail{
		Deal:                  deal,
		Lead:                  lead,
		Hierarchy:             h,
		Commission:            b,
		Own:                   commission.OwnFromParts(b.Parts, h, v.ID),
		ShowAdvisorCommission: v.IsAdmin() || v.Role == accounts.RoleAdvisor,
		CanManageCommission:   access.CanManageCommission(v),
		PersonalDealEditable:  access.CanCreateDeal(v) && editable,
	}, nil
}

// GetDeal returns a visible deal.
func (s *Service) GetDeal(ctx context.Context, v access.Viewer, dealID uuid.UUID) (Detail, error) {
	if err := s.ensureDealVisible(ctx, v, dealID); err != nil {
		return Detail{}, err
	}
	deal, err := s.repo.GetDeal(ctx, dealID)
	if err != nil {
		return Detail{}, mapErr(err)
	}
	lead, err := s.repo.GetLead(ctx, deal.LeadID)
	if err != nil {
		return Detail{}, mapErr(err)
	}
	h, err := s.accounts.Hierarchy(ctx, lead.ReferrerID)
	if err != nil {
		return Detail{}, err
	}
	return s.view(ctx, v, lead, deal, h)
}

// ListItem is one deals list row with the viewer's share.
type ListItem struct {
	Row     repository.DealRow
	Own     int64
	AllPaid bool
}

type ListResult struct {
	Items      []ListItem
	Total      int
	Page       int
	PageSize   int
	TotalPages int
	Params     listing.Params
	KeepQuery  string
	Columns    access.Columns
}

// List returns the deals visible to v, filtered and sorted by query.
func (s *Service) List(ctx context.Context, v access.Viewer, query url.Values) (ListResult, error) {
	params := listing.Parse(query, v, access.ContextDeals)
	scope := s.scope.DealScope(v, "l", "d", 1)

	rows, total, err := s.repo.ListDeals(ctx, listing.DealQuery(v, scope, params))
	if err != nil {
		return ListResult{}, err
	}

	items := make([]ListItem, len(rows))
	for i, row := range rows {
		h := row.Hierarchy()
		b := commission.FromStored(row.Deal.Commission, row.Deal.Paid, h)
		items[i] = ListItem{Row: row, Own: commission.OwnFromParts(b.Parts, h, v.ID), AllPaid: b.AllPaid}
	}
	return ListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: params.TotalPages(total),
		Params:     params,
		KeepQuery:  listing.KeepQuery(params),
		Columns:    access.ColumnVisibility(v),
	}, nil
}

// FilterOptions returns the deals filter bar for v.
func (s *Service) FilterOptions(ctx context.Context, v access.Viewer) (listing.Options, error) {
	allowed := access.AllowedFilters(v, access.ContextDeals)
	scope := s.scope.DealScope(v, "l", "d", 1)
	refs, err := s.repo.FilterOptions(ctx, listing.ScopeQuery(scope), true)
	if err != nil {
		return listing.Options{}, err
	}
	return listing.BuildOptions(v, access.ContextDeals, allowed, refs), nil
}
