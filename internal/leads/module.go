// Package leads provides the leads and deals bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"leadbridge/internal/access"
	accountsrepo "leadbridge/internal/accounts/repository"
	accountssvc "leadbridge/internal/accounts/service"
	"leadbridge/internal/events"
	apphttp "leadbridge/internal/http"
	"leadbridge/internal/leads/deals"
	"leadbridge/internal/leads/handler"
	"leadbridge/internal/leads/lifecycle"
	"leadbridge/internal/leads/management"
	"leadbridge/internal/leads/notes"
	"leadbridge/internal/leads/repository"
	"leadbridge/platform/logger"
	"leadbridge/platform/metrics"
	"leadbridge/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler      *handler.Handler
	dealsHandler *handler.DealsHandler
	repository   *repository.Repository
	access       *access.Service
	management   *management.Service
	lifecycle    *lifecycle.Service
	deals        *deals.Service
	notes        *notes.Service
}

// NewModule creates and initializes the leads module with all its dependencies.
// The accounts service resolves viewers and hierarchies; the accounts
// repository takes part in the lead creation transaction.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, acc *accountssvc.Service, accRepo *accountsrepo.Repository, val *validator.Validator, m *metrics.Metrics, log *logger.Logger) *Module {
	repo := repository.New(pool)
	scope := access.New(repo)

	// Create focused services (vertical slices)
	mgmtSvc := management.New(repo, scope, acc, accRepo, eventBus, m, log)
	lifecycleSvc := lifecycle.New(repo, scope, acc, eventBus, m, log)
	dealsSvc := deals.New(repo, scope, acc, eventBus, m, log)
	notesSvc := notes.New(repo, scope, eventBus)

	// Create handlers
	dealsHandler := handler.NewDealsHandler(dealsSvc, acc, val)
	notesHandler := handler.NewNotesHandler(notesSvc, acc, val)
	h := handler.New(mgmtSvc, lifecycleSvc, notesHandler, dealsHandler, acc, val)

	return &Module{
		handler:      h,
		dealsHandler: dealsHandler,
		repository:   repo,
		access:       scope,
		management:   mgmtSvc,
		lifecycle:    lifecycleSvc,
		deals:        dealsSvc,
		notes:        notesSvc,
	}
}

// NewLifecycle builds only the lifecycle service, for the batch commands
// that need no HTTP surface.
func NewLifecycle(pool *pgxpool.Pool, eventBus events.Bus, acc lifecycle.HierarchyProvider, m *metrics.Metrics, log *logger.Logger) *lifecycle.Service {
	repo := repository.New(pool)
	return lifecycle.New(repo, access.New(repo), acc, eventBus, m, log)
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Access returns the visibility service, shared with statistics.
func (m *Module) Access() *access.Service {
	return m.access
}

// Repository returns the leads repository for notification lookups.
func (m *Module) Repository() *repository.Repository {
	return m.repository
}

// LifecycleService returns the meeting and callback service for the scheduler.
func (m *Module) LifecycleService() *lifecycle.Service {
	return m.lifecycle
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// All leads routes require authentication
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
	m.dealsHandler.RegisterRoutes(ctx.Protected.Group("/deals"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
