// Package accounts is the users and structure bounded context: user
// administration, referrer/manager profiles and offices.
package accounts

import (
	"leadbridge/internal/accounts/handler"
	"leadbridge/internal/accounts/repository"
	"leadbridge/internal/accounts/service"
	"leadbridge/internal/events"
	apphttp "leadbridge/internal/http"
	"leadbridge/platform/logger"
	"leadbridge/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler    *handler.Handler
	service    *service.Service
	repository *repository.Repository
}

func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, eventBus, log)
	return &Module{handler: handler.New(svc, val), service: svc, repository: repo}
}

func (m *Module) Name() string {
	return "accounts"
}

// Service is shared with the leads, stats and notification modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository is shared with auth and the lead creation transaction.
func (m *Module) Repository() *repository.Repository {
	return m.repository
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Admin)
}

var _ apphttp.Module = (*Module)(nil)
