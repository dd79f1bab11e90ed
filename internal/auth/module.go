// Package auth provides the authentication bounded context module.
package auth

import (
	accountsrepo "leadbridge/internal/accounts/repository"
	"leadbridge/internal/auth/handler"
	"leadbridge/internal/auth/repository"
	"leadbridge/internal/auth/service"
	"leadbridge/internal/events"
	apphttp "leadbridge/internal/http"
	"leadbridge/platform/config"
	"leadbridge/platform/logger"
	"leadbridge/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the auth bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, users *accountsrepo.Repository, cfg config.AuthServiceConfig, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(users, repository.New(pool), cfg, eventBus, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

func (m *Module) Name() string {
	return "auth"
}

func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public auth routes with stricter rate limiting
	authGroup := ctx.V1.Group("/auth")
	authGroup.Use(ctx.AuthRateLimiter.RateLimit())
	m.handler.RegisterRoutes(authGroup)

	ctx.Protected.POST("/auth/sign-out", m.handler.SignOut)
	ctx.Protected.GET("/auth/me", m.handler.GetMe)
}

var _ apphttp.Module = (*Module)(nil)
