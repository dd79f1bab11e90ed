// Package stats serves the lead funnel statistics per advisor, referrer,
// manager team and office.
package stats

import (
	accountssvc "leadbridge/internal/accounts/service"
	apphttp "leadbridge/internal/http"
	"leadbridge/internal/stats/handler"
	"leadbridge/internal/stats/repository"
	"leadbridge/internal/stats/service"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
}

func NewModule(pool *pgxpool.Pool, acc *accountssvc.Service) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, acc)
	return &Module{handler: handler.New(svc, acc)}
}

func (m *Module) Name() string {
	return "stats"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/stats"))
}

var _ apphttp.Module = (*Module)(nil)
