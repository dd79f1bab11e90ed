// Package activity keeps the audit trail of sign-ins and record changes
// and serves it to superusers.
package activity

import (
	"leadbridge/internal/events"
	apphttp "leadbridge/internal/http"
	"leadbridge/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler  *Handler
	recorder *Recorder
}

func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	return newModule(NewRepository(pool), log)
}

func newModule(store Store, log *logger.Logger) *Module {
	return &Module{handler: NewHandler(store), recorder: NewRecorder(store, log)}
}

func (m *Module) Name() string {
	return "activity"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Superuser)
}

// RegisterHandlers subscribes the recorder to the bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	m.recorder.RegisterHandlers(bus)
}

var _ apphttp.Module = (*Module)(nil)
