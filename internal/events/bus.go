// Package events re-exports the platform event bus for convenience.
// Modules import events from here while the implementation lives in platform/events.
package events

import (
	platformevents "leadbridge/platform/events"
	"leadbridge/platform/logger"
)

type InMemoryBus = platformevents.InMemoryBus

const Wildcard = platformevents.Wildcard

func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
