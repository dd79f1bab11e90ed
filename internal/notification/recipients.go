package notification

import (
	"strings"

	accounts "leadbridge/internal/accounts/domain"

	"github.com/google/uuid"
)

// Kind identifies one notification.
type Kind string

const (
	KindLeadCreated      Kind = "lead_created"
	KindLeadUpdated      Kind = "lead_updated"
	KindNoteAdded        Kind = "note_added"
	KindMeetingScheduled Kind = "meeting_scheduled"
	KindMeetingCompleted Kind = "meeting_completed"
	KindDealCreated      Kind = "deal_created"
	KindDealUpdated      Kind = "deal_updated"
	KindCommissionReady  Kind = "commission_ready"
	KindCommissionPaid   Kind = "commission_paid"
	KindCallbackDue      Kind = "callback_due"
)

// Audience is the set of hierarchy members a kind reaches.
type Audience int

const (
	// AudienceLeadChange reaches the referrer and the advisor.
	AudienceLeadChange Audience = iota
	// AudienceCommissionChange additionally reaches the manager and the office owner.
	AudienceCommissionChange
	// AudienceAdvisor reaches the advisor alone.
	AudienceAdvisor
)

func (k Kind) Audience() Audience {
	switch k {
	case KindCommissionReady, KindCommissionPaid:
		return AudienceCommissionChange
	case KindCallbackDue:
		return AudienceAdvisor
	default:
		return AudienceLeadChange
	}
}

// Recipients lists who receives a notification about one lead. The actor is
// never notified of their own change, users without email are dropped and
// each user appears once, in hierarchy order.
func Recipients(kind Kind, h accounts.Hierarchy, advisor *accounts.UserRef, actor *uuid.UUID) []accounts.UserRef {
	var candidates []*accounts.UserRef
	switch kind.Audience() {
	case AudienceAdvisor:
		candidates = []*accounts.UserRef{advisor}
	case AudienceCommissionChange:
		referrer := h.Referrer
		candidates = []*accounts.UserRef{&referrer, advisor, h.Manager, h.OfficeOwner()}
	default:
		referrer := h.Referrer
		candidates = []*accounts.UserRef{&referrer, advisor}
	}

	out := make([]accounts.UserRef, 0, len(candidates))
	seen := make(map[uuid.UUID]struct{}, len(candidates))
	for _, u := range candidates {
		if u == nil || u.ID == uuid.Nil {
			continue
		}
		if actor != nil && *actor == u.ID {
			continue
		}
		if strings.TrimSpace(u.Email) == "" {
			continue
		}
		if _, dup := seen[u.ID]; dup {
			continue
		}
		seen[u.ID] = struct{}{}
		out = append(out, *u)
	}
	return out
}
