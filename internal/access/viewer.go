// Package access decides which leads and deals a user can see and which
// actions they may take. Every list, detail, statistics and action check
// in LeadBridge goes through it.
package access

import (
	accounts "leadbridge/internal/accounts/domain"

	"github.com/google/uuid"
)

// Viewer is the acting user as far as access decisions are concerned.
type Viewer struct {
	ID             uuid.UUID
	Role           accounts.Role
	IsSuperuser    bool
	HasAdminAccess bool
}

func ViewerFromUser(u accounts.User) Viewer {
	return Viewer{ID: u.ID, Role: u.Role, IsSuperuser: u.IsSuperuser, HasAdminAccess: u.HasAdminAccess}
}

// IsAdmin is true for superusers and the ADMIN role.
func (v Viewer) IsAdmin() bool {
	return v.IsSuperuser || v.Role == accounts.RoleAdmin
}
