// Package httpkit holds the gin middleware, identity helpers and response
// helpers shared by every HTTP module.
package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RoleAdmin mirrors the ADMIN role string carried in access tokens.
const RoleAdmin = "ADMIN"

// Identity is the authenticated caller as read from the access token.
type Identity interface {
	UserID() uuid.UUID
	Role() string
	IsSuperuser() bool
	// IsAdmin is true for superusers and the ADMIN role.
	IsAdmin() bool
	IsAuthenticated() bool
}

type identity struct {
	userID        uuid.UUID
	role          string
	superuser     bool
	authenticated bool
}

func (i *identity) UserID() uuid.UUID     { return i.userID }
func (i *identity) Role() string          { return i.role }
func (i *identity) IsSuperuser() bool     { return i.superuser }
func (i *identity) IsAdmin() bool         { return i.superuser || i.role == RoleAdmin }
func (i *identity) IsAuthenticated() bool { return i.authenticated }

// GetIdentity returns an unauthenticated identity when AuthRequired did not run.
func GetIdentity(c *gin.Context) Identity {
	raw, ok := c.Get(ContextUserIDKey)
	if !ok {
		return &identity{}
	}
	uid, ok := raw.(uuid.UUID)
	if !ok {
		return &identity{}
	}

	role, _ := c.Get(ContextRoleKey)
	superuser, _ := c.Get(ContextSuperuserKey)
	roleText, _ := role.(string)
	isSuperuser, _ := superuser.(bool)

	return &identity{
		userID:        uid,
		role:          roleText,
		superuser:     isSuperuser,
		authenticated: true,
	}
}

// MustGetIdentity aborts with 401 and returns nil when the caller is anonymous.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return nil
	}
	return id
}
