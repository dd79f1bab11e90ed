package access

import (
	"context"

	"leadbridge/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ViewerResolver loads the current access attributes of a user.
type ViewerResolver interface {
	Viewer(ctx context.Context, userID uuid.UUID) (Viewer, error)
}

// ResolveViewer loads the viewer of an authenticated request. On failure it
// has already written the response and returns false.
func ResolveViewer(c *gin.Context, resolver ViewerResolver) (Viewer, bool) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return Viewer{}, false
	}
	v, err := resolver.Viewer(c.Request.Context(), id.UserID())
	if httpkit.HandleError(c, err) {
		return Viewer{}, false
	}
	return v, true
}
