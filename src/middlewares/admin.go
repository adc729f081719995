package middlewares

import (
	"cabin/src/types"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireAdmin guards the invitation and maintenance-assignment routes. Runs
// after AuthMiddleware, which sets "role".
func RequireAdmin(ctx *gin.Context) {
	role := ctx.GetString("role")
	if role != types.ROLE_ADMIN {
		ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not enough permissions to perform this action"})
		return
	}
}
