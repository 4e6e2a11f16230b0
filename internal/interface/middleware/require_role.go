package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lottosix/lottery-api/internal/application"
	"github.com/lottosix/lottery-api/pkg/response"
)

// RequireRole gates a route group to one role. Must run after Auth.
// Denied attempts are audit-logged with the caller's identity and
// origin.
func RequireRole(role string, audit *application.Auditor) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxUserRole) != role {
			audit.Record(application.AuditForbidden, nil, c.GetString(CtxUserEmail), IPFromCtx(c),
				"required role "+role+" for "+normalizePath(c))
			response.AbortError(c, http.StatusForbidden, "forbidden", nil)
			return
		}
		c.Next()
	}
}
