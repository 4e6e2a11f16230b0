package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lottosix/lottery-api/internal/application"
	"github.com/lottosix/lottery-api/pkg/helpers"
	"github.com/lottosix/lottery-api/pkg/response"
)

// RequireAnonymous rejects authenticated callers on the pre-auth
// surface (register, login, reset, 2FA enrollment). An authenticated
// user hitting these is either confused or probing, so the attempt is
// audit-logged.
func RequireAnonymous(state application.AuthStateStore, jwt *helpers.JWTManager, audit *application.Auditor) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie("access_token")
		if err != nil || token == "" {
			c.Next()
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			// Stale or forged cookie; treat as anonymous.
			c.Next()
			return
		}
		sess, err := state.GetSession(c.Request.Context(), claims.UserID)
		if err != nil || len(sess) == 0 || sess["sid"] != claims.SessionID {
			c.Next()
			return
		}

		audit.Record(application.AuditForbidden, nil, sess["email"], IPFromCtx(c),
			"authenticated request to "+normalizePath(c))
		response.AbortError(c, http.StatusForbidden, "already logged in", nil)
	}
}
