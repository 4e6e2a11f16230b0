package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lottosix/lottery-api/internal/application"
	"github.com/lottosix/lottery-api/pkg/helpers"
	"github.com/lottosix/lottery-api/pkg/response"
)

// Context keys set by Auth for downstream handlers.
const (
	CtxUserID    = "userID"
	CtxUserEmail = "userEmail"
	CtxUserRole  = "userRole"
)

// Auth validates the access token cookie and checks the server-side
// session still exists and carries the same session id. On success it
// sets userID, userEmail and userRole in the Gin context.
func Auth(state application.AuthStateStore, jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie("access_token")
		if err != nil || token == "" {
			response.AbortError(c, http.StatusUnauthorized, "missing access token", nil)
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			response.AbortError(c, http.StatusUnauthorized, "invalid access token", nil)
			return
		}

		sess, err := state.GetSession(c.Request.Context(), claims.UserID)
		if err != nil || len(sess) == 0 || sess["sid"] != claims.SessionID {
			response.AbortError(c, http.StatusUnauthorized, "session not found", nil)
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxUserEmail, sess["email"])
		c.Set(CtxUserRole, claims.Role)
		c.Next()
	}
}
