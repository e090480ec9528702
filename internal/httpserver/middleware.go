package httpserver

import (
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	cartsvc "tienda-b2b/internal/service/cart"
)

const (
	sessionHeader = "X-Session-ID"
	cartCtxKey    = "cart"
)

var validSession = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// sessionMiddleware resolves the caller's cart from the session header. A
// missing or unusable header starts a new session, echoed back to the caller.
func sessionMiddleware(sessions *cartsvc.Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(sessionHeader)
		if !validSession.MatchString(key) {
			key = uuid.NewString()
		}
		c.Header(sessionHeader, key)
		c.Set(cartCtxKey, sessions.Get(c.Request.Context(), key))
		c.Next()
	}
}

func cartFrom(c *gin.Context) *cartsvc.Service {
	return c.MustGet(cartCtxKey).(*cartsvc.Service)
}
