package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// CtxActorIDKey is the gin context key holding the acting user's id.
const CtxActorIDKey = "actor_id"

// ActorHeader is the request header carrying the acting user's id.
// Authentication itself lives in front of this service; the engine only
// needs the identifier for audit attribution.
const ActorHeader = "X-Actor-ID"

// Actor extracts the acting user's id from the request header and stores it
// in the gin context for handlers to pick up.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor := strings.TrimSpace(c.GetHeader(ActorHeader)); actor != "" {
			c.Set(CtxActorIDKey, actor)
		}
		c.Next()
	}
}

// ActorID returns the acting user's id from the context, empty when the
// request carried none.
func ActorID(c *gin.Context) string {
	return c.GetString(CtxActorIDKey)
}
