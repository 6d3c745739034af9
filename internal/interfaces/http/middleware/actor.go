package middleware

import (
	"strings"

	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/erp/orderledger/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
)

// Identity headers set by the authenticating gateway in front of the service
const (
	HeaderUserName  = "X-User-Name"
	HeaderUserEmail = "X-User-Email"
	HeaderUserRole  = "X-User-Role"
)

// ActorKey is the gin context key holding the shared.Actor of a request
const ActorKey = "actor"

// maxActorFieldLength bounds header values copied onto audit rows
const maxActorFieldLength = 100

// Actor reads the identity headers into a shared.Actor. Requests without
// headers act as "system". The request logger gains an actor field.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := shared.Actor{
			Name:  headerValue(c, HeaderUserName),
			Email: headerValue(c, HeaderUserEmail),
			Role:  headerValue(c, HeaderUserRole),
		}
		c.Set(ActorKey, actor)

		ctx, l := logger.WithActor(c.Request.Context(), logger.GetGinLogger(c), actor.DisplayName())
		c.Request = c.Request.WithContext(ctx)
		c.Set(logger.GinLoggerKey, l)

		c.Next()
	}
}

// GetActor returns the actor of the request
func GetActor(c *gin.Context) shared.Actor {
	if v, ok := c.Get(ActorKey); ok {
		if a, ok := v.(shared.Actor); ok {
			return a
		}
	}
	return shared.Actor{}
}

func headerValue(c *gin.Context, name string) string {
	v := strings.TrimSpace(c.GetHeader(name))
	if len(v) > maxActorFieldLength {
		v = v[:maxActorFieldLength]
	}
	return v
}
