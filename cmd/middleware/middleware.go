package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"dramclub/internal/dto"
	"dramclub/internal/model"
)

const actorKey = "actor"

func LoggingMiddleware() gin.HandlerFunc {
	return func(c *ginext.Context) {
		start := time.Now()
		c.Next()

		event := zlog.Logger.Info()
		if c.Writer.Status() >= 500 {
			event = zlog.Logger.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request handled")
	}
}

type TokenParser interface {
	Parse(raw string) (model.Actor, error)
}

type ActorResolver interface {
	ResolveActor(ctx context.Context, claimed model.Actor) (model.Actor, error)
}

// RequireAdmin authenticates the bearer token, reloads the caller's role and
// rejects anyone who is not an admin.
func RequireAdmin(tokens TokenParser, resolver ActorResolver) gin.HandlerFunc {
	return func(c *ginext.Context) {
		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			dto.UnauthorizedError(c)
			return
		}
		claimed, err := tokens.Parse(raw)
		if err != nil {
			dto.UnauthorizedError(c)
			return
		}
		actor, err := resolver.ResolveActor(c.Request.Context(), claimed)
		if err != nil {
			if errors.Is(err, model.ErrUnauthorized) {
				dto.UnauthorizedError(c)
				return
			}
			zlog.Logger.Error().Err(err).Msg("failed to resolve actor")
			dto.InternalServerError(c)
			return
		}
		if !actor.IsAdmin() {
			dto.ForbiddenError(c)
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// Actor returns the caller stored by RequireAdmin, or the zero Actor.
func Actor(c *ginext.Context) model.Actor {
	v, ok := c.Get(actorKey)
	if !ok {
		return model.Actor{}
	}
	actor, _ := v.(model.Actor)
	return actor
}
