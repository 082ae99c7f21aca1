package api

import (
	"net/http"
	"strconv"

	"parts-service/internal/auth"

	"github.com/gin-gonic/gin"
)

const (
	headerUserID = "X-User-ID"
	headerRole   = "X-User-Role"
)

// actorMiddleware attaches the acting user supplied by the session layer
func actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(headerUserID)
		if raw == "" {
			c.Next()
			return
		}

		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			abortWithError(c, http.StatusUnauthorized, "ERR_UNAUTHORIZED", "invalid "+headerUserID+" header")
			return
		}

		actor := auth.Actor{ID: id, Role: auth.ParseRole(c.GetHeader(headerRole))}
		c.Request = c.Request.WithContext(auth.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// requireActor rejects calls that carry no acting user
func requireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := auth.FromContext(c.Request.Context()); !ok {
			abortWithError(c, http.StatusUnauthorized, "ERR_UNAUTHORIZED", "missing acting user")
			return
		}
		c.Next()
	}
}

const envelopeKey = "api.envelope"

// envelopeResponses marks a route group whose bodies use the
// {success, data|error, code} envelope
func envelopeResponses() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(envelopeKey, true)
		c.Next()
	}
}

// abortWithError stops the chain with an error body shaped for the route
func abortWithError(c *gin.Context, status int, code, message string) {
	body := gin.H{
		"error": message,
		"code":  code,
	}
	if c.GetBool(envelopeKey) {
		body["success"] = false
	}
	c.AbortWithStatusJSON(status, body)
}

func actorOf(c *gin.Context) auth.Actor {
	actor, _ := auth.FromContext(c.Request.Context())
	return actor
}
