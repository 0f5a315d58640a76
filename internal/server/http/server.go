// Package httpserver exposes the authd HTTP API and its middleware chain.
package httpserver

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/avard/authd/internal/limiter"
	"github.com/avard/authd/internal/service"
)

// Guards holds one abuse guard per protected tier.
type Guards struct {
	Home     limiter.Guard
	Login    limiter.Guard
	Register limiter.Guard
	Refresh  limiter.Guard
}

// DefaultGuards builds in-memory guards with the standard tier thresholds.
func DefaultGuards() Guards {
	return Guards{
		Home:     limiter.NewMemory(limiter.HomeTier),
		Login:    limiter.NewMemory(limiter.LoginTier),
		Register: limiter.NewMemory(limiter.RegisterTier),
		Refresh:  limiter.NewMemory(limiter.RefreshTier),
	}
}

// NewRouter wires routes and middleware. Every route passes its tier's guard
// before the handler runs.
func NewRouter(auth service.AuthService, guards Guards, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Recover(log), RequestLog(log))

	h := &handlers{auth: auth}

	r.GET("/", Limit(guards.Home), h.home)

	a := r.Group("/auth")
	{
		a.POST("/register", Limit(guards.Register), h.register)
		a.POST("/login", Limit(guards.Login), h.login)
		a.POST("/refresh-token", Limit(guards.Refresh), h.refreshToken)
	}

	return r
}
