package authclient

import (
	"net/http"

	"github.com/goliatone/go-router"
)

// GuardMiddlewareConfig configures Guard.Middleware
type GuardMiddlewareConfig struct {
	// Filter skips the guard when it returns true.
	Filter func(router.Context) bool
	// LoginPath is where denied requests are redirected. Defaults to /login.
	LoginPath string
	// DeniedHandler replaces the default redirect.
	DeniedHandler router.HandlerFunc
}

// Middleware protects routes of a hosting shell. Every request re-verifies
// the session; denied requests are redirected to the login path and
// allowed ones find the identity under IdentityLocalsKey.
func (g *Guard) Middleware(cfg ...GuardMiddlewareConfig) router.MiddlewareFunc {
	var c GuardMiddlewareConfig
	if len(cfg) > 0 {
		c = cfg[0]
	}
	if c.LoginPath == "" {
		c.LoginPath = DefaultRoutes().Login
	}
	if c.DeniedHandler == nil {
		loginPath := c.LoginPath
		c.DeniedHandler = func(ctx router.Context) error {
			return ctx.Redirect(loginPath, http.StatusSeeOther)
		}
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if c.Filter != nil && c.Filter(ctx) {
				return next(ctx)
			}

			g.session.CheckAuthStatus(ctx.Context())

			id, ok := g.session.Identity()
			if !ok {
				g.logger.Debug("guarded route denied")
				return c.DeniedHandler(ctx)
			}

			ctx.Locals(IdentityLocalsKey, id)
			return next(ctx)
		}
	}
}
