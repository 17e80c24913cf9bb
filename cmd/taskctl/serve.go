package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/spf13/cobra"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/activitymap"
	"github.com/goliatone/go-auth-client/middleware/csrf"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local web shell with a login page and a protected dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			if addr == "" {
				addr = app.config.ShellAddr
			}

			shell := newShell(app)
			app.GetLogger("shell").Info("serving local shell", "addr", addr)
			shell.srv.Serve(addr)

			waitExitSignal(ctx)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, defaults to TASKS_SHELL_ADDR")

	return cmd
}

type redirectKey struct{}

type redirectSlot struct {
	to authclient.Destination
}

// withRedirect returns a context that captures navigator redirects so a
// handler can turn them into HTTP redirects.
func withRedirect(ctx context.Context) (context.Context, *redirectSlot) {
	slot := &redirectSlot{}
	return context.WithValue(ctx, redirectKey{}, slot), slot
}

// httpNavigator records destinations in the request scoped slot
type httpNavigator struct{}

func (httpNavigator) Navigate(ctx context.Context, to authclient.Destination) {
	if slot, ok := ctx.Value(redirectKey{}).(*redirectSlot); ok {
		slot.to = to
	}
}

type shell struct {
	app     *App
	srv     router.Server[*fiber.App]
	session *authclient.Session
	guard   *authclient.Guard
	routes  authclient.Routes
}

func newShell(app *App) *shell {
	nav := httpNavigator{}
	routes := app.config.Routes()

	session := authclient.NewSession(app.service, app.session.Store(),
		authclient.WithCodec(app.session.Codec()),
		authclient.WithNavigator(nav),
		authclient.WithActivitySink(authclient.ActivitySinks{app.activity, shellActivity(app)}),
		authclient.WithLogger(app.GetLogger("shell:session")),
	)

	s := &shell{
		app:     app,
		session: session,
		routes:  routes,
		guard: authclient.NewGuard(session,
			authclient.WithGuardNavigator(nav),
			authclient.WithGuardLogger(app.GetLogger("shell:guard")),
		),
	}

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return fiber.New(fiber.Config{
			UnescapePath:          true,
			StrictRouting:         false,
			DisableStartupMessage: true,
			PassLocalsToViews:     true,
			Views:                 newViewEngine(),
		})
	})

	forms := csrf.New(csrf.Config{
		ErrorHandler: func(ctx router.Context, err error) error {
			s.app.GetLogger("shell").Warn("rejected form submission", "error", err)
			return s.loginPage(ctx, http.StatusForbidden, "", "Your form expired. Reload the page and try again.")
		},
	})

	r := srv.Router()
	r.Get(routes.Login, s.loginShow, forms)
	r.Post(routes.Login, s.loginSubmit, forms)
	r.Post("/logout", s.logoutSubmit, forms)
	r.Get("/", func(ctx router.Context) error {
		return ctx.Redirect(routes.Home, http.StatusSeeOther)
	})

	protected := s.guard.Middleware(authclient.GuardMiddlewareConfig{
		LoginPath: routes.Login,
	})
	r.Get(routes.Home, s.dashboard, protected, forms)

	s.srv = srv
	return s
}

// shellActivity reports browser sign in and sign out at info level
func shellActivity(app *App) authclient.ActivitySink {
	logger := app.GetLogger("shell:activity")
	return authclient.ActivitySinkFunc(func(_ context.Context, event authclient.ActivityEvent) error {
		switch event.EventType {
		case authclient.ActivityEventLoginSuccess, authclient.ActivityEventLogout:
			record := activitymap.Normalize(event, activitymap.WithDefaultChannel("shell"))
			logger.Info("browser session changed", "verb", record.Verb, "actor", record.ActorID)
		}
		return nil
	})
}

func (s *shell) loginShow(ctx router.Context) error {
	return s.loginPage(ctx, http.StatusOK, "", "")
}

func (s *shell) loginSubmit(ctx router.Context) error {
	email := strings.TrimSpace(ctx.FormValue("email"))
	password := ctx.FormValue("password")

	rctx, slot := withRedirect(ctx.Context())
	if err := s.session.Login(rctx, email, password); err != nil {
		return s.loginPage(ctx, http.StatusUnauthorized, email, authclient.AuthErrorMessage(err))
	}
	return ctx.Redirect(s.destination(slot, authclient.DestinationHome), http.StatusSeeOther)
}

func (s *shell) logoutSubmit(ctx router.Context) error {
	rctx, slot := withRedirect(ctx.Context())
	s.session.Logout(rctx)
	return ctx.Redirect(s.destination(slot, authclient.DestinationLogin), http.StatusSeeOther)
}

func (s *shell) dashboard(ctx router.Context) error {
	id, ok := authclient.IdentityFromRouter(ctx)
	if !ok {
		return ctx.Redirect(s.routes.Login, http.StatusSeeOther)
	}

	view := router.ViewContext{
		"identity":   id,
		"csrf_field": csrf.DefaultFormFieldName,
	}

	items, err := s.app.tasks.List(ctx.Context())
	if err != nil {
		s.app.GetLogger("shell").Error("failed to list tasks", "error", err)
		view["error"] = "Could not load tasks."
		return ctx.Status(http.StatusBadGateway).Render("dashboard", view)
	}
	view["tasks"] = items

	return ctx.Status(http.StatusOK).Render("dashboard", view)
}

func (s *shell) loginPage(ctx router.Context, status int, email, message string) error {
	return ctx.Status(status).Render("login", router.ViewContext{
		"login_path": s.routes.Login,
		"email":      email,
		"error":      message,
		"csrf_field": csrf.DefaultFormFieldName,
	})
}

func (s *shell) destination(slot *redirectSlot, fallback authclient.Destination) string {
	to := slot.to
	if to == "" {
		to = fallback
	}
	return s.routes.Path(to)
}

func waitExitSignal(ctx context.Context) {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	defer signal.Stop(ch)

	select {
	case <-ch:
	case <-ctx.Done():
	}
}
