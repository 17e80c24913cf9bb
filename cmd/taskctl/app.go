package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/activitymap"
	"github.com/goliatone/go-auth-client/tasks"
)

// App wires the client components for a single command invocation
type App struct {
	config  *authclient.Config
	loggers loggerFactory
	out     io.Writer

	service  *authclient.HTTPAuthService
	session  *authclient.Session
	guard    *authclient.Guard
	signer   *authclient.Signer
	tasks    *tasks.Client
	nav      *terminalNavigator
	activity authclient.ActivitySink
	closers  []func()
}

type rootOptions struct {
	configPath string
	logFormat  string
	logLevel   string
}

func newApp(ctx context.Context, cmd *cobra.Command, opts *rootOptions) (*App, error) {
	cfg, err := authclient.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}

	loggers, syncLogs, err := newLoggerFactory(opts.logFormat, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	app := &App{
		config:  cfg,
		loggers: loggers,
		out:     cmd.OutOrStdout(),
		closers: []func(){syncLogs},
	}

	store, closeStore, err := cfg.OpenStore(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.closers = append(app.closers, func() {
		if err := closeStore(); err != nil {
			app.GetLogger("store").Error("failed to close credential store", "error", err)
		}
	})

	codec, stopVerifier, err := cfg.NewCodec(app.GetLogger("verifier"))
	if err != nil {
		app.Close()
		return nil, err
	}
	app.closers = append(app.closers, stopVerifier)

	service, err := authclient.NewHTTPAuthService(cfg.BaseURL,
		authclient.WithHTTPClient(cfg.HTTPClient()),
		authclient.WithProbePath(cfg.ProbePath),
		authclient.WithServiceLogger(app.GetLogger("auth:service")),
	)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.service = service

	app.nav = &terminalNavigator{
		out:    app.out,
		routes: cfg.Routes(),
	}

	app.activity = authclient.ActivitySinkFunc(func(_ context.Context, event authclient.ActivityEvent) error {
		record := activitymap.Normalize(event, activitymap.WithActorFallback("taskctl"))
		app.GetLogger("auth:activity").Debug("session activity",
			"id", record.ID,
			"verb", record.Verb,
			"actor", record.ActorID,
			"channel", record.Channel,
			"metadata", record.Metadata,
		)
		return nil
	})

	app.session = authclient.NewSession(service, store,
		authclient.WithCodec(codec),
		authclient.WithNavigator(app.nav),
		authclient.WithActivitySink(app.activity),
		authclient.WithLogger(app.GetLogger("auth:session")),
	)

	app.guard = authclient.NewGuard(app.session,
		authclient.WithGuardNavigator(app.nav),
		authclient.WithGuardLogger(app.GetLogger("auth:guard")),
	)

	app.signer = authclient.NewSigner(store,
		authclient.WithTransport(cfg.HTTPClient().Transport),
		authclient.WithSignerNavigator(app.nav),
		authclient.WithSignerActivitySink(app.activity),
		authclient.WithSignerLogger(app.GetLogger("auth:signer")),
	)

	client := app.signer.Client()
	client.Timeout = cfg.HTTPTimeout
	app.tasks = tasks.NewClient(cfg.BaseURL, client)

	return app, nil
}

// protected runs fn after the guard re-verified the stored credential.
// A failed verification returns ErrAccessDenied and fn is not called.
func (a *App) protected(ctx context.Context, fn func(ctx context.Context, id *authclient.Identity) error) error {
	return a.guard.Serve(ctx, authclient.ViewFunc(func(ctx context.Context) error {
		id, _ := authclient.IdentityFromContext(ctx)
		return fn(ctx, id)
	}))
}

// GetLogger returns a named logger
func (a *App) GetLogger(name string) authclient.Logger {
	return a.loggers.GetLogger(name)
}

// Close releases resources in reverse acquisition order
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if a.closers[i] != nil {
			a.closers[i]()
		}
	}
	a.closers = nil
}

// terminalNavigator reports redirects on the terminal. The shell server
// replaces it with HTTP redirects.
type terminalNavigator struct {
	out    io.Writer
	routes authclient.Routes
	quiet  bool
}

func (n *terminalNavigator) Navigate(_ context.Context, to authclient.Destination) {
	if n.quiet {
		return
	}
	switch to {
	case authclient.DestinationLogin:
		fmt.Fprintln(n.out, "You are signed out. Run `taskctl login` to sign in.")
	case authclient.DestinationHome:
		fmt.Fprintf(n.out, "Signed in. Home is %s\n", n.routes.Path(to))
	}
}
