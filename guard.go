package authclient

import (
	"context"
	"sync"
)

// View renders a piece of UI
type View interface {
	Render(ctx context.Context) error
}

// ViewFunc adapts a function to the View interface.
type ViewFunc func(ctx context.Context) error

// Render implements View.
func (f ViewFunc) Render(ctx context.Context) error {
	if f == nil {
		return nil
	}
	return f(ctx)
}

// Outcome is the result of rendering a protected view
type Outcome int

const (
	OutcomeLoading Outcome = iota
	OutcomeRedirected
	OutcomeRendered
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLoading:
		return "loading"
	case OutcomeRedirected:
		return "redirected"
	case OutcomeRendered:
		return "rendered"
	default:
		return "unknown"
	}
}

// Guard gates protected views on a verified session.
type Guard struct {
	session   *Session
	navigator Navigator
	loading   View
	logger    Logger
}

// GuardOption customizes a Guard
type GuardOption func(*Guard)

// WithGuardNavigator sets where denied renders redirect.
func WithGuardNavigator(n Navigator) GuardOption {
	return func(g *Guard) {
		g.navigator = normalizeNavigator(n)
	}
}

// WithLoadingView sets the view rendered while the session settles.
func WithLoadingView(v View) GuardOption {
	return func(g *Guard) {
		g.loading = v
	}
}

// WithGuardLogger sets the logger
func WithGuardLogger(l Logger) GuardOption {
	return func(g *Guard) {
		g.logger = normalizeLogger(l)
	}
}

// NewGuard returns a guard reading session state
func NewGuard(session *Session, opts ...GuardOption) *Guard {
	g := &Guard{
		session:   session,
		navigator: nopNavigator{},
		loading:   ViewFunc(nil),
		logger:    defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// ProtectedView is a view wrapped by a guard. Each ProtectedView is one
// mount: it verifies the session once, the first time it is mounted.
type ProtectedView struct {
	guard *Guard
	view  View

	once sync.Once
	done chan struct{}
}

// Protect wraps view. The wrapped view is not mounted yet. A nil view
// renders nothing.
func (g *Guard) Protect(view View) *ProtectedView {
	if view == nil {
		view = ViewFunc(nil)
	}
	return &ProtectedView{
		guard: g,
		view:  view,
		done:  make(chan struct{}),
	}
}

// Mount starts the session re-verification for this mount. It does not
// trust a cached identity. The returned channel closes when verification
// completes; repeated calls return the same channel.
func (p *ProtectedView) Mount(ctx context.Context) <-chan struct{} {
	p.once.Do(func() {
		checked := p.guard.session.CheckAuthStatusAsync(ctx)
		go func() {
			<-checked
			close(p.done)
		}()
	})
	return p.done
}

// Verified reports whether the mount verification has completed
func (p *ProtectedView) Verified() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Render draws the loading view while the session settles, redirects to
// the login area when settled without identity, and renders the protected
// view otherwise. It mounts the view if needed.
func (p *ProtectedView) Render(ctx context.Context) (Outcome, error) {
	p.Mount(ctx)

	snap := p.guard.session.Snapshot()
	if snap.Settling || !p.Verified() {
		return OutcomeLoading, p.guard.loading.Render(ctx)
	}

	if snap.Identity == nil {
		p.guard.navigator.Navigate(ctx, DestinationLogin)
		return OutcomeRedirected, nil
	}

	return OutcomeRendered, p.view.Render(WithIdentity(ctx, snap.Identity))
}

// Serve mounts view, waits for verification and renders once. It returns
// ErrAccessDenied when the guard redirected instead of rendering.
func (g *Guard) Serve(ctx context.Context, view View) error {
	p := g.Protect(view)
	select {
	case <-p.Mount(ctx):
	case <-ctx.Done():
		return ctx.Err()
	}

	outcome, err := p.Render(ctx)
	if err != nil {
		return err
	}
	if outcome == OutcomeRedirected {
		return ErrAccessDenied.Clone()
	}
	return nil
}
