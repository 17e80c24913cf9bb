package authclient

import (
	"context"
	"sync"
)

// Destination is an abstract redirect target consumed by the hosting shell.
type Destination string

const (
	// DestinationHome is the authenticated landing area
	DestinationHome Destination = "home"
	// DestinationLogin is the unauthenticated landing area
	DestinationLogin Destination = "login"
)

// Navigator performs redirect side effects on behalf of the session,
// the request signer and the access guard.
type Navigator interface {
	Navigate(ctx context.Context, to Destination)
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(ctx context.Context, to Destination)

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(ctx context.Context, to Destination) {
	if f == nil {
		return
	}
	f(ctx, to)
}

type nopNavigator struct{}

func (nopNavigator) Navigate(context.Context, Destination) {}

// NopNavigator ignores every redirect
func NopNavigator() Navigator {
	return nopNavigator{}
}

func normalizeNavigator(n Navigator) Navigator {
	if n == nil {
		return nopNavigator{}
	}
	return n
}

// RecordingNavigator remembers every redirect it was asked to perform.
type RecordingNavigator struct {
	mu   sync.Mutex
	hops []Destination
}

// Navigate implements Navigator.
func (r *RecordingNavigator) Navigate(_ context.Context, to Destination) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hops = append(r.hops, to)
}

// Destinations returns the redirects in the order they happened
func (r *RecordingNavigator) Destinations() []Destination {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Destination, len(r.hops))
	copy(out, r.hops)
	return out
}

// Last returns the most recent redirect, if any
func (r *RecordingNavigator) Last() (Destination, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.hops) == 0 {
		return "", false
	}
	return r.hops[len(r.hops)-1], true
}

// Reset forgets recorded redirects
func (r *RecordingNavigator) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hops = nil
}

// Routes maps destinations to shell paths.
type Routes struct {
	Home  string
	Login string
}

// DefaultRoutes returns the stock shell paths
func DefaultRoutes() Routes {
	return Routes{Home: "/dashboard", Login: "/login"}
}

// Path returns the shell path for a destination
func (r Routes) Path(to Destination) string {
	switch to {
	case DestinationHome:
		if r.Home != "" {
			return r.Home
		}
		return DefaultRoutes().Home
	default:
		if r.Login != "" {
			return r.Login
		}
		return DefaultRoutes().Login
	}
}
