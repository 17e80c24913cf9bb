package authclient

import (
	"net/http"
	"time"
)

// Signer is an http.RoundTripper that attaches the stored credential to
// outbound requests and reacts to rejected credentials.
//
// A 401 response clears the credential store and sends the navigator to
// the login area. The signer never touches in-memory session state; the
// Session picks up the cleared store on its next check. Other error
// statuses are logged and returned to the caller unchanged.
type Signer struct {
	next      http.RoundTripper
	store     CredentialStore
	navigator Navigator
	sink      ActivitySink
	logger    Logger
	now       func() time.Time
}

var _ http.RoundTripper = (*Signer)(nil)

// SignerOption customizes a Signer
type SignerOption func(*Signer)

// WithTransport sets the wrapped transport. Defaults to http.DefaultTransport.
func WithTransport(rt http.RoundTripper) SignerOption {
	return func(s *Signer) {
		if rt != nil {
			s.next = rt
		}
	}
}

// WithSignerNavigator sets where a rejected credential redirects.
func WithSignerNavigator(n Navigator) SignerOption {
	return func(s *Signer) {
		s.navigator = normalizeNavigator(n)
	}
}

// WithSignerActivitySink records rejected credentials.
func WithSignerActivitySink(sink ActivitySink) SignerOption {
	return func(s *Signer) {
		s.sink = sinkOrDiscard(sink)
	}
}

// WithSignerLogger sets the logger
func WithSignerLogger(l Logger) SignerOption {
	return func(s *Signer) {
		s.logger = normalizeLogger(l)
	}
}

// NewSigner returns a signer reading credentials from store
func NewSigner(store CredentialStore, opts ...SignerOption) *Signer {
	s := &Signer{
		next:      http.DefaultTransport,
		store:     store,
		navigator: nopNavigator{},
		sink:      ActivitySinks(nil),
		logger:    defLogger{},
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Client returns an HTTP client whose requests go through the signer
func (s *Signer) Client() *http.Client {
	return &http.Client{Transport: s}
}

// RoundTrip implements http.RoundTripper.
func (s *Signer) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	out := req
	token, err := s.store.Get(ctx)
	if err != nil {
		s.logger.Warn("unable to read credential, sending request unsigned", "error", err)
	} else if token != "" {
		out = req.Clone(ctx)
		out.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.next.RoundTrip(out)
	if err != nil {
		return resp, err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		s.rejected(req, token)
	case resp.StatusCode == http.StatusForbidden:
		s.logger.Warn("access forbidden", "method", req.Method, "url", req.URL.String())
	case resp.StatusCode == http.StatusNotFound:
		s.logger.Warn("resource not found", "method", req.Method, "url", req.URL.String())
	case resp.StatusCode >= http.StatusInternalServerError:
		s.logger.Error("server error", "method", req.Method, "url", req.URL.String(), "status", resp.StatusCode)
	}

	return resp, nil
}

func (s *Signer) rejected(req *http.Request, token string) {
	ctx := req.Context()
	if err := s.store.Clear(ctx); err != nil {
		s.logger.Error("failed to clear rejected credential", "error", err)
	}

	from := StatusUnauthenticated
	if token != "" {
		from = StatusAuthenticated
	}

	s.logger.Info("credential rejected, redirecting to login", "method", req.Method, "url", req.URL.String())
	recordActivity(ctx, s.sink, s.logger, s.now, ActivityEvent{
		EventType:  ActivityEventCredentialRejected,
		FromStatus: from,
		ToStatus:   StatusUnauthenticated,
		Metadata: map[string]any{
			"url":    req.URL.String(),
			"signed": token != "",
		},
	})

	s.navigator.Navigate(ctx, DestinationLogin)
}
