package authclient

import (
	"context"
	"sync"
	"time"
)

// Snapshot is a point-in-time copy of the session state.
type Snapshot struct {
	Identity   *Identity `json:"identity,omitempty"`
	Credential string    `json:"-"`
	Settling   bool      `json:"settling"`
}

// Authenticated reports whether the snapshot carries an identity
func (s Snapshot) Authenticated() bool {
	return s.Identity != nil
}

// Status returns the authentication status of the snapshot
func (s Snapshot) Status() Status {
	return statusOf(s.Identity)
}

// Listener observes session changes
type Listener func(Snapshot)

// Session owns the process-wide authentication state. Login, Register,
// Logout, CheckAuthStatus and Init are the only writers; every other
// component reads through Snapshot or Subscribe.
//
// Operations are not serialized against each other. Concurrent Login and
// CheckAuthStatus calls race and the last write wins.
type Session struct {
	service   AuthService
	store     CredentialStore
	codec     *Codec
	navigator Navigator
	sink      ActivitySink
	logger    Logger
	now       func() time.Time

	initOnce sync.Once

	mu    sync.RWMutex
	state Snapshot
	nmu   sync.Mutex

	lmu       sync.Mutex
	listeners map[int]Listener
	order     []int
	nextID    int
}

// SessionOption customizes a Session
type SessionOption func(*Session)

// WithCodec sets the codec used to decode credentials.
func WithCodec(c *Codec) SessionOption {
	return func(s *Session) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithNavigator sets the redirect target for login and logout.
func WithNavigator(n Navigator) SessionOption {
	return func(s *Session) {
		s.navigator = normalizeNavigator(n)
	}
}

// WithActivitySink sets the sink receiving lifecycle events.
func WithActivitySink(sink ActivitySink) SessionOption {
	return func(s *Session) {
		s.sink = sinkOrDiscard(sink)
	}
}

// WithLogger sets the session logger.
func WithLogger(l Logger) SessionOption {
	return func(s *Session) {
		s.logger = normalizeLogger(l)
	}
}

// WithClock injects a clock used for activity timestamps.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSession builds a session over the Auth Service and credential store.
// The session is initialized lazily on first use, or explicitly with Init.
func NewSession(service AuthService, store CredentialStore, opts ...SessionOption) *Session {
	s := &Session{
		service:   service,
		store:     store,
		codec:     defaultCodec,
		navigator: nopNavigator{},
		sink:      ActivitySinks(nil),
		logger:    defLogger{},
		now:       time.Now,
		listeners: map[int]Listener{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.store == nil {
		s.store = NewMemoryStore()
	}
	return s
}

// Store returns the credential store backing the session
func (s *Session) Store() CredentialStore {
	return s.store
}

// Codec returns the codec used by the session
func (s *Session) Codec() *Codec {
	return s.codec
}

// Init restores a previously stored credential. The stored token is decoded
// optimistically, without a probe and without an expiry check, so views can
// render immediately. A stale token therefore shows as authenticated until
// CheckAuthStatus runs. Init runs at most once.
func (s *Session) Init(ctx context.Context) {
	s.initOnce.Do(func() {
		s.restore(ctx)
	})
}

func (s *Session) restore(ctx context.Context) {
	s.update(func(st *Snapshot) { st.Settling = true })

	from := StatusUnauthenticated
	token, err := s.store.Get(ctx)
	if err != nil {
		s.logger.Error("failed to read stored credential", "error", err)
		token = ""
	}

	var id *Identity
	if token != "" {
		claims, derr := s.codec.Decode(token)
		if derr != nil {
			s.logger.Warn("stored credential could not be decoded", "error", derr)
		} else {
			id = claims.Identity()
		}
	}

	s.update(func(st *Snapshot) {
		st.Credential = token
		st.Identity = id
		st.Settling = false
	})

	to := from
	if id != nil {
		to = s.transition(from, TriggerRestored)
	}
	s.record(ctx, ActivityEvent{
		EventType:  ActivityEventInitialized,
		UserID:     userID(id),
		FromStatus: from,
		ToStatus:   to,
		Metadata:   map[string]any{"restored": token != ""},
	})
}

// Login authenticates against the Auth Service. On success the credential
// is persisted, the identity is set and the navigator is sent home. On
// failure an AuthError is returned and the state is left as it was.
func (s *Session) Login(ctx context.Context, email, password string) error {
	s.Init(ctx)
	from := s.Status()

	token, err := s.service.Login(ctx, email, password)
	if err != nil {
		return s.loginFailed(ctx, from, email, err)
	}

	claims, err := s.codec.Decode(token)
	if err != nil {
		return s.loginFailed(ctx, from, email, err)
	}

	if err := s.store.Put(ctx, token); err != nil {
		return s.loginFailed(ctx, from, email, err)
	}

	id := claims.Identity()
	to := s.transition(from, TriggerLogin)
	s.update(func(st *Snapshot) {
		st.Credential = token
		st.Identity = id
		st.Settling = false
	})

	s.logger.Info("login succeeded", "user", id.ID)
	s.record(ctx, ActivityEvent{
		EventType:  ActivityEventLoginSuccess,
		UserID:     id.ID,
		FromStatus: from,
		ToStatus:   to,
	})

	s.navigator.Navigate(ctx, DestinationHome)
	return nil
}

func (s *Session) loginFailed(ctx context.Context, from Status, email string, err error) error {
	if !IsAuthError(err) {
		s.logger.Error("login failed", "error", err)
		err = NewAuthError(0, "", defaultLoginFailure)
	}
	s.record(ctx, ActivityEvent{
		EventType:  ActivityEventLoginFailure,
		FromStatus: from,
		ToStatus:   from,
		Err:        err,
		Metadata:   map[string]any{"identifier": email},
	})
	return err
}

// Register creates an account and then logs in with the same credentials.
// Registration itself never establishes the session.
func (s *Session) Register(ctx context.Context, email, password, name string) error {
	s.Init(ctx)
	from := s.Status()

	record, err := s.service.Register(ctx, email, password, name)
	if err != nil {
		if !IsAuthError(err) {
			s.logger.Error("registration failed", "error", err)
			err = NewAuthError(0, "", defaultRegisterFailure)
		}
		s.record(ctx, ActivityEvent{
			EventType:  ActivityEventRegisterFailure,
			FromStatus: from,
			ToStatus:   from,
			Err:        err,
			Metadata:   map[string]any{"identifier": email},
		})
		return err
	}

	uid := ""
	if record != nil {
		uid = record.ID
	}
	s.record(ctx, ActivityEvent{
		EventType:  ActivityEventRegisterSuccess,
		UserID:     uid,
		FromStatus: from,
		ToStatus:   from,
		Metadata:   map[string]any{"identifier": email},
	})

	return s.Login(ctx, email, password)
}

// Logout clears the stored credential and the in-memory session, then
// sends the navigator to the login area. It is safe to call repeatedly.
func (s *Session) Logout(ctx context.Context) {
	s.Init(ctx)
	from := s.Status()

	if err := s.store.Clear(ctx); err != nil {
		s.logger.Error("failed to clear stored credential", "error", err)
	}

	prev := s.Snapshot()
	to := s.transition(from, TriggerLogout)
	s.update(func(st *Snapshot) {
		st.Credential = ""
		st.Identity = nil
	})

	s.record(ctx, ActivityEvent{
		EventType:  ActivityEventLogout,
		UserID:     userID(prev.Identity),
		FromStatus: from,
		ToStatus:   to,
	})

	s.navigator.Navigate(ctx, DestinationLogin)
}

// CheckAuthStatus re-validates the stored credential against the protected
// probe endpoint. A failed probe, for any reason, clears the credential and
// the identity. Settling is true while the check runs.
func (s *Session) CheckAuthStatus(ctx context.Context) {
	s.Init(ctx)
	s.update(func(st *Snapshot) { st.Settling = true })
	s.check(ctx)
}

// CheckAuthStatusAsync marks the session as settling before returning and
// runs the check in the background. The channel closes when it completes.
func (s *Session) CheckAuthStatusAsync(ctx context.Context) <-chan struct{} {
	s.Init(ctx)
	s.update(func(st *Snapshot) { st.Settling = true })

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.check(ctx)
	}()
	return done
}

func (s *Session) check(ctx context.Context) {
	from := s.Status()

	token, err := s.store.Get(ctx)
	if err != nil {
		s.logger.Error("failed to read stored credential", "error", err)
		token = ""
	}

	if token == "" {
		s.update(func(st *Snapshot) {
			st.Credential = ""
			st.Identity = nil
			st.Settling = false
		})
		return
	}

	if err := s.service.Probe(ctx, token); err != nil {
		if !IsProbeFailure(err) {
			err = probeFailure(0, err)
		}
		s.invalidate(ctx, from, TriggerProbeFailure, ActivityEventProbeFailure, err)
		return
	}

	claims, err := s.codec.Decode(token)
	if err != nil {
		s.invalidate(ctx, from, TriggerInvalid, ActivityEventProbeFailure, err)
		return
	}

	id := claims.Identity()
	to := s.transition(from, TriggerProbeSuccess)
	s.update(func(st *Snapshot) {
		st.Credential = token
		st.Identity = id
		st.Settling = false
	})

	s.record(ctx, ActivityEvent{
		EventType:  ActivityEventProbeSuccess,
		UserID:     id.ID,
		FromStatus: from,
		ToStatus:   to,
	})
}

func (s *Session) invalidate(ctx context.Context, from Status, trigger Trigger, event ActivityEventType, cause error) {
	if err := s.store.Clear(ctx); err != nil {
		s.logger.Error("failed to clear stored credential", "error", err)
	}

	prev := s.Snapshot()
	to := s.transition(from, trigger)
	s.update(func(st *Snapshot) {
		st.Credential = ""
		st.Identity = nil
		st.Settling = false
	})

	s.logger.Debug("stored credential invalidated", "reason", cause)
	s.record(ctx, ActivityEvent{
		EventType:  event,
		UserID:     userID(prev.Identity),
		FromStatus: from,
		ToStatus:   to,
		Err:        cause,
	})
}

// Snapshot returns a copy of the current state
func (s *Session) Snapshot() Snapshot {
	s.Init(context.Background())
	return s.snapshot()
}

func (s *Session) snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyState()
}

// copyState requires mu to be held.
func (s *Session) copyState() Snapshot {
	out := s.state
	if out.Identity != nil {
		id := *out.Identity
		out.Identity = &id
	}
	return out
}

// Identity returns the current identity, if any
func (s *Session) Identity() (*Identity, bool) {
	snap := s.Snapshot()
	return snap.Identity, snap.Identity != nil
}

// Authenticated reports whether an identity is present
func (s *Session) Authenticated() bool {
	return s.Snapshot().Authenticated()
}

// Status returns the current authentication status
func (s *Session) Status() Status {
	return s.snapshot().Status()
}

// Subscribe registers a listener called after every state change, in
// the order the changes happened. Listeners run synchronously and must not
// call Session writers. The returned function removes it.
func (s *Session) Subscribe(l Listener) func() {
	if l == nil {
		return func() {}
	}
	s.Init(context.Background())

	s.lmu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.order = append(s.order, id)
	s.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lmu.Lock()
			defer s.lmu.Unlock()
			delete(s.listeners, id)
			for i, v := range s.order {
				if v == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

// update applies fn and notifies listeners with the resulting state.
// nmu keeps notifications in the order the writes happened.
func (s *Session) update(fn func(*Snapshot)) {
	s.nmu.Lock()
	defer s.nmu.Unlock()

	s.mu.Lock()
	fn(&s.state)
	snap := s.copyState()
	s.mu.Unlock()

	s.notify(snap)
}

func (s *Session) notify(snap Snapshot) {
	s.lmu.Lock()
	listeners := make([]Listener, 0, len(s.order))
	for _, id := range s.order {
		listeners = append(listeners, s.listeners[id])
	}
	s.lmu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

func (s *Session) transition(from Status, trigger Trigger) Status {
	to, err := NextStatus(from, trigger)
	if err != nil {
		s.logger.Warn("unexpected session transition", "error", err)
	}
	return to
}

func (s *Session) record(ctx context.Context, event ActivityEvent) {
	recordActivity(ctx, s.sink, s.logger, s.now, event)
}

func userID(id *Identity) string {
	if id == nil {
		return ""
	}
	return id.ID
}
