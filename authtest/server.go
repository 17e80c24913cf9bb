// Package authtest provides an in-process fake of the Auth Service and the
// Tasks API for tests and local development.
package authtest

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultSigningKey signs tokens when no key is configured
var DefaultSigningKey = []byte("authtest-signing-key")

type user struct {
	ID           string
	Email        string
	Name         string
	PasswordHash []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type task struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Server is a fake Auth Service. The zero value is not usable, use New.
type Server struct {
	*httptest.Server

	key []byte
	ttl time.Duration
	now func() time.Time

	mu          sync.Mutex
	users       map[string]*user
	tasks       map[string][]*task
	probeFails  bool
	loginToken  string
	loginHits   int
	probeHits   int
	lastAuthHdr string
}

// Option customizes the fake server
type Option func(*Server)

// WithSigningKey sets the HS256 key used to sign and verify tokens
func WithSigningKey(key []byte) Option {
	return func(s *Server) {
		if len(key) > 0 {
			s.key = key
		}
	}
}

// WithTTL sets the lifetime of issued tokens. A negative TTL issues tokens
// that are already expired.
func WithTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.ttl = ttl
	}
}

// WithClock sets the clock used for issued tokens and timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// New starts a fake server. Call Close when done.
func New(opts ...Option) *Server {
	s := &Server{
		key:   DefaultSigningKey,
		ttl:   30 * time.Minute,
		now:   time.Now,
		users: map[string]*user{},
		tasks: map[string][]*task{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", s.handleLogin)
	mux.HandleFunc("/api/auth/register", s.handleRegister)
	mux.HandleFunc("/api/tasks", s.handleTasks)
	mux.HandleFunc("/api/tasks/", s.handleTask)

	s.Server = httptest.NewServer(mux)
	return s
}

// AddUser registers an account directly and returns its id
func (s *Server) AddUser(email, password, name string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	now := s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	u := &user{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(email),
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[u.Email] = u
	return u.ID
}

// IssueToken signs a token for the user with email
func (s *Server) IssueToken(email string) (string, error) {
	s.mu.Lock()
	u, ok := s.users[strings.ToLower(email)]
	s.mu.Unlock()
	if !ok {
		return "", jwt.ErrTokenInvalidSubject
	}
	return s.sign(u)
}

// FailProbe makes every protected request answer 401
func (s *Server) FailProbe(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probeFails = fail
}

// ServeLoginToken makes successful logins return token instead of a
// freshly signed one. An empty token restores normal behavior.
func (s *Server) ServeLoginToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginToken = token
}

// LoginHits returns the number of login requests served
func (s *Server) LoginHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginHits
}

// ProbeHits returns the number of protected requests served
func (s *Server) ProbeHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probeHits
}

// LastAuthorization returns the Authorization header of the last
// protected request
func (s *Server) LastAuthorization() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuthHdr
}

func (s *Server) sign(u *user) (string, error) {
	now := s.now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Email: u.Email,
		Name:  u.Name,
		Role:  "user",
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeDetail(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid form")
		return
	}
	email := strings.ToLower(strings.TrimSpace(r.PostForm.Get("email")))
	password := r.PostForm.Get("password")

	s.mu.Lock()
	s.loginHits++
	u, ok := s.users[email]
	override := s.loginToken
	s.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}

	token := override
	if token == "" {
		var err error
		if token, err = s.sign(u); err != nil {
			writeDetail(w, http.StatusInternalServerError, "Could not issue token")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeDetail(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]any{{"loc": []string{"body"}, "msg": "invalid JSON body"}},
		})
		return
	}
	if strings.TrimSpace(payload.Email) == "" || payload.Password == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]any{{"loc": []string{"body", "email"}, "msg": "field required"}},
		})
		return
	}

	s.mu.Lock()
	_, exists := s.users[strings.ToLower(payload.Email)]
	s.mu.Unlock()
	if exists {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}

	id := s.AddUser(payload.Email, payload.Password, payload.Name)

	s.mu.Lock()
	u := s.users[strings.ToLower(payload.Email)]
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"id":         id,
		"email":      u.Email,
		"name":       u.Name,
		"created_at": u.CreatedAt,
		"updated_at": u.UpdatedAt,
	})
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")

	s.mu.Lock()
	s.probeHits++
	s.lastAuthHdr = header
	fails := s.probeFails
	s.mu.Unlock()

	if fails || !strings.HasPrefix(header, "Bearer ") {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return "", false
	}

	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims, func(t *jwt.Token) (any, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || claims.Subject == "" {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return "", false
	}
	return claims.Subject, true
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.mu.Lock()
		out := make([]*task, 0, len(s.tasks[uid]))
		filter := r.URL.Query().Get("completed")
		for _, t := range s.tasks[uid] {
			if filter != "" && (filter == "true") != t.Completed {
				continue
			}
			out = append(out, t)
		}
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		var payload task
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "Invalid task")
			return
		}
		if strings.TrimSpace(payload.Title) == "" {
			writeDetail(w, http.StatusBadRequest, "Task title is required")
			return
		}
		now := s.now().UTC()
		t := &task{
			ID:          uuid.NewString(),
			UserID:      uid,
			Title:       payload.Title,
			Description: payload.Description,
			Completed:   payload.Completed,
			Category:    payload.Category,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if t.Category == "" {
			t.Category = "General"
		}
		s.mu.Lock()
		s.tasks[uid] = append(s.tasks[uid], t)
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, t)
	default:
		writeDetail(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/tasks/"), "/")
	if rest == "" {
		s.handleTasksAuthed(w, r, uid)
		return
	}
	id, action, _ := strings.Cut(rest, "/")

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.tasks[uid]
	idx := -1
	for i, t := range list {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		writeDetail(w, http.StatusNotFound, "Task not found")
		return
	}

	switch {
	case r.Method == http.MethodGet && action == "":
		writeJSON(w, http.StatusOK, list[idx])
	case r.Method == http.MethodPatch && action == "complete":
		list[idx].Completed = !list[idx].Completed
		list[idx].UpdatedAt = s.now().UTC()
		writeJSON(w, http.StatusOK, list[idx])
	case r.Method == http.MethodDelete && action == "":
		s.tasks[uid] = append(list[:idx], list[idx+1:]...)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
	default:
		writeDetail(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleTasksAuthed serves the collection under its trailing slash form
// without counting a second authentication.
func (s *Server) handleTasksAuthed(w http.ResponseWriter, r *http.Request, uid string) {
	if r.Method != http.MethodGet {
		writeDetail(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.mu.Lock()
	out := append([]*task{}, s.tasks[uid]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// UnsignedToken builds a compact token around payload with a dummy
// header and signature. Servers reject it; the client codec reads it.
func UnsignedToken(payload string) string {
	enc := base64.RawURLEncoding
	header := enc.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	return header + "." + enc.EncodeToString([]byte(payload)) + ".sig"
}
