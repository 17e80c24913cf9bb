package authclient

import (
	"context"
	"fmt"
)

// Logger is the logging surface used across the package. Messages are
// followed by optional key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// AuthService is the remote collaborator that authenticates credentials
// and answers liveness probes.
type AuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, email, password, name string) (*UserRecord, error)
	Probe(ctx context.Context, token string) error
}

// CredentialStore holds exactly one raw credential string.
// Get returns an empty string when the slot is empty.
type CredentialStore interface {
	Put(ctx context.Context, token string) error
	Get(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// UserRecord is the account returned by registration
type UserRecord struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Print(line("DBG", msg, args...))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Print(line("INF", msg, args...))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Print(line("WRN", msg, args...))
}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Print(line("ERR", msg, args...))
}

func line(level, msg string, args ...any) string {
	out := "[" + level + "] AUTH-CLIENT " + msg
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			out += fmt.Sprintf(" %v=%v", args[i], args[i+1])
		} else {
			out += fmt.Sprintf(" %v", args[i])
		}
	}
	return out + "\n"
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// NopLogger discards every message.
func NopLogger() Logger {
	return nopLogger{}
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
