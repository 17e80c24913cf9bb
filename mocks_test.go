package authclient_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	authclient "github.com/goliatone/go-auth-client"
)

// MockAuthService implements authclient.AuthService
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) Register(ctx context.Context, email, password, name string) (*authclient.UserRecord, error) {
	args := m.Called(ctx, email, password, name)
	record, _ := args.Get(0).(*authclient.UserRecord)
	return record, args.Error(1)
}

func (m *MockAuthService) Probe(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// activityRecorder collects activity events
type activityRecorder struct {
	mu     sync.Mutex
	events []authclient.ActivityEvent
}

func (r *activityRecorder) Record(_ context.Context, event authclient.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *activityRecorder) types() []authclient.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]authclient.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

func (r *activityRecorder) last() authclient.ActivityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return authclient.ActivityEvent{}
	}
	return r.events[len(r.events)-1]
}

// failingStore fails every operation with err
type failingStore struct {
	err error
}

func (f failingStore) Put(context.Context, string) error   { return f.err }
func (f failingStore) Get(context.Context) (string, error) { return "", f.err }
func (f failingStore) Clear(context.Context) error         { return f.err }
