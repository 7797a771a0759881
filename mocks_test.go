package idbridge_test

import (
	"context"
	"sync"
	"time"

	idbridge "github.com/arcline/go-idbridge"
	"github.com/stretchr/testify/mock"
)

// MockLogger implements idbridge.Logger for testing.
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(msg string, keysAndValues ...any) { m.Called(msg, keysAndValues) }
func (m *MockLogger) Info(msg string, keysAndValues ...any)  { m.Called(msg, keysAndValues) }
func (m *MockLogger) Warn(msg string, keysAndValues ...any)  { m.Called(msg, keysAndValues) }
func (m *MockLogger) Error(msg string, keysAndValues ...any) { m.Called(msg, keysAndValues) }

// MockBroker implements idbridge.IdentityBroker.
type MockBroker struct {
	mock.Mock
}

func (m *MockBroker) FetchPublicKeys(ctx context.Context) (idbridge.PublicKeySet, error) {
	args := m.Called(ctx)
	keys, _ := args.Get(0).(idbridge.PublicKeySet)
	return keys, args.Error(1)
}

func (m *MockBroker) FetchExternalIdentity(ctx context.Context, accessToken string) (*idbridge.ExternalIdentity, error) {
	args := m.Called(ctx, accessToken)
	identity, _ := args.Get(0).(*idbridge.ExternalIdentity)
	return identity, args.Error(1)
}

// MockUserStore implements idbridge.UserStore.
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) FindByExternalID(ctx context.Context, externalID string) (*idbridge.User, error) {
	args := m.Called(ctx, externalID)
	user, _ := args.Get(0).(*idbridge.User)
	return user, args.Error(1)
}

func (m *MockUserStore) FindByID(ctx context.Context, id int64) (*idbridge.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*idbridge.User)
	return user, args.Error(1)
}

func (m *MockUserStore) Create(ctx context.Context, user *idbridge.User) (*idbridge.User, error) {
	args := m.Called(ctx, user)
	created, _ := args.Get(0).(*idbridge.User)
	return created, args.Error(1)
}

func (m *MockUserStore) Update(ctx context.Context, id int64, patch idbridge.UserUpdate) (*idbridge.User, error) {
	args := m.Called(ctx, id, patch)
	user, _ := args.Get(0).(*idbridge.User)
	return user, args.Error(1)
}

// memStore is an in-memory UserStore with the same uniqueness guarantees a
// real database enforces. Used for idempotency and concurrency tests.
type memStore struct {
	mu         sync.Mutex
	nextID     int64
	byID       map[int64]*idbridge.User
	byExternal map[string]int64
	byEmail    map[string]int64
}

func newMemStore() *memStore {
	return &memStore{
		nextID:     1,
		byID:       map[int64]*idbridge.User{},
		byExternal: map[string]int64{},
		byEmail:    map[string]int64{},
	}
}

func (s *memStore) FindByExternalID(_ context.Context, externalID string) (*idbridge.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byExternal[externalID]; ok {
		return copyUser(s.byID[id]), nil
	}
	return nil, nil
}

func (s *memStore) FindByID(_ context.Context, id int64) (*idbridge.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.byID[id]; ok {
		return copyUser(user), nil
	}
	return nil, nil
}

func (s *memStore) Create(_ context.Context, user *idbridge.User) (*idbridge.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byExternal[user.ExternalID]; ok {
		return nil, idbridge.ErrUserConflict
	}
	if _, ok := s.byEmail[user.Email]; ok {
		return nil, idbridge.ErrUserConflict
	}

	record := copyUser(user)
	record.ID = s.nextID
	s.nextID++
	now := time.Now()
	record.CreatedAt = &now
	record.UpdatedAt = &now

	s.byID[record.ID] = record
	s.byExternal[record.ExternalID] = record.ID
	s.byEmail[record.Email] = record.ID

	return copyUser(record), nil
}

func (s *memStore) Update(_ context.Context, id int64, patch idbridge.UserUpdate) (*idbridge.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	if patch.Email != nil {
		user.Email = *patch.Email
	}
	if patch.DisplayName != nil {
		user.DisplayName = *patch.DisplayName
	}
	if patch.Role != nil {
		user.Role = *patch.Role
	}
	if patch.Active != nil {
		user.Active = *patch.Active
	}
	if patch.LastLoginAt != nil {
		user.LastLoginAt = patch.LastLoginAt
	}
	now := time.Now()
	user.UpdatedAt = &now
	return copyUser(user), nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func copyUser(user *idbridge.User) *idbridge.User {
	if user == nil {
		return nil
	}
	clone := *user
	return &clone
}

// stubBroker returns a fixed identity for every call.
type stubBroker struct {
	identity *idbridge.ExternalIdentity
	err      error
}

func (b *stubBroker) FetchPublicKeys(context.Context) (idbridge.PublicKeySet, error) {
	return nil, nil
}

func (b *stubBroker) FetchExternalIdentity(context.Context, string) (*idbridge.ExternalIdentity, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.identity, nil
}
