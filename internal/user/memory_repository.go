package user

import (
	"context"
	"sync"
	"time"
)

type memoryRepository struct {
	mu    sync.RWMutex
	users map[string]User // keyed by phone
}

// NewMemoryRepository builds an in-memory account store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[string]User)}
}

func (r *memoryRepository) Create(_ context.Context, u User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[u.PhoneMain]; exists {
		// Mirrors ON CONFLICT DO NOTHING: find-or-create stays idempotent.
		return nil
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	r.users[u.PhoneMain] = u
	return nil
}

func (r *memoryRepository) FindByPhone(_ context.Context, phone string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[phone]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *memoryRepository) MarkPhoneVerified(_ context.Context, phone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[phone]
	if !ok {
		return ErrNotFound
	}
	u.PhoneVerified = true
	u.UpdatedAt = time.Now().UTC()
	r.users[phone] = u
	return nil
}

func (r *memoryRepository) CompleteRegistration(_ context.Context, phone string, passwordHash []byte, deviceToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[phone]
	if !ok || u.Status != StatusPending {
		return ErrNotPending
	}
	u.PasswordHash = passwordHash
	u.Status = StatusOpen
	u.DeviceToken = deviceToken
	u.UpdatedAt = time.Now().UTC()
	r.users[phone] = u
	return nil
}

func (r *memoryRepository) UpdateDeviceToken(_ context.Context, id, deviceToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for phone, u := range r.users {
		if u.ID == id {
			u.DeviceToken = deviceToken
			u.UpdatedAt = time.Now().UTC()
			r.users[phone] = u
			return nil
		}
	}
	return ErrNotFound
}

func (r *memoryRepository) UpdatePasswordByPhone(_ context.Context, phone string, passwordHash []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[phone]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
	r.users[phone] = u
	return nil
}

func (r *memoryRepository) UpdatePINByPhone(_ context.Context, phone string, pinHash []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[phone]
	if !ok {
		return ErrNotFound
	}
	u.PINHash = pinHash
	u.UpdatedAt = time.Now().UTC()
	r.users[phone] = u
	return nil
}

func (r *memoryRepository) UpdatePINByID(_ context.Context, id string, pinHash []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for phone, u := range r.users {
		if u.ID == id {
			u.PINHash = pinHash
			u.UpdatedAt = time.Now().UTC()
			r.users[phone] = u
			return nil
		}
	}
	return ErrNotFound
}
