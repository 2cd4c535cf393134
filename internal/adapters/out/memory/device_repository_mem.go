package memory

import (
	"context"
	"strings"
	"sync"

	"storefront/internal/domain/session"
)

// DeviceRepositoryMem implements session.DeviceRepository in process memory.
type DeviceRepositoryMem struct {
	mu      sync.Mutex
	devices map[string]*LocalStoreMem
}

func NewDeviceRepositoryMem() *DeviceRepositoryMem {
	return &DeviceRepositoryMem{devices: map[string]*LocalStoreMem{}}
}

func (r *DeviceRepositoryMem) ForDevice(deviceID string) (session.LocalStore, error) {
	id := strings.TrimSpace(deviceID)
	if id == "" {
		return nil, session.ErrDeviceIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.devices[id]
	if !ok {
		s = NewLocalStoreMem()
		r.devices[id] = s
	}
	return s, nil
}

// LocalStoreMem is a map-backed session.LocalStore.
type LocalStoreMem struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewLocalStoreMem() *LocalStoreMem {
	return &LocalStoreMem{data: map[string]string{}}
}

func (s *LocalStoreMem) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *LocalStoreMem) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *LocalStoreMem) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}
