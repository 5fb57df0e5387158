package vault

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/bitcor/internal/common"
)

// memBackend is an in-memory Backend with the same create/update contract as
// the real stores. Hooks run before the default behaviour and may override it.
type memBackend struct {
	mu      sync.Mutex
	objects map[string][]byte
	creates int
	updates int

	onCreate func(address string) (CreateResult, bool, error)
	onUpdate func(address string) (bool, error)
	readErr  error
}

func newMemBackend() *memBackend {
	return &memBackend{objects: map[string][]byte{}}
}

func (m *memBackend) Name() string { return "mem" }

func (m *memBackend) Create(_ context.Context, address string, payload []byte) (CreateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.onCreate != nil {
		if res, done, err := m.onCreate(address); done {
			return res, err
		}
	}
	if _, ok := m.objects[address]; ok {
		return AlreadyExists, nil
	}
	m.objects[address] = append([]byte(nil), payload...)
	return Created, nil
}

func (m *memBackend) Update(_ context.Context, address string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	if m.onUpdate != nil {
		if done, err := m.onUpdate(address); done {
			return err
		}
	}
	if _, ok := m.objects[address]; !ok {
		return common.ErrorNotFound
	}
	m.objects[address] = append([]byte(nil), payload...)
	return nil
}

func (m *memBackend) Read(_ context.Context, address string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	p, ok := m.objects[address]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return p, nil
}

func (m *memBackend) Delete(_ context.Context, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[address]; !ok {
		return common.ErrorNotFound
	}
	delete(m.objects, address)
	return nil
}
