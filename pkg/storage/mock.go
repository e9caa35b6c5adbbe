package storage

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/jwebster45206/macro-engine/pkg/actor"
	"github.com/jwebster45206/macro-engine/pkg/macro"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu         sync.RWMutex
	characters map[uuid.UUID][]byte
	specs      map[string]*actor.CharacterSpec
	macros     map[string]*macro.Macro
	pingError  error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		characters: make(map[uuid.UUID][]byte),
		specs:      make(map[string]*actor.CharacterSpec),
		macros:     make(map[string]*macro.Macro),
	}
}

// SetPingSuccess configures the mock to succeed on ping
func (m *MockStorage) SetPingSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = nil
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// SaveCharacter stores a serialized copy so later mutations of c are not
// visible until the next save, like a real store.
func (m *MockStorage) SaveCharacter(ctx context.Context, id uuid.UUID, c *actor.Character) error {
	if c == nil {
		return errors.New("character cannot be nil")
	}
	data, err := c.MarshalJSON()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.characters[id] = data
	return nil
}

// LoadCharacter mocks loading a character session
func (m *MockStorage) LoadCharacter(ctx context.Context, id uuid.UUID) (*actor.Character, error) {
	m.mu.RLock()
	data, exists := m.characters[id]
	m.mu.RUnlock()
	if !exists {
		return nil, nil // Return nil for not found
	}

	var c actor.Character
	if err := c.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteCharacter mocks deleting a character session
func (m *MockStorage) DeleteCharacter(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.characters, id)
	return nil
}

// AddCharacterSpec adds a character spec to the mock storage (for testing)
func (m *MockStorage) AddCharacterSpec(id string, spec *actor.CharacterSpec) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.specs[id] = spec
}

// GetCharacterSpec returns a copy of the stored spec
func (m *MockStorage) GetCharacterSpec(ctx context.Context, characterID string) (*actor.CharacterSpec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	spec, exists := m.specs[characterID]
	if !exists {
		return nil, errors.New("character spec not found")
	}
	// Round-trip through JSON so callers never share maps with the mock
	data, err := json.Marshal(spec)
	if err != nil {
		return nil, err
	}
	var copied actor.CharacterSpec
	if err := json.Unmarshal(data, &copied); err != nil {
		return nil, err
	}
	copied.ID = characterID
	return &copied, nil
}

// ListCharacters mocks listing character specs
func (m *MockStorage) ListCharacters(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.specs))
	for id := range m.specs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// AddMacro adds a macro to the mock storage (for testing)
func (m *MockStorage) AddMacro(id string, mac *macro.Macro) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.macros[id] = mac
}

// GetMacro mocks getting a macro by ID
func (m *MockStorage) GetMacro(ctx context.Context, macroID string) (*macro.Macro, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mac, exists := m.macros[macroID]
	if !exists {
		return nil, errors.New("macro not found")
	}
	return mac, nil
}

// ListMacros mocks listing macros
func (m *MockStorage) ListMacros(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.macros))
	for id := range m.macros {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
