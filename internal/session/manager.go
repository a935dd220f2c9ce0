// Package session управляет жизненным циклом эвалюаторов сессий.
// Базовая линия принадлежит сессии и уничтожается вместе с ней
package session

import (
	"sync"

	"github.com/google/uuid"

	"neurodrive-service/internal/cognitive"
)

// Manager реестр эвалюаторов по идентификаторам сессий
type Manager struct {
	mu    sync.RWMutex
	evals map[uuid.UUID]*cognitive.Evaluator
	cfg   cognitive.Config
}

// NewManager создает реестр с общей конфигурацией классификатора
func NewManager(cfg cognitive.Config) *Manager {
	return &Manager{
		evals: make(map[uuid.UUID]*cognitive.Evaluator),
		cfg:   cfg,
	}
}

// Get возвращает эвалюатор сессии, создавая его при первом обращении
func (m *Manager) Get(id uuid.UUID) *cognitive.Evaluator {
	m.mu.RLock()
	e, ok := m.evals[id]
	m.mu.RUnlock()
	if ok {
		return e
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Возможна гонка создания, перепроверяем под write-блокировкой
	if e, ok := m.evals[id]; ok {
		return e
	}
	e = cognitive.NewEvaluator(m.cfg)
	m.evals[id] = e
	return e
}

// Peek возвращает эвалюатор, если он существует
func (m *Manager) Peek(id uuid.UUID) (*cognitive.Evaluator, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.evals[id]
	return e, ok
}

// Remove уничтожает эвалюатор сессии вместе с базовой линией
func (m *Manager) Remove(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.evals, id)
}

// Count возвращает число живых эвалюаторов
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.evals)
}
