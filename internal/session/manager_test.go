package session

import (
	"sync"
	"testing"

	"github.com/google/uuid"

	"neurodrive-service/internal/cognitive"
)

func TestManagerGetCreatesOnce(t *testing.T) {
	m := NewManager(cognitive.DefaultConfig())
	id := uuid.New()

	first := m.Get(id)
	second := m.Get(id)

	if first != second {
		t.Error("Expected the same evaluator for the same session")
	}
	if m.Count() != 1 {
		t.Errorf("Expected 1 evaluator, got %d", m.Count())
	}
}

func TestManagerRemove(t *testing.T) {
	m := NewManager(cognitive.DefaultConfig())
	id := uuid.New()

	m.Get(id)
	m.Remove(id)

	if _, ok := m.Peek(id); ok {
		t.Error("Expected evaluator to be removed")
	}
	if m.Count() != 0 {
		t.Errorf("Expected 0 evaluators, got %d", m.Count())
	}
}

func TestManagerConcurrentGet(t *testing.T) {
	m := NewManager(cognitive.DefaultConfig())
	id := uuid.New()

	var wg sync.WaitGroup
	results := make([]*cognitive.Evaluator, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.Get(id)
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Fatal("Concurrent Get returned different evaluators")
		}
	}
}
