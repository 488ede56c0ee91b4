package memstore

import (
	"context"
	"sync"

	"github.com/kailas-cloud/draftdex/internal/domain"
	dominst "github.com/kailas-cloud/draftdex/internal/domain/instance"
)

// Instances keeps draft instances in process memory.
type Instances struct {
	mu   sync.RWMutex
	byID map[string]dominst.Instance
}

// NewInstances creates an empty instance store.
func NewInstances() *Instances {
	return &Instances{byID: make(map[string]dominst.Instance)}
}

// Save stores a new instance.
func (s *Instances) Save(_ context.Context, inst dominst.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[inst.ID()]; ok {
		return domain.ErrAlreadyExists
	}
	s.byID[inst.ID()] = inst
	return nil
}

// Get returns an instance by ID.
func (s *Instances) Get(_ context.Context, id string) (dominst.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.byID[id]
	if !ok {
		return dominst.Instance{}, domain.ErrInstanceNotFound
	}
	return inst, nil
}
