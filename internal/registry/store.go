// Package registry implements the Template Registry: versioned
// templates, activation gate evaluation, fixture-pack storage/execution, ROI
// validation, and SSOT mode enforcement.
package registry

import (
	"context"
	"sync"

	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/pkg/audit"
)

// Store is the opaque key-value-shaped backing interface the registry reads
// and writes templates through. An in-memory implementation and a
// pgx/v5-backed implementation both satisfy it.
type Store interface {
	GetTemplate(ctx context.Context, slug string) (audit.Template, bool, error)
	PutTemplate(ctx context.Context, tmpl audit.Template) error
	ListTemplates(ctx context.Context) ([]audit.Template, error)
	GetFixturePack(ctx context.Context, versionID string) (audit.FixturePack, bool, error)
	PutFixturePack(ctx context.Context, versionID string, pack audit.FixturePack) error
}

// MemoryStore is the in-memory default/test Store implementation.
type MemoryStore struct {
	mu        sync.RWMutex
	templates map[string]audit.Template
	fixtures  map[string]audit.FixturePack
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		templates: make(map[string]audit.Template),
		fixtures:  make(map[string]audit.FixturePack),
	}
}

func (s *MemoryStore) GetTemplate(ctx context.Context, slug string) (audit.Template, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[slug]
	return t, ok, nil
}

func (s *MemoryStore) PutTemplate(ctx context.Context, tmpl audit.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[tmpl.Slug] = tmpl
	return nil
}

func (s *MemoryStore) ListTemplates(ctx context.Context) ([]audit.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Template, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t)
	}
	return out, nil
}

func (s *MemoryStore) GetFixturePack(ctx context.Context, versionID string) (audit.FixturePack, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.fixtures[versionID]
	return p, ok, nil
}

func (s *MemoryStore) PutFixturePack(ctx context.Context, versionID string, pack audit.FixturePack) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixtures[versionID] = pack
	return nil
}
