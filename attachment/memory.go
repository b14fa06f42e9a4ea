package attachment

import (
	"context"
	"slices"
	"sync"

	"github.com/jonwraymond/assetmigrate/failure"
)

// MemoryStore keeps attachments in memory. Values are copied on the way in
// and out.
type MemoryStore struct {
	mu     sync.RWMutex
	owners map[string]map[string]*Attachment
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{owners: make(map[string]map[string]*Attachment)}
}

// Get returns a copy of the attachment.
func (s *MemoryStore) Get(ctx context.Context, ownerID, id string) (*Attachment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.owners[ownerID][id]
	if !ok {
		return nil, failure.Newf(failure.KindNotFound, "attachment.get", "attachment %q not found for owner %q", id, ownerID)
	}
	return a.Clone(), nil
}

// Save stores a copy of a, replacing any attachment with the same id.
func (s *MemoryStore) Save(ctx context.Context, ownerID string, a *Attachment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a == nil || a.ID == "" {
		return failure.New(failure.KindValidation, "attachment.save", "attachment id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	owned, ok := s.owners[ownerID]
	if !ok {
		owned = make(map[string]*Attachment)
		s.owners[ownerID] = owned
	}
	owned[a.ID] = a.Clone()
	return nil
}

// List returns the ids stored for ownerID in sorted order.
func (s *MemoryStore) List(_ context.Context, ownerID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.owners[ownerID]))
	for id := range s.owners[ownerID] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
