package profile

import (
	"context"
	"errors"

	docStore "memberdesk/internal/adapters/storage/document"
	"memberdesk/internal/domain/document"
	domain "memberdesk/internal/domain/profile"
)

// ErrNotFound is returned when no profile exists for a uid.
var ErrNotFound = errors.New("profile not found")

var knownFields = []string{"name", "email", "role"}

// Store persists one profile document per identity in the users collection.
type Store struct {
	docs docStore.Store
}

// NewStore creates a profile store over the document store.
func NewStore(docs docStore.Store) *Store {
	return &Store{docs: docs}
}

// GetProfile fetches the profile keyed by uid.
// PRE: uid is non-empty
// POST: Returns the profile or ErrNotFound
func (s *Store) GetProfile(ctx context.Context, uid string) (domain.Profile, error) {
	doc, err := s.docs.Get(ctx, domain.Collection, uid)
	if errors.Is(err, document.ErrNotFound) {
		return domain.Profile{}, ErrNotFound
	}
	if err != nil {
		return domain.Profile{}, err
	}
	var p domain.Profile
	if err := doc.Decode(&p); err != nil {
		return domain.Profile{}, err
	}
	fields, err := doc.Fields()
	if err != nil {
		return domain.Profile{}, err
	}
	for _, k := range knownFields {
		delete(fields, k)
	}
	if len(fields) > 0 {
		p.Extra = fields
	}
	p.SetID(doc.ID)
	return p, nil
}

// SaveProfile creates or replaces a profile.
// PRE: p.Validate() passes
// POST: Profile stored under p.UID
func (s *Store) SaveProfile(ctx context.Context, p domain.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	fields := document.Fields{}
	for k, v := range p.Extra {
		fields[k] = v
	}
	fields["role"] = p.Role
	if p.Name != "" {
		fields["name"] = p.Name
	}
	if p.Email != "" {
		fields["email"] = p.Email
	}
	return s.docs.Set(ctx, domain.Collection, p.UID, fields)
}
