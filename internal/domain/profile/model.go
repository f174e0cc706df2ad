package profile

import (
	"errors"
	"strings"

	"memberdesk/internal/domain/session"
)

// Collection is the document collection holding one profile per identity.
const Collection = "users"

// Domain errors
var (
	ErrEmptyUID    = errors.New("profile uid cannot be empty")
	ErrInvalidRole = errors.New("role must be one of: admin, member")
)

// ValidRoles contains all valid role values.
var ValidRoles = []string{session.RoleAdmin, session.RoleMember}

// Profile is the per-identity record carrying role and display name.
// Extra holds any additional stored fields.
type Profile struct {
	UID   string         `json:"-"`
	Name  string         `json:"name,omitempty"`
	Email string         `json:"email,omitempty"`
	Role  string         `json:"role"`
	Extra map[string]any `json:"-"`
}

// Validate checks if the Profile has valid data.
// PRE: Profile struct is populated
// POST: Returns nil if valid, error otherwise
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.UID) == "" {
		return ErrEmptyUID
	}
	for _, r := range ValidRoles {
		if r == p.Role {
			return nil
		}
	}
	return ErrInvalidRole
}

// DisplayName returns the profile name, falling back to the given email.
// INVARIANT: Profile fields are not mutated
func (p *Profile) DisplayName(fallback string) string {
	if strings.TrimSpace(p.Name) != "" {
		return p.Name
	}
	return fallback
}

// IsAdmin returns true if the profile has the admin role.
// INVARIANT: Profile fields are not mutated
func (p *Profile) IsAdmin() bool {
	return p.Role == session.RoleAdmin
}

// SetID sets the profile uid from the document identifier.
func (p *Profile) SetID(id string) {
	p.UID = id
}
