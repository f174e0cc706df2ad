package member

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
)

// Collection is the document collection holding members.
const Collection = "members"

// Max length constants for user-editable fields.
const (
	MaxNameLength = 100
)

// Domain errors
var (
	ErrInvalidStatus = errors.New("member status must be active or inactive")
	ErrServerField   = errors.New("member field is managed by the server")
)

// fieldName matches keys the document store accepts in paths.
var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Business rule constants
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Member holds state for the concept. Deletion is logical: the record is
// kept with Status inactive and DeletedAt stamped.
type Member struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	MembershipType string     `json:"membershipType,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	DeletedAt      *time.Time `json:"deletedAt,omitempty"`

	// Extra holds any other stored fields, written alongside the known ones.
	Extra map[string]any `json:"-"`
}

// memberFields is Member without its JSON methods.
type memberFields Member

// UnmarshalJSON decodes the known fields and keeps the rest in Extra.
func (m *Member) UnmarshalJSON(data []byte) error {
	var known memberFields
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range all {
		if isKnown(k) {
			delete(all, k)
		}
	}
	if len(all) > 0 {
		known.Extra = all
	}
	*m = Member(known)
	return nil
}

// MarshalJSON writes Extra at the top level next to the known fields.
// Known fields win on a name clash.
func (m Member) MarshalJSON() ([]byte, error) {
	body, err := json.Marshal(memberFields(m))
	if err != nil || len(m.Extra) == 0 {
		return body, err
	}
	out := make(map[string]json.RawMessage, len(m.Extra)+10)
	for k, v := range m.Extra {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[k] = raw
	}
	var known map[string]json.RawMessage
	if err := json.Unmarshal(body, &known); err != nil {
		return nil, err
	}
	for k, v := range known {
		out[k] = v
	}
	return json.Marshal(out)
}

// Text fields the input carries by name.
var textFields = []string{"name", "email", "phone", "membershipType", "notes"}

// Fields the server owns. Input may not write them directly.
var serverFields = []string{"id", "createdAt", "updatedAt", "deletedAt"}

func isKnown(k string) bool {
	return slices.Contains(textFields, k) || slices.Contains(serverFields, k) || k == "status"
}

// Input carries the mutable, free-form fields of a member.
type Input struct {
	Name           string
	Email          string
	Phone          string
	MembershipType string
	Notes          string

	// Status is applied by updates only; empty leaves it unchanged.
	Status string
	// Extra fields are stored as given.
	Extra map[string]any
	// Clear names fields an update removes.
	Clear []string
}

// ParseInput splits a decoded request body into an Input. Known text fields
// must be strings; an empty string or null asks for the field to be cleared.
// Any other key lands in Extra.
// POST: Returns an error naming the first field that cannot be accepted
func ParseInput(body map[string]any) (Input, error) {
	var in Input
	for k, v := range body {
		switch {
		case k == "status":
			s, ok := v.(string)
			if !ok || s == "" {
				return Input{}, ErrInvalidStatus
			}
			in.Status = s
		case slices.Contains(serverFields, k):
			return Input{}, fmt.Errorf("%w: %s", ErrServerField, k)
		case slices.Contains(textFields, k):
			if v == nil {
				in.Clear = append(in.Clear, k)
				continue
			}
			s, ok := v.(string)
			if !ok {
				return Input{}, fmt.Errorf("member %s must be a string", k)
			}
			if s == "" {
				in.Clear = append(in.Clear, k)
				continue
			}
			in.setText(k, s)
		default:
			if in.Extra == nil {
				in.Extra = map[string]any{}
			}
			in.Extra[k] = v
		}
	}
	slices.Sort(in.Clear)
	return in, nil
}

func (in *Input) setText(k, v string) {
	switch k {
	case "name":
		in.Name = v
	case "email":
		in.Email = v
	case "phone":
		in.Phone = v
	case "membershipType":
		in.MembershipType = v
	case "notes":
		in.Notes = v
	}
}

// Validate checks the input's length limits, status and field names.
// Fields are otherwise free-form.
// PRE: Input is populated
// POST: Returns error if validation fails, nil otherwise
func (in Input) Validate() error {
	if len(in.Name) > MaxNameLength {
		return errors.New("member name cannot exceed 100 characters")
	}
	if in.Email != "" && !strings.Contains(in.Email, "@") {
		return errors.New("member email must be valid")
	}
	if in.Status != "" && in.Status != StatusActive && in.Status != StatusInactive {
		return ErrInvalidStatus
	}
	for k := range in.Extra {
		if !fieldName.MatchString(k) {
			return fmt.Errorf("invalid member field name %q", k)
		}
		if isKnown(k) {
			return fmt.Errorf("%w: %s", ErrServerField, k)
		}
	}
	for _, k := range in.Clear {
		if k == "status" || slices.Contains(serverFields, k) {
			return fmt.Errorf("%w: %s", ErrServerField, k)
		}
		if !fieldName.MatchString(k) {
			return fmt.Errorf("invalid member field name %q", k)
		}
	}
	return nil
}

// Fields returns the extra fields and the non-empty text fields keyed by
// their stored names. Status and Clear are left to the caller.
func (in Input) Fields() map[string]any {
	f := make(map[string]any, len(in.Extra)+len(textFields))
	for k, v := range in.Extra {
		f[k] = v
	}
	set := func(k, v string) {
		if v != "" {
			f[k] = v
		}
	}
	set("name", in.Name)
	set("email", in.Email)
	set("phone", in.Phone)
	set("membershipType", in.MembershipType)
	set("notes", in.Notes)
	return f
}

// Label returns a short human-readable reference for activity details.
func (in Input) Label() string {
	if in.Name != "" {
		return in.Name
	}
	return in.Email
}

// IsActive returns true if the member is currently active.
// INVARIANT: Status field is not mutated
func (m *Member) IsActive() bool {
	return m.Status == StatusActive
}

// IsDeleted returns true if the member has been soft-deleted.
// INVARIANT: Member fields are not mutated
func (m *Member) IsDeleted() bool {
	return m.DeletedAt != nil
}

// SetID sets the member ID from the document identifier.
func (m *Member) SetID(id string) {
	m.ID = id
}
