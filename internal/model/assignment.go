package model

import (
	"encoding/json"
	"fmt"
)

// AssignmentKind discriminates the two ways a task can be assigned.
type AssignmentKind string

const (
	// AssignDirect assigns an explicit, non-empty set of user ids.
	AssignDirect AssignmentKind = "direct"

	// AssignByRole assigns every approved user holding a role,
	// resolved dynamically at read time.
	AssignByRole AssignmentKind = "role"
)

// Assignment is the rule determining who may act on a task: either an
// explicit user set or a single role, never both and never neither.
// Construct values with DirectAssignment or RoleAssignment so the
// illegal combinations cannot be built.
type Assignment struct {
	kind  AssignmentKind
	users []string
	role  Role
}

// DirectAssignment assigns the given user ids. User ids are not checked
// for existence here; dangling references are tolerated and resolved
// lazily at read time.
func DirectAssignment(userIDs ...string) Assignment {
	users := make([]string, len(userIDs))
	copy(users, userIDs)
	return Assignment{kind: AssignDirect, users: users}
}

// RoleAssignment assigns every approved user holding role.
func RoleAssignment(role Role) Assignment {
	return Assignment{kind: AssignByRole, role: role}
}

// Kind returns the discriminator for this assignment.
func (a Assignment) Kind() AssignmentKind { return a.kind }

// Users returns the direct user id set and true when the assignment is
// direct, or nil and false for a role assignment.
func (a Assignment) Users() ([]string, bool) {
	if a.kind != AssignDirect {
		return nil, false
	}
	return a.users, true
}

// Role returns the assigned role and true when the assignment is by
// role, or the zero role and false for a direct assignment.
func (a Assignment) Role() (Role, bool) {
	if a.kind != AssignByRole {
		return "", false
	}
	return a.role, true
}

// Validate checks the invariants that constructors alone cannot enforce:
// a direct assignment must name at least one user, and a role assignment
// must carry a known role. The zero Assignment is invalid.
func (a Assignment) Validate() error {
	switch a.kind {
	case AssignDirect:
		if len(a.users) == 0 {
			return fmt.Errorf("direct assignment must name at least one user")
		}
		return nil
	case AssignByRole:
		if !a.role.Valid() {
			return fmt.Errorf("unknown assignment role %q", a.role)
		}
		return nil
	}
	return fmt.Errorf("assignment has no kind; use DirectAssignment or RoleAssignment")
}

// assignmentJSON is the wire shape of an Assignment.
type assignmentJSON struct {
	Kind  AssignmentKind `json:"kind"`
	Users []string       `json:"users,omitempty"`
	Role  Role           `json:"role,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (a Assignment) MarshalJSON() ([]byte, error) {
	return json.Marshal(assignmentJSON{Kind: a.kind, Users: a.users, Role: a.role})
}

// UnmarshalJSON implements json.Unmarshaler, rejecting payloads that do
// not form a valid assignment.
func (a *Assignment) UnmarshalJSON(data []byte) error {
	var raw assignmentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case AssignDirect:
		*a = DirectAssignment(raw.Users...)
	case AssignByRole:
		*a = RoleAssignment(raw.Role)
	default:
		return fmt.Errorf("unknown assignment kind %q", raw.Kind)
	}
	return a.Validate()
}
