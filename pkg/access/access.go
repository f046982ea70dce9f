// Package access defines the permission contract the editor consumes.
// Permissions are supplied by an external collaborator (the project's
// sharing service); the editor treats CanEdit=false as a hard gate on all
// mutating transitions and never interprets roles beyond display.
package access

import "context"

// Role is the coarse role a user holds on a project. An empty Role means
// the collaborator reported no role (for example an anonymous viewer of a
// public project).
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleOwner  Role = "owner"
)

// Permissions is the flag set supplied for one (user, project) pair.
type Permissions struct {
	CanEdit   bool `json:"canEdit"`
	CanView   bool `json:"canView"`
	CanShare  bool `json:"canShare"`
	CanDelete bool `json:"canDelete"`
	Role      Role `json:"role,omitempty"`
}

// Provider resolves permissions for a project. Implementations typically
// wrap a remote sharing service; tests use Static.
type Provider interface {
	PermissionsFor(ctx context.Context, projectID string) (Permissions, error)
}

// ForRole derives the conventional flag set for a role.
func ForRole(r Role) Permissions {
	switch r {
	case RoleOwner:
		return Permissions{CanEdit: true, CanView: true, CanShare: true, CanDelete: true, Role: r}
	case RoleEditor:
		return Permissions{CanEdit: true, CanView: true, Role: r}
	case RoleViewer:
		return Permissions{CanView: true, Role: r}
	default:
		return Permissions{}
	}
}

// Owner returns full permissions. Convenient for single-user contexts
// such as the local CLI editor.
func Owner() Permissions { return ForRole(RoleOwner) }

// Viewer returns read-only permissions.
func Viewer() Permissions { return ForRole(RoleViewer) }

type staticProvider struct{ p Permissions }

// Static returns a Provider that reports the same permissions for every
// project.
func Static(p Permissions) Provider { return staticProvider{p: p} }

func (s staticProvider) PermissionsFor(ctx context.Context, projectID string) (Permissions, error) {
	return s.p, nil
}
