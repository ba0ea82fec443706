package domain

import (
	"fmt"
	"strings"
)

// Role is the closed set of role kinds a membership may carry.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
	RoleCustom Role = "custom"
)

// ParseRole validates a role label.
func ParseRole(value string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleOwner:
		return RoleOwner, nil
	case RoleMember:
		return RoleMember, nil
	case RoleCustom:
		return RoleCustom, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, value)
	}
}

// Capability names a single permission.
type Capability string

const (
	CapCreateContent Capability = "create_content"
	CapEditContent   Capability = "edit_content"
	CapDeleteContent Capability = "delete_content"
	CapInvite        Capability = "invite"
	CapRemoveMembers Capability = "remove_members"
	CapManageRoles   Capability = "manage_roles"
)

// Capabilities is the fixed-shape permission bundle attached to a role.
type Capabilities struct {
	CreateContent bool `json:"can_create_content"`
	EditContent   bool `json:"can_edit_content"`
	DeleteContent bool `json:"can_delete_content"`
	Invite        bool `json:"can_invite"`
	RemoveMembers bool `json:"can_remove_members"`
	ManageRoles   bool `json:"can_manage_roles"`
}

// Has reports whether the bundle grants c. Unknown capabilities are denied.
func (c Capabilities) Has(capability Capability) bool {
	switch capability {
	case CapCreateContent:
		return c.CreateContent
	case CapEditContent:
		return c.EditContent
	case CapDeleteContent:
		return c.DeleteContent
	case CapInvite:
		return c.Invite
	case CapRemoveMembers:
		return c.RemoveMembers
	case CapManageRoles:
		return c.ManageRoles
	default:
		return false
	}
}

// AllCapabilities is the owner bundle.
func AllCapabilities() Capabilities {
	return Capabilities{
		CreateContent: true,
		EditContent:   true,
		DeleteContent: true,
		Invite:        true,
		RemoveMembers: true,
		ManageRoles:   true,
	}
}

// MemberCapabilities is the built-in member bundle.
func MemberCapabilities() Capabilities {
	return Capabilities{CreateContent: true, EditContent: true}
}

// CustomRole is a per-team role record.
type CustomRole struct {
	ID           string
	TeamID       string
	Name         string
	Capabilities Capabilities
}
