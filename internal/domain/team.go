package domain

import "time"

// Team is the tenant boundary that owns memberships, invitations, usage and content.
type Team struct {
	ID          string
	Name        string
	Description *string
	OwnerID     string
	CreatedAt   time.Time
}

// IsOwner reports whether userID owns the team.
func (t Team) IsOwner(userID string) bool {
	return t.OwnerID != "" && t.OwnerID == userID
}

// MembershipStatus enumerates membership states.
const (
	MembershipStatusActive  = "active"
	MembershipStatusRemoved = "removed"
)

// Membership links a user to a team with a role. Rows are never deleted; removal
// flips Status so content attribution survives.
type Membership struct {
	TeamID    string
	UserID    string
	Role      Role
	RoleID    *string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether the membership currently grants access.
func (m Membership) Active() bool {
	return m.Status == MembershipStatusActive
}

// MemberView joins a membership with the user's public profile.
type MemberView struct {
	Membership
	Email string
	Name  string
}

// ActiveTeamContext is the working team selected for a session.
type ActiveTeamContext struct {
	UserID       string
	Team         Team
	Role         Role
	Capabilities Capabilities
}
