package domain

import "time"

// InvitationStatus enumerates the invitation lifecycle. Only pending is non-terminal.
const (
	InvitationStatusPending  = "pending"
	InvitationStatusAccepted = "accepted"
	InvitationStatusDeclined = "declined"
	InvitationStatusExpired  = "expired"
)

// Invitation is a single-use credential that lets the invitee join a team.
// Token is only populated when the invitation is first issued; storage keeps
// the SHA-256 hash.
type Invitation struct {
	Token        string
	TokenHash    string
	TeamID       string
	InviterID    string
	InviteeEmail string
	Status       string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	ResolvedAt   *time.Time
	ResolvedBy   *string
}

// Expired reports whether the invitation is past its expiry relative to now.
func (i Invitation) Expired(now time.Time) bool {
	if i.ExpiresAt.IsZero() {
		return false
	}
	return now.UTC().After(i.ExpiresAt.UTC())
}

// Pending reports whether the invitation can still be resolved.
func (i Invitation) Pending() bool {
	return i.Status == InvitationStatusPending
}
