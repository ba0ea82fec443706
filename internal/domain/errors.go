package domain

import "errors"

// Domain failures. They are expected, user-surfaceable and never retried.
var (
	ErrForbidden               = errors.New("forbidden")
	ErrNotAMember              = errors.New("not a member of this team")
	ErrAlreadyOwnsTeam         = errors.New("user already owns a team")
	ErrAlreadyMember           = errors.New("user is already an active team member")
	ErrDuplicatePendingInvite  = errors.New("a pending invitation already exists for this email")
	ErrInvalidToken            = errors.New("invitation token is invalid")
	ErrInvitationExpired       = errors.New("invitation has expired")
	ErrInvitationNotActionable = errors.New("invitation can no longer be acted upon")
	ErrCannotRemoveOwner       = errors.New("the team owner cannot be removed")
	ErrQuotaExceeded           = errors.New("usage quota exceeded")
	ErrInvalidArgument         = errors.New("invalid argument")
)

// ErrUnavailable reports an infrastructure failure that persisted after retries.
var ErrUnavailable = errors.New("service temporarily unavailable")
