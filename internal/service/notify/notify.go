// Package notify delivers invitation lifecycle messages to external collaborators.
// Delivery is best effort: callers log failures and never roll back state.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Invitation is sent to the invitee when an invitation is issued.
type Invitation struct {
	Email       string    `json:"email"`
	TeamID      string    `json:"team_id"`
	TeamName    string    `json:"team_name"`
	InviterID   string    `json:"inviter_id"`
	InviterName string    `json:"inviter_name"`
	Token       string    `json:"token"`
	AcceptURL   string    `json:"accept_url,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Resolution is sent to the inviter once the invitee accepts or declines.
type Resolution struct {
	InviterID    string `json:"inviter_id"`
	InviterEmail string `json:"inviter_email"`
	InviteeEmail string `json:"invitee_email"`
	TeamID       string `json:"team_id"`
	TeamName     string `json:"team_name"`
	UserID       string `json:"user_id"`
	Accepted     bool   `json:"accepted"`
}

// Notifier is the notification collaborator.
type Notifier interface {
	NotifyInvitation(ctx context.Context, msg Invitation) error
	NotifyInvitationResolved(ctx context.Context, msg Resolution) error
}

// Log writes notifications to the structured log. It is the fallback when no relay
// is configured.
type Log struct {
	Logger *slog.Logger
}

// NotifyInvitation implements Notifier.
func (l Log) NotifyInvitation(_ context.Context, msg Invitation) error {
	l.Logger.Info("invitation issued",
		"team_id", msg.TeamID,
		"email", msg.Email,
		"inviter_id", msg.InviterID,
		"expires_at", msg.ExpiresAt,
	)
	return nil
}

// NotifyInvitationResolved implements Notifier.
func (l Log) NotifyInvitationResolved(_ context.Context, msg Resolution) error {
	l.Logger.Info("invitation resolved",
		"team_id", msg.TeamID,
		"inviter_id", msg.InviterID,
		"user_id", msg.UserID,
		"accepted", msg.Accepted,
	)
	return nil
}

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

// NotifyInvitation implements Notifier.
func (m Multi) NotifyInvitation(ctx context.Context, msg Invitation) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyInvitation(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NotifyInvitationResolved implements Notifier.
func (m Multi) NotifyInvitationResolved(ctx context.Context, msg Resolution) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyInvitationResolved(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
