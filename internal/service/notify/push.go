package notify

import (
	"context"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/ws"
)

// Push event types.
const (
	EventInvitationAccepted = "invitation.accepted"
	EventInvitationDeclined = "invitation.declined"
)

// Push forwards resolutions to the inviter's open websocket connections. Invitees
// usually have no account yet, so invitation issue is not pushed.
type Push struct {
	Hub *ws.Hub
}

// NotifyInvitation implements Notifier.
func (p Push) NotifyInvitation(context.Context, Invitation) error {
	return nil
}

// NotifyInvitationResolved implements Notifier.
func (p Push) NotifyInvitationResolved(_ context.Context, msg Resolution) error {
	eventType := EventInvitationDeclined
	if msg.Accepted {
		eventType = EventInvitationAccepted
	}
	return p.Hub.Publish(msg.InviterID, ws.Event{
		Type:   eventType,
		TeamID: msg.TeamID,
		Data: map[string]any{
			"invitee_email": msg.InviteeEmail,
			"user_id":       msg.UserID,
		},
	})
}
