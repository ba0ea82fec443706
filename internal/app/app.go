// Package app assembles the tenancy services on top of a store.
package app

import (
	"context"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	httpx "github.com/mattbell19/wordgen-v2-production-sub006/internal/http"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/repository"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/service/auth"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/service/billing"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/service/content"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/service/invitation"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/service/notify"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/service/permission"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/service/subscription"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/service/team"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/service/usage"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/ws"
	"github.com/mattbell19/wordgen-v2-production-sub006/pkg/config"
)

// Notifier builds the invitation notifier chain: structured logs, in-app push through
// hub, and the outbound webhook when one is configured.
func Notifier(cfg config.APIConfig, hub *ws.Hub, log *slog.Logger) notify.Notifier {
	chain := notify.Multi{notify.Log{Logger: log}}
	if hub != nil {
		chain = append(chain, notify.Push{Hub: hub})
	}
	if url := strings.TrimSpace(cfg.NotifyWebhookURL); url != "" {
		chain = append(chain, notify.NewWebhook(url, cfg.NotifyTimeout))
	}
	return chain
}

// Services wires every service against store. reg may be nil to skip metrics.
func Services(store repository.Store, cfg config.APIConfig, hub *ws.Hub, notifier notify.Notifier, reg prometheus.Registerer, log *slog.Logger) httpx.Services {
	perms := permission.New(store)
	subs := subscription.New(store, subscription.ParsePolicy(cfg.InactivePolicy), log.With("component", "subscription"))
	meter := usage.New(store, subs, log.With("component", "usage"), usage.NewMetrics(reg))

	var opts []invitation.Option
	if cfg.InvitationTTL > 0 {
		opts = append(opts, invitation.WithTTL(cfg.InvitationTTL))
	}
	if base := strings.TrimSpace(cfg.AppBaseURL); base != "" {
		opts = append(opts, invitation.WithAcceptURL(base+"/invitations/accept"))
	}

	members := auth.MembershipCheckFunc(func(ctx context.Context, userID, teamID string) error {
		_, err := perms.RequireMember(ctx, userID, teamID)
		return err
	})

	return httpx.Services{
		Auth:          auth.New(store, members, log.With("component", "auth"), cfg),
		Teams:         team.New(store, perms, log.With("component", "team")),
		Invitations:   invitation.New(store, store, store, perms, notifier, log.With("component", "invitation"), opts...),
		Subscriptions: subs,
		Usage:         meter,
		Content:       content.New(store, perms, meter, log.With("component", "content")),
		Billing:       billing.New(subs, cfg.BillingWebhookSecret, log.With("component", "billing")),
		Hub:           hub,
	}
}
