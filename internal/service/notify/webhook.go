package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Webhook posts notifications as JSON to a mail relay.
type Webhook struct {
	client  *resty.Client
	baseURL string
}

// NewWebhook builds a relay client. Requests are retried twice on transport errors
// and 5xx responses.
func NewWebhook(baseURL string, timeout time.Duration) *Webhook {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetHeader("Content-Type", "application/json").
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() >= 500
		})
	return &Webhook{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// NotifyInvitation implements Notifier.
func (w *Webhook) NotifyInvitation(ctx context.Context, msg Invitation) error {
	return w.post(ctx, "/invitations", msg)
}

// NotifyInvitationResolved implements Notifier.
func (w *Webhook) NotifyInvitationResolved(ctx context.Context, msg Resolution) error {
	return w.post(ctx, "/invitations/resolved", msg)
}

func (w *Webhook) post(ctx context.Context, path string, body any) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(w.baseURL + path)
	if err != nil {
		return fmt.Errorf("notify relay %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("notify relay %s: unexpected status %d", path, resp.StatusCode())
	}
	return nil
}
