package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client provides typed access to the tenancy API for interactive tools.
type Client struct {
	baseURL string
	http    *resty.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the transport used by resty.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = resty.NewWithClient(h)
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:4000"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL: strings.TrimRight(trimmed, "/"),
		http:    resty.New().SetTimeout(15 * time.Second),
	}
	for _, opt := range opts {
		opt(cli)
	}
	cli.http.SetBaseURL(cli.baseURL).SetHeader("Accept", "application/json")
	return cli, nil
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("api request failed (%d %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

// IsCode reports whether err is an APIError carrying code.
func IsCode(err error, code string) bool {
	var apiErr APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string, v any) error {
	if c == nil {
		return errors.New("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var apiErr errorBody
	req := c.http.R().SetContext(ctx).SetError(&apiErr)
	if body != nil {
		req.SetBody(body)
	}
	if token = strings.TrimSpace(token); token != "" {
		req.SetAuthToken(token)
	}
	if v != nil {
		req.SetResult(v)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	if resp.IsError() {
		msg := strings.TrimSpace(apiErr.Error)
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return APIError{Status: resp.StatusCode(), Code: apiErr.Code, Message: msg}
	}
	return nil
}

// User reflects API user payloads.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// TokenPair includes access and refresh tokens. TeamID is the active team the
// access token is bound to.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TeamID       string `json:"team_id"`
}

// Session is returned by signup and login.
type Session struct {
	User   User      `json:"user"`
	Tokens TokenPair `json:"tokens"`
}

// Signup registers an account.
func (c *Client) Signup(ctx context.Context, email, password, name string) (Session, error) {
	body := map[string]string{"email": email, "password": password, "name": name}
	var resp Session
	if err := c.do(ctx, http.MethodPost, "/auth/signup", body, "", &resp); err != nil {
		return Session{}, err
	}
	return resp, nil
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	body := map[string]string{"email": email, "password": password}
	var resp Session
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, "", &resp); err != nil {
		return Session{}, err
	}
	return resp, nil
}

// Refresh trades a refresh token for a new pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	var resp struct {
		Tokens TokenPair `json:"tokens"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": refreshToken}, "", &resp); err != nil {
		return TokenPair{}, err
	}
	return resp.Tokens, nil
}

// Team represents a tenant workspace.
type Team struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// TeamSession is a team together with tokens bound to it.
type TeamSession struct {
	Team   Team      `json:"team"`
	Tokens TokenPair `json:"tokens"`
}

// CreateTeam creates a team owned by the caller and returns tokens bound to it.
func (c *Client) CreateTeam(ctx context.Context, token, name, description string) (TeamSession, error) {
	body := map[string]any{"name": name}
	if strings.TrimSpace(description) != "" {
		body["description"] = description
	}
	var resp TeamSession
	if err := c.do(ctx, http.MethodPost, "/teams", body, token, &resp); err != nil {
		return TeamSession{}, err
	}
	return resp, nil
}

// ListTeams returns all teams for the authenticated user.
func (c *Client) ListTeams(ctx context.Context, token string) ([]Team, string, error) {
	var resp struct {
		Teams        []Team `json:"teams"`
		ActiveTeamID string `json:"active_team_id"`
	}
	if err := c.do(ctx, http.MethodGet, "/teams", nil, token, &resp); err != nil {
		return nil, "", err
	}
	return resp.Teams, resp.ActiveTeamID, nil
}

// SwitchTeam binds the session to teamID.
func (c *Client) SwitchTeam(ctx context.Context, token, teamID string) (TeamSession, error) {
	var resp TeamSession
	if err := c.do(ctx, http.MethodPost, "/teams/switch", map[string]string{"team_id": teamID}, token, &resp); err != nil {
		return TeamSession{}, err
	}
	return resp, nil
}

// Member is a roster entry.
type Member struct {
	UserID   string    `json:"user_id"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Role     string    `json:"role"`
	RoleID   *string   `json:"role_id,omitempty"`
	Status   string    `json:"status"`
	JoinedAt time.Time `json:"joined_at"`
}

// ListMembers returns the active members of a team.
func (c *Client) ListMembers(ctx context.Context, token, teamID string) ([]Member, error) {
	var resp struct {
		Members []Member `json:"members"`
	}
	if err := c.do(ctx, http.MethodGet, "/teams/"+url.PathEscape(teamID)+"/members", nil, token, &resp); err != nil {
		return nil, err
	}
	return resp.Members, nil
}

// RemoveMember removes userID from the team.
func (c *Client) RemoveMember(ctx context.Context, token, teamID, userID string) error {
	path := fmt.Sprintf("/teams/%s/members/%s", url.PathEscape(teamID), url.PathEscape(userID))
	return c.do(ctx, http.MethodDelete, path, nil, token, nil)
}

// Invitation mirrors the invitation payload. Token is only present when issued.
type Invitation struct {
	Token     string    `json:"token,omitempty"`
	TeamID    string    `json:"team_id"`
	InviterID string    `json:"inviter_id"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// InvitationDetails is the invitation as shown to an invitee.
type InvitationDetails struct {
	Invitation   Invitation `json:"invitation"`
	TeamName     string     `json:"team_name"`
	InviterName  string     `json:"inviter_name"`
	InviterEmail string     `json:"inviter_email,omitempty"`
}

// Invite sends an invitation to email.
func (c *Client) Invite(ctx context.Context, token, teamID, email string) (Invitation, error) {
	var inv Invitation
	if err := c.do(ctx, http.MethodPost, "/teams/"+url.PathEscape(teamID)+"/invite", map[string]string{"email": email}, token, &inv); err != nil {
		return Invitation{}, err
	}
	return inv, nil
}

// ListInvitations returns pending invitations of a team.
func (c *Client) ListInvitations(ctx context.Context, token, teamID string) ([]Invitation, error) {
	var resp struct {
		Invitations []Invitation `json:"invitations"`
	}
	if err := c.do(ctx, http.MethodGet, "/teams/"+url.PathEscape(teamID)+"/invites", nil, token, &resp); err != nil {
		return nil, err
	}
	return resp.Invitations, nil
}

// VerifyInvitation looks an invitation token up without resolving it.
func (c *Client) VerifyInvitation(ctx context.Context, invitationToken string) (InvitationDetails, error) {
	var details InvitationDetails
	path := "/teams/invites/verify?token=" + url.QueryEscape(invitationToken)
	if err := c.do(ctx, http.MethodGet, path, nil, "", &details); err != nil {
		return InvitationDetails{}, err
	}
	return details, nil
}

// AcceptInvitation joins the invitation's team and returns tokens bound to it.
func (c *Client) AcceptInvitation(ctx context.Context, token, invitationToken string) (InvitationDetails, TokenPair, error) {
	var resp struct {
		Invitation InvitationDetails `json:"invitation"`
		Tokens     TokenPair         `json:"tokens"`
	}
	if err := c.do(ctx, http.MethodPost, "/teams/invites/accept", map[string]string{"token": invitationToken}, token, &resp); err != nil {
		return InvitationDetails{}, TokenPair{}, err
	}
	return resp.Invitation, resp.Tokens, nil
}

// DeclineInvitation closes the invitation.
func (c *Client) DeclineInvitation(ctx context.Context, token, invitationToken string) (InvitationDetails, error) {
	var details InvitationDetails
	if err := c.do(ctx, http.MethodPost, "/teams/invites/decline", map[string]string{"token": invitationToken}, token, &details); err != nil {
		return InvitationDetails{}, err
	}
	return details, nil
}

// ResourceUsage is one line of a usage summary. Remaining is -1 when unlimited.
type ResourceUsage struct {
	ResourceType string `json:"resource_type"`
	Used         int    `json:"used"`
	Limit        int    `json:"limit"`
	Limited      bool   `json:"limited"`
	Remaining    int    `json:"remaining"`
}

// Usage is the current-period usage of a team.
type Usage struct {
	Period struct {
		Start time.Time `json:"start"`
		End   time.Time `json:"end"`
	} `json:"period"`
	SubscriptionActive bool            `json:"subscription_active"`
	Resources          []ResourceUsage `json:"resources"`
}

// GetUsage returns the team's usage for the current period.
func (c *Client) GetUsage(ctx context.Context, token, teamID string) (Usage, error) {
	var usage Usage
	if err := c.do(ctx, http.MethodGet, "/teams/"+url.PathEscape(teamID)+"/usage", nil, token, &usage); err != nil {
		return Usage{}, err
	}
	return usage, nil
}

// Content is a team-owned artifact.
type Content struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"team_id"`
	CreatorID string    `json:"creator_id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateContent stores content in the token's active team, consuming quota.
func (c *Client) CreateContent(ctx context.Context, token, kind, title, body string) (Content, error) {
	var item Content
	payload := map[string]string{"kind": kind, "title": title, "body": body}
	if err := c.do(ctx, http.MethodPost, "/content", payload, token, &item); err != nil {
		return Content{}, err
	}
	return item, nil
}

// ListContent lists content of the token's active team.
func (c *Client) ListContent(ctx context.Context, token, kind string, limit int) ([]Content, error) {
	query := url.Values{}
	if kind != "" {
		query.Set("kind", kind)
	}
	if limit > 0 {
		query.Set("limit", fmt.Sprint(limit))
	}
	path := "/content"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var resp struct {
		Items []Content `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, token, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}
