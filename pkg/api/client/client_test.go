package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateTeamSendsBearerAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/teams" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected authorization %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["name"] != "Acme" {
			t.Errorf("unexpected body %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"team":{"id":"t1","name":"Acme","owner_id":"u1"},"tokens":{"access_token":"a","refresh_token":"r","expires_in":900,"team_id":"t1"}}`))
	}))
	defer srv.Close()

	cli, err := New(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	resp, err := cli.CreateTeam(context.Background(), "tok", "Acme", "")
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	if resp.Team.ID != "t1" || resp.Tokens.TeamID != "t1" || resp.Tokens.ExpiresIn != 900 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestErrorResponsesBecomeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"quota exceeded","code":"quota_exceeded"}`))
	}))
	defer srv.Close()

	cli, err := New(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = cli.CreateContent(context.Background(), "tok", "article", "t", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsCode(err, "quota_exceeded") {
		t.Fatalf("expected quota_exceeded APIError, got %v", err)
	}
	apiErr := err.(APIError)
	if apiErr.Status != http.StatusConflict || apiErr.Message != "quota exceeded" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestVerifyInvitationEscapesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("token"); got != "a+b/c" {
			t.Errorf("unexpected token %q", got)
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("verify should be unauthenticated")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"invitation":{"team_id":"t1","email":"bob@example.com","status":"pending"},"team_name":"Acme","inviter_name":"Alice"}`))
	}))
	defer srv.Close()

	cli, err := New(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	details, err := cli.VerifyInvitation(context.Background(), "a+b/c")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if details.TeamName != "Acme" || details.Invitation.Email != "bob@example.com" {
		t.Fatalf("unexpected details %+v", details)
	}
}
