package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/term"

	apiclient "github.com/mattbell19/wordgen-v2-production-sub006/pkg/api/client"
)

const defaultAPIBase = "http://localhost:4000"

type cliConfig struct {
	APIBaseURL   string `json:"api_base_url"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TeamID       string `json:"team_id,omitempty"`
}

var buildVersion = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "signup":
		err = commandSignup(args)
	case "login":
		err = commandLogin(args)
	case "team":
		err = commandTeam(args)
	case "invite":
		err = commandInvite(args)
	case "usage":
		err = commandUsage(args)
	case "content":
		err = commandContent(args)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func readPassword(provided string) (string, error) {
	if secret := strings.TrimSpace(provided); secret != "" {
		return secret, nil
	}
	fmt.Print("Password: ")
	bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Print("\n")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(bytes), nil
}

func commandSignup(args []string) error {
	fs := flag.NewFlagSet("signup", flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	name := fs.String("name", "", "Display name")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	apiBase := fs.String("api", "", "API base URL (default "+defaultAPIBase+")")
	fs.Parse(args)

	if strings.TrimSpace(*email) == "" {
		return errors.New("--email is required")
	}
	secret, err := readPassword(*password)
	if err != nil {
		return err
	}
	cfg, client, err := clientFor(*apiBase)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	session, err := client.Signup(ctx, *email, secret, *name)
	if err != nil {
		return err
	}
	cfg.storeTokens(session.Tokens)
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Printf("signed up as %s\n", session.User.Email)
	return nil
}

func commandLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	apiBase := fs.String("api", "", "API base URL (default "+defaultAPIBase+")")
	fs.Parse(args)

	if strings.TrimSpace(*email) == "" {
		return errors.New("--email is required")
	}
	secret, err := readPassword(*password)
	if err != nil {
		return err
	}
	cfg, client, err := clientFor(*apiBase)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	session, err := client.Login(ctx, *email, secret)
	if err != nil {
		return err
	}
	cfg.storeTokens(session.Tokens)
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Println("login successful")
	return nil
}

func commandTeam(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: wordgen team [list|create|switch|members|remove|invite|invites]")
	}
	sub, rest := args[0], args[1:]
	fs := flag.NewFlagSet("team "+sub, flag.ExitOnError)
	teamID := fs.String("team", "", "Team identifier (defaults to the active team)")
	name := fs.String("name", "", "Team name")
	description := fs.String("description", "", "Team description")
	email := fs.String("email", "", "Invitee email")
	userID := fs.String("user", "", "User identifier")
	fs.Parse(rest)

	s, err := newSession()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	team := s.team(*teamID)

	switch sub {
	case "list":
		return s.call(ctx, func(token string) error {
			teams, active, err := s.client.ListTeams(ctx, token)
			if err != nil {
				return err
			}
			for _, t := range teams {
				marker := " "
				if t.ID == active {
					marker = "*"
				}
				fmt.Printf("%s %s\t%s\t%s\n", marker, t.ID, t.Name, t.CreatedAt.Format(time.RFC3339))
			}
			return nil
		})
	case "create":
		if strings.TrimSpace(*name) == "" {
			return errors.New("--name is required")
		}
		return s.call(ctx, func(token string) error {
			created, err := s.client.CreateTeam(ctx, token, *name, *description)
			if err != nil {
				return err
			}
			s.cfg.storeTokens(created.Tokens)
			fmt.Printf("team created: %s (%s)\n", created.Team.ID, created.Team.Name)
			return saveConfig(s.cfg)
		})
	case "switch":
		if team == "" {
			return errors.New("--team is required")
		}
		return s.call(ctx, func(token string) error {
			switched, err := s.client.SwitchTeam(ctx, token, team)
			if err != nil {
				return err
			}
			s.cfg.storeTokens(switched.Tokens)
			fmt.Printf("active team: %s (%s)\n", switched.Team.ID, switched.Team.Name)
			return saveConfig(s.cfg)
		})
	case "members":
		if team == "" {
			return errors.New("--team is required")
		}
		return s.call(ctx, func(token string) error {
			members, err := s.client.ListMembers(ctx, token, team)
			if err != nil {
				return err
			}
			for _, m := range members {
				fmt.Printf("%s\t%s\t%s\t%s\n", m.UserID, m.Email, m.Role, m.JoinedAt.Format(time.RFC3339))
			}
			return nil
		})
	case "remove":
		if team == "" || strings.TrimSpace(*userID) == "" {
			return errors.New("--team and --user are required")
		}
		return s.call(ctx, func(token string) error {
			if err := s.client.RemoveMember(ctx, token, team, *userID); err != nil {
				return err
			}
			fmt.Println("member removed")
			return nil
		})
	case "invite":
		if team == "" || strings.TrimSpace(*email) == "" {
			return errors.New("--team and --email are required")
		}
		return s.call(ctx, func(token string) error {
			inv, err := s.client.Invite(ctx, token, team, *email)
			if err != nil {
				return err
			}
			fmt.Printf("invitation sent to %s (expires %s)\ntoken: %s\n", inv.Email, inv.ExpiresAt.Format(time.RFC3339), inv.Token)
			return nil
		})
	case "invites":
		if team == "" {
			return errors.New("--team is required")
		}
		return s.call(ctx, func(token string) error {
			invites, err := s.client.ListInvitations(ctx, token, team)
			if err != nil {
				return err
			}
			for _, inv := range invites {
				fmt.Printf("%s\t%s\t%s\n", inv.Email, inv.Status, inv.ExpiresAt.Format(time.RFC3339))
			}
			return nil
		})
	default:
		return fmt.Errorf("unknown team command: %s", sub)
	}
}

func commandInvite(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: wordgen invite [show|accept|decline] --token <token>")
	}
	sub, rest := args[0], args[1:]
	fs := flag.NewFlagSet("invite "+sub, flag.ExitOnError)
	invitationToken := fs.String("token", "", "Invitation token")
	fs.Parse(rest)
	if strings.TrimSpace(*invitationToken) == "" {
		return errors.New("--token is required")
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	switch sub {
	case "show":
		details, err := s.client.VerifyInvitation(ctx, *invitationToken)
		if err != nil {
			return err
		}
		fmt.Printf("%s invited %s to %s (expires %s)\n", details.InviterName, details.Invitation.Email, details.TeamName, details.Invitation.ExpiresAt.Format(time.RFC3339))
		return nil
	case "accept":
		return s.call(ctx, func(token string) error {
			details, tokens, err := s.client.AcceptInvitation(ctx, token, *invitationToken)
			if err != nil {
				return err
			}
			s.cfg.storeTokens(tokens)
			fmt.Printf("joined %s\n", details.TeamName)
			return saveConfig(s.cfg)
		})
	case "decline":
		return s.call(ctx, func(token string) error {
			details, err := s.client.DeclineInvitation(ctx, token, *invitationToken)
			if err != nil {
				return err
			}
			fmt.Printf("declined invitation to %s\n", details.TeamName)
			return nil
		})
	default:
		return fmt.Errorf("unknown invite command: %s", sub)
	}
}

func commandUsage(args []string) error {
	fs := flag.NewFlagSet("usage", flag.ExitOnError)
	teamID := fs.String("team", "", "Team identifier (defaults to the active team)")
	fs.Parse(args)

	s, err := newSession()
	if err != nil {
		return err
	}
	team := s.team(*teamID)
	if team == "" {
		return errors.New("--team is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return s.call(ctx, func(token string) error {
		usage, err := s.client.GetUsage(ctx, token, team)
		if err != nil {
			return err
		}
		fmt.Printf("period %s .. %s (subscription active: %t)\n", usage.Period.Start.Format(time.RFC3339), usage.Period.End.Format(time.RFC3339), usage.SubscriptionActive)
		for _, r := range usage.Resources {
			if !r.Limited {
				fmt.Printf("%s\t%d used\tunlimited\n", r.ResourceType, r.Used)
				continue
			}
			fmt.Printf("%s\t%d/%d used\t%d left\n", r.ResourceType, r.Used, r.Limit, r.Remaining)
		}
		return nil
	})
}

func commandContent(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: wordgen content [list|create]")
	}
	sub, rest := args[0], args[1:]
	fs := flag.NewFlagSet("content "+sub, flag.ExitOnError)
	kind := fs.String("kind", "", "Content kind (article|keyword)")
	title := fs.String("title", "", "Title")
	body := fs.String("body", "", "Body")
	limit := fs.Int("limit", 20, "Maximum number of items")
	fs.Parse(rest)

	s, err := newSession()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	switch sub {
	case "list":
		return s.call(ctx, func(token string) error {
			items, err := s.client.ListContent(ctx, token, *kind, *limit)
			if err != nil {
				return err
			}
			for _, item := range items {
				fmt.Printf("%s\t%s\t%s\t%s\n", item.ID, item.Kind, item.Title, item.CreatedAt.Format(time.RFC3339))
			}
			return nil
		})
	case "create":
		if strings.TrimSpace(*kind) == "" || strings.TrimSpace(*title) == "" {
			return errors.New("--kind and --title are required")
		}
		return s.call(ctx, func(token string) error {
			item, err := s.client.CreateContent(ctx, token, *kind, *title, *body)
			if err != nil {
				if apiclient.IsCode(err, "quota_exceeded") {
					return errors.New("the team has used its quota for this period")
				}
				return err
			}
			fmt.Printf("content created: %s\n", item.ID)
			return nil
		})
	default:
		return fmt.Errorf("unknown content command: %s", sub)
	}
}

type session struct {
	cfg    cliConfig
	client *apiclient.Client
}

func newSession() (*session, error) {
	cfg, client, err := clientFor("")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, errors.New("please login first using 'wordgen login'")
	}
	return &session{cfg: cfg, client: client}, nil
}

func (s *session) team(flagValue string) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}
	return s.cfg.TeamID
}

// call runs fn with the stored access token and retries once with refreshed tokens
// when the API reports the token as expired.
func (s *session) call(ctx context.Context, fn func(token string) error) error {
	err := fn(s.cfg.AccessToken)
	var apiErr apiclient.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized || s.cfg.RefreshToken == "" {
		return err
	}
	tokens, refreshErr := s.client.Refresh(ctx, s.cfg.RefreshToken)
	if refreshErr != nil {
		return fmt.Errorf("session expired, please login again: %w", refreshErr)
	}
	s.cfg.storeTokens(tokens)
	if err := saveConfig(s.cfg); err != nil {
		return err
	}
	return fn(s.cfg.AccessToken)
}

func (c *cliConfig) storeTokens(tokens apiclient.TokenPair) {
	c.AccessToken = tokens.AccessToken
	c.RefreshToken = tokens.RefreshToken
	c.TeamID = tokens.TeamID
}

func clientFor(apiBase string) (cliConfig, *apiclient.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cliConfig{}, nil, err
	}
	if strings.TrimSpace(apiBase) != "" {
		cfg.APIBaseURL = apiBase
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return cliConfig{}, nil, err
	}
	return cfg, client, nil
}

func loadConfig() (cliConfig, error) {
	path, err := configPath()
	if err != nil {
		return cliConfig{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cliConfig{APIBaseURL: defaultAPIBase}, nil
		}
		return cliConfig{}, err
	}
	var cfg cliConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cliConfig{}, err
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBase
	}
	return cfg, nil
}

func saveConfig(cfg cliConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func configPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "wordgen", "config.json"), nil
}

func printUsage() {
	fmt.Printf("wordgen CLI %s\n\n", buildVersion)
	fmt.Print(`Usage:
	wordgen signup --email user@example.com [--name Alice] [--password secret] [--api http://localhost:4000]
	wordgen login --email user@example.com [--password secret] [--api http://localhost:4000]
	wordgen team list
	wordgen team create --name <name> [--description text]
	wordgen team switch --team <team-id>
	wordgen team members [--team <team-id>]
	wordgen team remove [--team <team-id>] --user <user-id>
	wordgen team invite [--team <team-id>] --email <email>
	wordgen team invites [--team <team-id>]
	wordgen invite show|accept|decline --token <token>
	wordgen usage [--team <team-id>]
	wordgen content list [--kind article|keyword] [--limit N]
	wordgen content create --kind article|keyword --title <title> [--body text]
	wordgen version
`)
}

func printVersion() {
	fmt.Println(strings.TrimSpace(buildVersion))
}
