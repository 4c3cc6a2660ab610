// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/sevigo/runner-warden/internal/config"
)

// ClientSource hands out API clients authenticated with the service credential.
// With a GitHub App, installationID selects the installation; zero falls back to
// the configured one. With a personal access token it is ignored.
type ClientSource interface {
	Client(ctx context.Context, installationID int64) (*github.Client, error)
}

// NewClientSource builds the source matching the configured service credential.
// The credential is read once here and never reloaded.
func NewClientSource(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ClientSource, error) {
	if !cfg.GitHub.UsesApp() {
		logger.Info("using personal access token for GitHub API")
		client, err := withBaseURL(NewPATClient(ctx, cfg.GitHub.Token), cfg.GitHub.APIURL)
		if err != nil {
			return nil, err
		}
		return staticSource{client: client}, nil
	}

	privateKey, err := os.ReadFile(cfg.GitHub.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key from %s: %w", cfg.GitHub.PrivateKeyPath, err)
	}
	logger.Info("using GitHub App installation credentials", "app_id", cfg.GitHub.AppID, "installation_id", cfg.GitHub.InstallationID)

	return &appSource{
		appID:          cfg.GitHub.AppID,
		installationID: cfg.GitHub.InstallationID,
		privateKey:     privateKey,
		apiURL:         cfg.GitHub.APIURL,
		clients:        make(map[int64]*github.Client),
		logger:         logger,
	}, nil
}

// NewPATClient creates a GitHub client authenticated with a Personal Access Token (PAT).
func NewPATClient(ctx context.Context, token string) *github.Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	return github.NewClient(tc)
}

type staticSource struct {
	client *github.Client
}

func (s staticSource) Client(context.Context, int64) (*github.Client, error) {
	return s.client, nil
}

// appSource caches one installation transport per installation. ghinstallation
// refreshes the installation token before it expires.
type appSource struct {
	appID          int64
	installationID int64
	privateKey     []byte
	apiURL         string

	mu      sync.Mutex
	clients map[int64]*github.Client
	logger  *slog.Logger
}

func (s *appSource) Client(_ context.Context, installationID int64) (*github.Client, error) {
	if installationID == 0 {
		installationID = s.installationID
	}
	if installationID == 0 {
		return nil, fmt.Errorf("installation ID is missing from the event and GITHUB_INSTALLATION_ID is not set")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[installationID]; ok {
		return c, nil
	}

	itr, err := ghinstallation.New(http.DefaultTransport, s.appID, installationID, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub App transport for installation %d: %w", installationID, err)
	}
	if s.apiURL != "" {
		itr.BaseURL = strings.TrimSuffix(s.apiURL, "/")
	}

	client, err := withBaseURL(github.NewClient(&http.Client{Transport: itr}), s.apiURL)
	if err != nil {
		return nil, err
	}
	s.clients[installationID] = client
	s.logger.Debug("created installation client", "installation_id", installationID)
	return client, nil
}

func withBaseURL(client *github.Client, apiURL string) (*github.Client, error) {
	if apiURL == "" {
		return client, nil
	}
	c, err := client.WithEnterpriseURLs(apiURL, apiURL)
	if err != nil {
		return nil, fmt.Errorf("failed to configure GitHub API URL %s: %w", apiURL, err)
	}
	return c, nil
}
