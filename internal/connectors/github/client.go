package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"
)

// defaultTimeout bounds every API request so a dead endpoint surfaces as a
// connection error instead of a hang.
const defaultTimeout = 30 * time.Second

// newClient builds a go-github client from the connector configuration.
// With a token, requests are authenticated through an oauth2 transport;
// without one, they go out anonymously. The client is owned by the connector
// instance that creates it and must not be shared across workers.
func newClient(cfg *SourceConfig) (*gh.Client, error) {
	var httpClient *http.Client
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	} else {
		httpClient = &http.Client{}
	}
	httpClient.Timeout = defaultTimeout

	client := gh.NewClient(httpClient)
	if cfg.BaseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
		client.BaseURL = base
	}
	return client, nil
}
