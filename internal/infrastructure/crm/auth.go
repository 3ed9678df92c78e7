package crm

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/osmap/backend/internal/domain/dispatch"
)

// Authenticate exchanges the configured login and password for a token and
// installs it on the client.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	if !c.config.HasCredentials() {
		return "", ErrConfigMissingCredentials
	}

	body, err := c.doRequest(ctx, pathAuth, authRequest{
		Login:    strings.TrimSpace(c.config.Login),
		Password: strings.TrimSpace(c.config.Password),
	}, false)
	if err != nil {
		return "", err
	}

	var resp authResponse
	if err := decodeJSON(body, &resp); err != nil {
		return "", badPayload(pathAuth, err)
	}
	token := strings.TrimSpace(resp.token())
	if token == "" {
		return "", dispatch.ErrUpstreamBadResponse.WithMessage("crm auth reply carries no token")
	}

	c.SetToken(token)
	c.logger.Info("crm token obtained", zap.String("login", c.config.Login))
	return token, nil
}

// EnsureToken authenticates when no token is configured
func (c *Client) EnsureToken(ctx context.Context) error {
	if c.Token() != "" {
		return nil
	}
	_, err := c.Authenticate(ctx)
	return err
}
