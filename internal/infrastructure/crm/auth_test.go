package crm

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osmap/backend/internal/domain/dispatch"
)

func TestClient_Authenticate(t *testing.T) {
	t.Run("token is read from the reply and installed", func(t *testing.T) {
		f, srv := newFakeCRM(t)
		f.handle(pathAuth, respondJSON(http.StatusOK, `{"senha":"abc123"}`))
		c, err := NewClient(&Config{BaseURL: srv.URL, Login: " user ", Password: "pass"})
		require.NoError(t, err)

		require.NoError(t, c.EnsureToken(context.Background()))
		assert.Equal(t, "abc123", c.Token())
		assert.Equal(t, map[string]string{"login": "user", "senha": "pass"}, f.lastRequest(pathAuth))
		assert.Empty(t, f.lastHeader(pathAuth).Get("Authorization"))
	})

	t.Run("token field takes precedence", func(t *testing.T) {
		f, srv := newFakeCRM(t)
		f.handle(pathAuth, respondJSON(http.StatusOK, `{"senha":"x","token":"y"}`))
		c, err := NewClient(&Config{BaseURL: srv.URL, Login: "u", Password: "p"})
		require.NoError(t, err)

		token, err := c.Authenticate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "y", token)
	})

	t.Run("configured token skips auth", func(t *testing.T) {
		f, srv := newFakeCRM(t)
		c := newTestClient(t, srv.URL)

		require.NoError(t, c.EnsureToken(context.Background()))
		assert.Nil(t, f.lastRequest(pathAuth))
	})

	t.Run("rejected credentials", func(t *testing.T) {
		f, srv := newFakeCRM(t)
		f.handle(pathAuth, respondJSON(http.StatusUnauthorized, `{}`))
		c, err := NewClient(&Config{BaseURL: srv.URL, Login: "u", Password: "p"})
		require.NoError(t, err)

		_, err = c.Authenticate(context.Background())
		assert.ErrorIs(t, err, dispatch.ErrUpstreamBadResponse)
		assert.Empty(t, c.Token())
	})

	t.Run("reply without token", func(t *testing.T) {
		f, srv := newFakeCRM(t)
		f.handle(pathAuth, respondJSON(http.StatusOK, `{"ok":true}`))
		c, err := NewClient(&Config{BaseURL: srv.URL, Login: "u", Password: "p"})
		require.NoError(t, err)

		_, err = c.Authenticate(context.Background())
		assert.ErrorIs(t, err, dispatch.ErrUpstreamBadResponse)
	})
}
