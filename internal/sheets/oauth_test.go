package sheets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestSaveAndLoadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	token := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, SaveToken(path, token))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "access", loaded.AccessToken)
	assert.Equal(t, "refresh", loaded.RefreshToken)
	assert.True(t, token.Expiry.Equal(loaded.Expiry))
}

func TestLoadToken_Missing(t *testing.T) {
	_, err := LoadToken(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadToken_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0600))

	_, err := LoadToken(path)
	assert.Error(t, err)
}

func TestOAuthConfig(t *testing.T) {
	cfg := oauthConfig("id", "secret", "http://127.0.0.1:8085/callback")

	assert.Equal(t, "id", cfg.ClientID)
	assert.Equal(t, "http://127.0.0.1:8085/callback", cfg.RedirectURL)
	assert.Equal(t, []string{"https://www.googleapis.com/auth/spreadsheets"}, cfg.Scopes)

	url := cfg.AuthCodeURL("state-1", oauth2.AccessTypeOffline)
	assert.Contains(t, url, "state=state-1")
	assert.Contains(t, url, "access_type=offline")
}
