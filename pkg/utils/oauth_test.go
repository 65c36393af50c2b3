package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/jakechorley/taskflow-connect/internal/config"
)

func TestMissingScopes(t *testing.T) {
	assert.NoError(t, MissingScopes([]string{ScopeGmailSend, ScopeSheets, "openid"}))

	err := MissingScopes([]string{ScopeSheets})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ScopeGmailSend)
}

func TestTokenFileRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	missing, err := LoadTokenFromFile("test")
	require.NoError(t, err)
	assert.Nil(t, missing)

	token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", Expiry: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, SaveTokenToFile("test", token))

	loaded, err := LoadTokenFromFile("test")
	require.NoError(t, err)
	assert.Equal(t, "access", loaded.AccessToken)
	assert.Equal(t, "refresh", loaded.RefreshToken)

	require.NoError(t, DeleteTokenFile("test"))
	require.NoError(t, DeleteTokenFile("test"))

	gone, err := LoadTokenFromFile("test")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestGetOAuthConfig(t *testing.T) {
	cfg := &config.OAuthClientConfig{Installed: config.OAuthInstalled{
		ClientID:     "id",
		ProjectID:    "p",
		AuthURI:      "https://accounts.google.com/o/oauth2/auth",
		TokenURI:     "https://oauth2.googleapis.com/token",
		ClientSecret: "secret",
		RedirectURIs: []string{"http://localhost"},
	}}

	oauthConfig, err := GetOAuthConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/oauth/callback", oauthConfig.RedirectURL)
	assert.ElementsMatch(t, RequiredScopes(), oauthConfig.Scopes)
}
