package commands

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/jakechorley/taskflow-connect/internal/config"
	"github.com/jakechorley/taskflow-connect/pkg/auth"
	"github.com/jakechorley/taskflow-connect/pkg/clients/gmailclient"
	"github.com/jakechorley/taskflow-connect/pkg/clients/sheetsclient"
	"github.com/jakechorley/taskflow-connect/pkg/db"
	"github.com/jakechorley/taskflow-connect/pkg/memdb"
	"github.com/jakechorley/taskflow-connect/pkg/notify"
	"github.com/jakechorley/taskflow-connect/pkg/postgres"
	"github.com/jakechorley/taskflow-connect/pkg/utils"
)

// AppContext holds the application dependencies shared across all commands.
// Google clients are created on first use so commands that do not need them
// run without OAuth credentials.
type AppContext struct {
	Env      string
	Cfg      *config.Config
	Database db.Database
	Postgres *postgres.DB
	Logger   *zap.Logger
	Ctx      context.Context

	oauthConfig *oauth2.Config
	oauthToken  *oauth2.Token
}

// OpenDatabase connects the configured storage backend
func (a *AppContext) OpenDatabase() error {
	switch a.Cfg.Storage {
	case config.StorageMemory:
		a.Logger.Warn("Using in-memory storage; data is lost on exit")
		a.Database = memdb.New()
	case config.StoragePostgres:
		a.Logger.Info("Connecting to database")
		pg, err := postgres.NewDB(a.Ctx, a.Cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.Postgres = pg
		a.Database = pg
	default:
		return fmt.Errorf("unknown storage %q", a.Cfg.Storage)
	}
	return nil
}

// Close releases the database connection
func (a *AppContext) Close() {
	if a.Postgres != nil {
		a.Postgres.Close()
	}
}

// Tokens builds the session and reset token issuer from config
func (a *AppContext) Tokens() (*auth.TokenIssuer, error) {
	return auth.NewTokenIssuer(a.Cfg.JWTSecret, a.Cfg.SessionTTL, a.Cfg.ResetTokenTTL)
}

// googleAuth loads the OAuth client and a stored token. It never opens a browser;
// run the authorize command first.
func (a *AppContext) googleAuth() (*oauth2.Config, *oauth2.Token, error) {
	if a.oauthToken != nil {
		return a.oauthConfig, a.oauthToken, nil
	}

	clientCfg, err := config.LoadOAuthClientWithEnv(a.Env)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load OAuth client config: %w", err)
	}
	oauthConfig, err := utils.GetOAuthConfig(clientCfg)
	if err != nil {
		return nil, nil, err
	}
	token, err := utils.GetToken(a.Ctx, oauthConfig, a.Env)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get OAuth token (run the authorize command): %w", err)
	}

	a.oauthConfig, a.oauthToken = oauthConfig, token
	return oauthConfig, token, nil
}

// SheetsClient returns a Google Sheets client
func (a *AppContext) SheetsClient() (*sheetsclient.Client, error) {
	oauthConfig, token, err := a.googleAuth()
	if err != nil {
		return nil, err
	}
	a.Logger.Debug("Initializing sheets client")
	return sheetsclient.NewClient(a.Ctx, oauthConfig, token)
}

// Mailer returns the Gmail sender when enabled, otherwise a mailer that only logs.
// A missing OAuth client file falls back to logging.
func (a *AppContext) Mailer() (notify.Mailer, error) {
	if !a.Cfg.Gmail.Enabled {
		return notify.LogMailer{Logger: a.Logger}, nil
	}

	oauthConfig, token, err := a.googleAuth()
	if errors.Is(err, config.ErrOAuthClientNotFound) {
		a.Logger.Warn("Gmail enabled but no OAuth client found, emails will only be logged")
		return notify.LogMailer{Logger: a.Logger}, nil
	}
	if err != nil {
		return nil, err
	}

	a.Logger.Debug("Initializing gmail client")
	client, err := gmailclient.NewClient(a.Ctx, oauthConfig, token, a.Cfg.Gmail.Sender)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail client: %w", err)
	}
	return client, nil
}
