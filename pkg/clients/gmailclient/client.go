package gmailclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Client wraps the Gmail API client. Sends are serialised and spaced out
// by Interval to stay under the per-user rate limit.
type Client struct {
	service  *gmail.Service
	sender   string
	Interval time.Duration

	sendMutex    sync.Mutex
	lastSendTime time.Time
}

// NewClient creates a Gmail client from an oauth config and a token carrying the gmail.send scope.
// sender, when set, is used as the From header.
func NewClient(ctx context.Context, oauthConfig *oauth2.Config, token *oauth2.Token, sender string) (*Client, error) {
	httpClient := oauthConfig.Client(ctx, token)

	service, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	return &Client{
		service:  service,
		sender:   sender,
		Interval: DefaultInterval,
	}, nil
}
