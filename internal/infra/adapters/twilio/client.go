// Package twilio implements the messaging-platform port against Twilio's
// WhatsApp REST API.
package twilio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"whatsapp-ai-translator/internal/domain"
	"whatsapp-ai-translator/internal/domain/ports/adapter"
)

// Compile-time assurance this client satisfies the port
var _ adapter.MessagingAdapter = (*Client)(nil)

const apiBase = "https://api.twilio.com/2010-04-01"

// Client talks to the Twilio REST API with account-SID basic auth.
type Client struct {
	accountSID string
	authToken  string
	from       string // e.g. whatsapp:+14155238886
	base       string
	client     *http.Client
}

func NewClient(accountSID, authToken, from string) (*Client, error) {
	if accountSID == "" || authToken == "" {
		return nil, fmt.Errorf("twilio credentials: %w", domain.ErrInvalidArgument)
	}
	return &Client{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		base:       apiBase,
		client:     &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// WithBaseURL overrides the API base, for tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.base = strings.TrimRight(base, "/")
	return c
}

// FetchMedia downloads message media. Twilio media URLs require the account
// credentials as basic auth. Missing or non-image content types default to
// image/jpeg.
func (c *Client) FetchMedia(ctx context.Context, mediaURL string) (adapter.Media, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return adapter.Media{}, err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return adapter.Media{}, fmt.Errorf("fetch media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return adapter.Media{}, fmt.Errorf("fetch media: twilio http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return adapter.Media{}, fmt.Errorf("fetch media: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	return adapter.Media{Bytes: body, ContentType: contentType}, nil
}

// SendText delivers an out-of-band message through the Messages endpoint.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.base, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("send message: twilio http %d: %s", resp.StatusCode, detail)
	}
	return nil
}
