package identity

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// MarketingClient upserts verified accounts into a Mailchimp-style audience
// list. Member ids are md5 of the lowercased address per the Mailchimp
// member API.
type MarketingClient struct {
	apiKey  string
	listID  string
	baseURL string
	client  *http.Client
}

// MarketingOption customizes the client.
type MarketingOption func(*MarketingClient)

// WithMarketingBaseURL overrides the derived API endpoint (tests, proxies).
func WithMarketingBaseURL(url string) MarketingOption {
	return func(c *MarketingClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithMarketingHTTPClient overrides the HTTP client.
func WithMarketingHTTPClient(client *http.Client) MarketingOption {
	return func(c *MarketingClient) {
		if client != nil {
			c.client = client
		}
	}
}

// NewMarketingClient creates a client. The datacenter is derived from the
// key suffix ("<key>-us21") unless a base URL is given.
func NewMarketingClient(apiKey, listID string, opts ...MarketingOption) *MarketingClient {
	c := &MarketingClient{
		apiKey: apiKey,
		listID: listID,
		client: &http.Client{Timeout: 10 * time.Second},
	}

	if i := strings.LastIndex(apiKey, "-"); i >= 0 {
		c.baseURL = fmt.Sprintf("https://%s.api.mailchimp.com/3.0", apiKey[i+1:])
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

type memberUpsert struct {
	EmailAddress string            `json:"email_address"`
	Status       string            `json:"status"`
	MergeFields  map[string]string `json:"merge_fields"`
}

// Subscribe upserts the account as a subscribed list member.
func (c *MarketingClient) Subscribe(ctx context.Context, user *User) error {
	payload, err := json.Marshal(memberUpsert{
		EmailAddress: user.Email,
		Status:       "subscribed",
		MergeFields: map[string]string{
			"FNAME": user.FirstName,
			"LNAME": user.LastName,
		},
	})
	if err != nil {
		return err
	}

	memberID := fmt.Sprintf("%x", md5.Sum([]byte(NormalizeEmail(user.Email))))
	url := fmt.Sprintf("%s/lists/%s/members/%s", c.baseURL, c.listID, memberID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.SetBasicAuth("anystring", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("marketing list upsert for %s: unexpected status %d", user.Email, resp.StatusCode)
	}
	return nil
}
