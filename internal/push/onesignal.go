// README: OneSignal REST client for offline push delivery.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultEndpoint = "https://onesignal.com/api/v1/notifications"

// Button is an optional action button attached to a push notification.
type Button struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Client posts notifications to the OneSignal HTTP API. Failures are the
// caller's problem to log; nothing here retries.
type Client struct {
	AppID    string
	APIKey   string
	Endpoint string
	HTTP     *http.Client
}

func NewClient(appID, apiKey string) *Client {
	return &Client{
		AppID:    appID,
		APIKey:   apiKey,
		Endpoint: defaultEndpoint,
		HTTP:     &http.Client{Timeout: 3 * time.Second},
	}
}

// Push sends a notification to a single device token.
func (c *Client) Push(ctx context.Context, token, message string, data map[string]any, buttons []Button) error {
	payload := map[string]any{
		"app_id":             c.AppID,
		"include_player_ids": []string{token},
		"headings":           map[string]string{"en": "Notification"},
		"contents":           map[string]string{"en": message},
	}
	if len(data) > 0 {
		payload["data"] = data
	}
	if len(buttons) > 0 {
		payload["buttons"] = buttons
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("push request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("onesignal returned %s", resp.Status)
	}
	return nil
}
