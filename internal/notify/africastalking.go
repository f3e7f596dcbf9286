package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	ATLiveURL    = "https://api.africastalking.com/version1/messaging"
	ATSandboxURL = "https://api.sandbox.africastalking.com/version1/messaging"
)

// AfricasTalking sends SMS through the Africa's Talking messaging API.
type AfricasTalking struct {
	Endpoint string
	Username string
	APIKey   string
	// SenderID is the registered short code or alphanumeric sender; empty
	// uses the account default.
	SenderID string
	Client   *http.Client
}

type atResponse struct {
	SMSMessageData struct {
		Message    string `json:"Message"`
		Recipients []struct {
			Number     string `json:"number"`
			Status     string `json:"status"`
			StatusCode int    `json:"statusCode"`
			MessageID  string `json:"messageId"`
		} `json:"Recipients"`
	} `json:"SMSMessageData"`
}

func (a *AfricasTalking) Send(ctx context.Context, to, message string) error {
	if a.Username == "" || a.APIKey == "" {
		return errors.New("africastalking: username and api key are required")
	}
	endpoint := a.Endpoint
	if endpoint == "" {
		endpoint = ATLiveURL
	}
	form := url.Values{}
	form.Set("username", a.Username)
	form.Set("to", to)
	form.Set("message", message)
	if a.SenderID != "" {
		form.Set("from", a.SenderID)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("apiKey", a.APIKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := a.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("africastalking: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var out atResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("africastalking: decode response: %w", err)
	}
	for _, r := range out.SMSMessageData.Recipients {
		// 100 Processed, 101 Sent, 102 Queued.
		if r.StatusCode < 100 || r.StatusCode > 102 {
			return fmt.Errorf("africastalking: recipient rejected: %s", r.Status)
		}
	}
	if len(out.SMSMessageData.Recipients) == 0 {
		return fmt.Errorf("africastalking: no recipients accepted: %s", out.SMSMessageData.Message)
	}
	return nil
}
