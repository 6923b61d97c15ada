package webhook

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Client posts clinician-facing notifications to the configured webhook.
type Client struct {
	url        string
	token      string
	httpClient *http.Client
}

func NewClient(url, token string) *Client {
	return &Client{
		url:   url,
		token: token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type messagePayload struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type documentPayload struct {
	Type     string `json:"type"`
	FileName string `json:"file_name"`
	// Content is the base64-encoded document body.
	Content string `json:"content"`
}

func (c *Client) SendMessage(ctx context.Context, text string) error {
	return c.post(ctx, messagePayload{Type: "message", Text: text})
}

func (c *Client) SendDocument(ctx context.Context, fileName string, data []byte) error {
	return c.post(ctx, documentPayload{
		Type:     "document",
		FileName: fileName,
		Content:  base64.StdEncoding.EncodeToString(data),
	})
}

func (c *Client) post(ctx context.Context, payload any) error {
	if c.url == "" {
		return errors.New("webhook url not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "post webhook")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return errors.Errorf("webhook returned status %s: %s", resp.Status, string(respBody))
	}
	return nil
}
