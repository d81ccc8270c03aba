package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/stakewatch/stakewatch/internal/enrich"
)

// Sender delivers one rendered message to a chat-platform channel.
type Sender interface {
	Send(ctx context.Context, msg *enrich.Message) error
}

type webhookSender struct {
	url     string
	client  *http.Client
	payload func(*enrich.Message) (any, error)
}

// NewDiscordSender builds a Discord-compatible webhook channel that
// posts messages as embeds.
func NewDiscordSender(url string) (Sender, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook url required")
	}
	return &webhookSender{
		url:     url,
		client:  defaultClient(),
		payload: discordPayload,
	}, nil
}

// NewWebhookSender builds a generic webhook channel posting plain text.
func NewWebhookSender(url string) (Sender, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook url required")
	}
	return &webhookSender{
		url:     url,
		client:  defaultClient(),
		payload: textPayload,
	}, nil
}

func (s *webhookSender) Send(ctx context.Context, msg *enrich.Message) error {
	payload, err := s.payload(msg)
	if err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("channel http status %d", resp.StatusCode)
	}
	return nil
}

func discordPayload(msg *enrich.Message) (any, error) {
	fields := make([]map[string]any, 0, len(msg.Fields))
	for _, f := range msg.Fields {
		fields = append(fields, map[string]any{
			"name":   f.Name,
			"value":  f.Value,
			"inline": false,
		})
	}
	return map[string]any{
		"embeds": []map[string]any{{
			"title":       msg.Title,
			"description": msg.Description,
			"fields":      fields,
		}},
	}, nil
}

func textPayload(msg *enrich.Message) (any, error) {
	text := msg.Title + "\n" + msg.Description
	for _, f := range msg.Fields {
		text += "\n" + f.Name + ": " + f.Value
	}
	return map[string]string{"text": text}, nil
}

func defaultClient() *http.Client {
	return &http.Client{
		Timeout: 8 * time.Second,
	}
}
