package channel

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stakewatch/stakewatch/internal/enrich"
)

func testMessage() *enrich.Message {
	return &enrich.Message{
		Display:     "node_registered",
		Title:       "New Node",
		Description: "A node joined.",
		Fields: []enrich.Field{
			{Name: "Transaction Hash", Value: "0xabc"},
		},
	}
}

func TestDiscordSenderPostsEmbed(t *testing.T) {
	var body []byte
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sender, err := NewDiscordSender(srv.URL)
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}
	if err := sender.Send(context.Background(), testMessage()); err != nil {
		t.Fatalf("send: %v", err)
	}

	if contentType != "application/json" {
		t.Fatalf("content type = %q", contentType)
	}

	var payload struct {
		Embeds []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Fields      []struct {
				Name  string `json:"name"`
				Value string `json:"value"`
			} `json:"fields"`
		} `json:"embeds"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(payload.Embeds) != 1 {
		t.Fatalf("embeds = %d, want 1", len(payload.Embeds))
	}
	e := payload.Embeds[0]
	if e.Title != "New Node" || e.Description != "A node joined." {
		t.Fatalf("embed = %+v", e)
	}
	if len(e.Fields) != 1 || e.Fields[0].Name != "Transaction Hash" || e.Fields[0].Value != "0xabc" {
		t.Fatalf("fields = %+v", e.Fields)
	}
}

func TestWebhookSenderPostsText(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender, err := NewWebhookSender(srv.URL)
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}
	if err := sender.Send(context.Background(), testMessage()); err != nil {
		t.Fatalf("send: %v", err)
	}

	var payload map[string]string
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	text := payload["text"]
	for _, want := range []string{"New Node", "A node joined.", "Transaction Hash: 0xabc"} {
		if !strings.Contains(text, want) {
			t.Fatalf("text %q missing %q", text, want)
		}
	}
}

func TestSendFailsOnHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	sender, err := NewDiscordSender(srv.URL)
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}
	if err := sender.Send(context.Background(), testMessage()); err == nil {
		t.Fatalf("expected http error status to fail the send")
	}
}

func TestSendersRequireURL(t *testing.T) {
	if _, err := NewDiscordSender(""); err == nil {
		t.Fatalf("expected empty discord url to fail")
	}
	if _, err := NewWebhookSender(""); err == nil {
		t.Fatalf("expected empty webhook url to fail")
	}
}
