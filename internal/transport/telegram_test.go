package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"push-service/internal/telegram"
)

func TestFormatText(t *testing.T) {
	tests := []struct {
		name  string
		title string
		body  string
		want  string
	}{
		{"with title", "Alert", "disk is full", "[Alert]\n\ndisk is full"},
		{"empty title", "", "disk is full", "disk is full"},
		{"empty body", "Alert", "", "[Alert]\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatText(tt.title, tt.body); got != tt.want {
				t.Errorf("FormatText(%q, %q) = %q, want %q", tt.title, tt.body, got, tt.want)
			}
		})
	}
}

func TestTelegramDriverPush(t *testing.T) {
	var got telegram.SendMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Error(err)
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer server.Close()

	driver := NewTelegramDriver(telegram.NewClient(server.URL+"/", "TOKEN"))
	if err := driver.Push(context.Background(), "100", "Alert", "disk is full"); err != nil {
		t.Fatal(err)
	}
	if got.ChatID != "100" {
		t.Errorf("unexpected chat id %q", got.ChatID)
	}
	if got.Text != "[Alert]\n\ndisk is full" {
		t.Errorf("unexpected text %q", got.Text)
	}
}

func TestRegistryUnknownType(t *testing.T) {
	registry := Registry{}
	if _, err := registry.Driver("sms"); err == nil {
		t.Fatal("expected error for unregistered transport")
	}
}
