package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(server.URL+"/", "TEST_TOKEN")
}

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotBody SendMessageRequest

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Error(err)
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": map[string]any{}})
	})

	err := client.SendMessage(context.Background(), &SendMessageRequest{
		ChatID: "100",
		Text:   "hello",
	})
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/botTEST_TOKEN/sendMessage" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotBody.ChatID != "100" || gotBody.Text != "hello" {
		t.Errorf("unexpected payload: %+v", gotBody)
	}
}

func TestSendMessageAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"description": "Bad Request: chat not found",
		})
	})

	err := client.SendMessage(context.Background(), &SendMessageRequest{ChatID: "100", Text: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("description should surface in the error, got %v", err)
	}
}

func TestGetUpdates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/getUpdates") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": []map[string]any{
				{
					"update_id": 10,
					"message": map[string]any{
						"message_id": 1,
						"chat":       map[string]any{"id": 42, "type": "private"},
						"text":       "/start abc",
					},
				},
			},
		})
	})

	updates, err := client.GetUpdates(context.Background(), &GetUpdatesRequest{Limit: 100})
	if err != nil {
		t.Fatal(err)
	}
	if len(updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(updates))
	}
	u := updates[0]
	if u.UpdateID != 10 || u.Message == nil || u.Message.Chat.ID != 42 {
		t.Errorf("unexpected update: %+v", u)
	}
	if u.Message.Text == nil || *u.Message.Text != "/start abc" {
		t.Errorf("unexpected text: %v", u.Message.Text)
	}
}
