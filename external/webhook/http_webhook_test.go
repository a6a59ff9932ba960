package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/foxseedlab/meetbot/internal/webhook"
)

func TestSendReport_EmptyWebhookURL(t *testing.T) {
	sender := NewHTTPSender("")
	if err := sender.SendReport(context.Background(), webhook.ReportWebhookPayload{SessionID: 1}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestSendReport_Success(t *testing.T) {
	var got map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("unexpected content type: %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL)
	err := sender.SendReport(context.Background(), webhook.ReportWebhookPayload{
		SessionID:        4,
		RecordID:         12,
		State:            "completed",
		Platform:         "discord",
		StartedAt:        time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
		ExecutiveSummary: "Beta review",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got["schema_version"] != webhook.ReportWebhookSchemaVersion {
		t.Fatalf("unexpected schema version: %v", got["schema_version"])
	}
	if got["session_id"] != float64(4) || got["record_id"] != float64(12) || got["state"] != "completed" {
		t.Fatalf("unexpected payload: %v", got)
	}
	if items, ok := got["action_items"].([]any); !ok || len(items) != 0 {
		t.Fatalf("expected empty action item list, got %v", got["action_items"])
	}
}

func TestSendReport_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL)
	if err := sender.SendReport(context.Background(), webhook.ReportWebhookPayload{}); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
