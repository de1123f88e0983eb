package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dipwatch/internal/domain/model"
)

func TestWebhookDeliversPayload(t *testing.T) {
	var got model.AlertPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode failed: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, time.Second)
	p := model.AlertPayload{
		AlertID: "a1",
		UserID:  "u1",
		Symbol:  "XBT/USD",
		Level:   "medium",
		Price:   89,
	}
	if err := w.Send(context.Background(), p); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if got.AlertID != "a1" || got.Level != "medium" {
		t.Errorf("payload mismatch: %+v", got)
	}
}

func TestWebhookNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, time.Second)
	if err := w.Send(context.Background(), model.AlertPayload{}); err == nil {
		t.Error("5xx response should surface as an error")
	}
}
